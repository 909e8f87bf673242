package service

import (
	"context"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

// mergeMovie applies the set fields of patch to m in place.  Each field is
// validated right before it is copied, so the first failure leaves the
// remaining fields untouched and the caller's transaction rolls back.
func mergeMovie(ctx context.Context, movies movieLookup, m *model.Movie, patch model.MovieInput) error {
	if patch.Name != nil && *patch.Name != m.Name {
		if err := requireUniqueName(ctx, movies, *patch.Name); err != nil {
			return err
		}
		m.Name = *patch.Name
	}
	if patch.Cost != nil {
		if err := requirePositive("cost", *patch.Cost); err != nil {
			return err
		}
		m.Cost = *patch.Cost
	}
	if patch.ReleaseDate != nil {
		m.ReleaseDate = *patch.ReleaseDate
	}
	return nil
}

// mergeOrder applies the set fields of patch to o in place.  OrderTime is
// copied verbatim.
func mergeOrder(ctx context.Context, movies movieLookup, o *model.Order, patch model.OrderInput) error {
	if patch.MovieID != nil {
		if err := requireMovieExists(ctx, movies, *patch.MovieID); err != nil {
			return err
		}
		o.MovieID = *patch.MovieID
	}
	if patch.Participants != nil {
		if err := requirePositive("participants", *patch.Participants); err != nil {
			return err
		}
		o.Participants = *patch.Participants
	}
	if patch.OrderTime != nil {
		o.OrderTime = *patch.OrderTime
	}
	return nil
}
