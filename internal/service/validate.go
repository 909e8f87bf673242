package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-catalog/internal/repository"
)

// movieLookup is the read-only slice of the movie repository the
// validation rules need.
type movieLookup interface {
	ExistsByKey(ctx context.Context, id uint64) (bool, error)
	ExistsByField(ctx context.Context, column string, v any) (bool, error)
}

type presence struct {
	name string
	set  bool
}

func field[T any](name string, v *T) presence { return presence{name: name, set: v != nil} }

// requireAllPresent fails with KindMissingField naming the first unset field.
func requireAllPresent(fields ...presence) error {
	for _, f := range fields {
		if !f.set {
			return missingField("not enough information: %s is required", f.name)
		}
	}
	return nil
}

func requirePositive(name string, n int) error {
	if n <= 0 {
		return invalidValue("%s should be greater than 0", name)
	}
	return nil
}

// requireUniqueName fails with KindConflict when a movie already has
// exactly this name.
func requireUniqueName(ctx context.Context, movies movieLookup, name string) error {
	taken, err := movies.ExistsByField(ctx, repository.ColMovieName, name)
	if err != nil {
		return fmt.Errorf("check movie name: %w", err)
	}
	if taken {
		return conflict("movie name %q is already occupied", name)
	}
	return nil
}

func requireMovieExists(ctx context.Context, movies movieLookup, id uint64) error {
	ok, err := movies.ExistsByKey(ctx, id)
	if err != nil {
		return fmt.Errorf("check movie %d: %w", id, err)
	}
	if !ok {
		return notFound("movie %d not found", id)
	}
	return nil
}
