package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-catalog/internal/model"
	"github.com/iliyamo/cinema-catalog/internal/queue"
	"github.com/iliyamo/cinema-catalog/internal/repository"
)

// MovieService implements the movie use cases.  Movies are always returned
// with their orders attached.
type MovieService struct {
	base
}

func NewMovieService(store Transactor, opts ...Option) *MovieService {
	return &MovieService{base: newBase("movie", store, opts)}
}

// FindByID returns the movie with its orders or a KindNotFound error.
func (s *MovieService) FindByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var out *model.Movie
	err := s.run(ctx, "find", true, func(ctx context.Context, tx *repository.Tx) error {
		m, err := loadMovie(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := attachOrders(ctx, tx, []*model.Movie{m}); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns the zero-based page of movies matching every set field of
// c, ordered by id.
func (s *MovieService) Search(ctx context.Context, c model.MovieCriteria, page, size int) (*model.Page[model.Movie], error) {
	if err := validatePaging(page, size); err != nil {
		return nil, err
	}
	var out *model.Page[model.Movie]
	err := s.run(ctx, "search", true, func(ctx context.Context, tx *repository.Tx) error {
		p, err := tx.Movies.QueryPage(ctx, repository.MoviePredicate(c), page, size)
		if err != nil {
			return err
		}
		ptrs := make([]*model.Movie, len(p.Content))
		for i := range p.Content {
			ptrs[i] = &p.Content[i]
		}
		if err := attachOrders(ctx, tx, ptrs); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores a new movie.  Name, release date and cost are required,
// the name must be unused and the cost positive.
func (s *MovieService) Create(ctx context.Context, in model.MovieInput) (*model.Movie, error) {
	var out *model.Movie
	err := s.run(ctx, "create", false, func(ctx context.Context, tx *repository.Tx) error {
		if err := requireAllPresent(
			field("name", in.Name),
			field("releaseDate", in.ReleaseDate),
			field("cost", in.Cost),
		); err != nil {
			return err
		}
		if err := requireUniqueName(ctx, tx.Movies, *in.Name); err != nil {
			return err
		}
		if err := requirePositive("cost", *in.Cost); err != nil {
			return err
		}

		m := &model.Movie{
			Name:        *in.Name,
			ReleaseDate: *in.ReleaseDate,
			Cost:        *in.Cost,
			Orders:      []model.Order{},
		}
		if err := saveMovie(ctx, tx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.NewMovieEvent(queue.MovieCreated, *out, s.now()))
	return out, nil
}

// Update applies the set fields of patch to the movie patch.ID names.
func (s *MovieService) Update(ctx context.Context, patch model.MovieInput) (*model.Movie, error) {
	if patch.ID == nil {
		return nil, missingField("not enough information: id is required")
	}
	var out *model.Movie
	err := s.run(ctx, "update", false, func(ctx context.Context, tx *repository.Tx) error {
		m, err := loadMovie(ctx, tx, *patch.ID)
		if err != nil {
			return err
		}
		if err := mergeMovie(ctx, tx.Movies, m, patch); err != nil {
			return err
		}
		if err := saveMovie(ctx, tx, m); err != nil {
			return err
		}
		if err := attachOrders(ctx, tx, []*model.Movie{m}); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.NewMovieEvent(queue.MovieUpdated, *out, s.now()))
	return out, nil
}

// Delete removes the movie and every order placed against it.
func (s *MovieService) Delete(ctx context.Context, id uint64) error {
	var removed int64
	err := s.run(ctx, "delete", false, func(ctx context.Context, tx *repository.Tx) error {
		if err := requireMovieExists(ctx, tx.Movies, id); err != nil {
			return err
		}
		n, err := tx.Orders.DeleteWhere(ctx, repository.OrdersOfMovies(id))
		if err != nil {
			return err
		}
		if err := tx.Movies.DeleteByKey(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("movie %d not found", id)
			}
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return err
	}
	ev := queue.NewMovieEvent(queue.MovieDeleted, model.Movie{ID: id}, s.now())
	ev.OrdersRemoved = removed
	s.publish(ctx, ev)
	return nil
}

// saveMovie reports a name taken by a concurrent writer as a conflict.
func saveMovie(ctx context.Context, tx *repository.Tx, m *model.Movie) error {
	err := tx.Movies.Save(ctx, m)
	if errors.Is(err, repository.ErrDuplicate) {
		return conflict("movie name %q is already occupied", m.Name)
	}
	return err
}

func loadMovie(ctx context.Context, tx *repository.Tx, id uint64) (*model.Movie, error) {
	m, err := tx.Movies.FindByKey(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("movie %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// attachOrders loads the orders of every movie in one query.
func attachOrders(ctx context.Context, tx *repository.Tx, movies []*model.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	ids := make([]uint64, len(movies))
	byID := make(map[uint64]*model.Movie, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
		m.Orders = []model.Order{}
		byID[m.ID] = m
	}
	orders, err := tx.Orders.QueryAll(ctx, repository.OrdersOfMovies(ids...))
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	for _, o := range orders {
		if m, ok := byID[o.MovieID]; ok {
			m.Orders = append(m.Orders, o)
		}
	}
	return nil
}
