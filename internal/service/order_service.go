package service

import (
	"context"
	"errors"

	"github.com/iliyamo/cinema-catalog/internal/model"
	"github.com/iliyamo/cinema-catalog/internal/queue"
	"github.com/iliyamo/cinema-catalog/internal/repository"
)

// OrderService implements the order use cases.
type OrderService struct {
	base
}

func NewOrderService(store Transactor, opts ...Option) *OrderService {
	return &OrderService{base: newBase("order", store, opts)}
}

func (s *OrderService) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	var out *model.Order
	err := s.run(ctx, "find", true, func(ctx context.Context, tx *repository.Tx) error {
		o, err := loadOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns the zero-based page of orders matching every set field of
// c, ordered by id.
func (s *OrderService) Search(ctx context.Context, c model.OrderCriteria, page, size int) (*model.Page[model.Order], error) {
	if err := validatePaging(page, size); err != nil {
		return nil, err
	}
	var out *model.Page[model.Order]
	err := s.run(ctx, "search", true, func(ctx context.Context, tx *repository.Tx) error {
		p, err := tx.Orders.QueryPage(ctx, repository.OrderPredicate(c), page, size)
		if err != nil {
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

// Create places an order for today.  MovieID and Participants are
// required; a caller supplied OrderTime is ignored.
func (s *OrderService) Create(ctx context.Context, in model.OrderInput) (*model.Order, error) {
	var out *model.Order
	err := s.run(ctx, "create", false, func(ctx context.Context, tx *repository.Tx) error {
		if err := requireAllPresent(
			field("movieId", in.MovieID),
			field("participants", in.Participants),
		); err != nil {
			return err
		}
		if err := requireMovieExists(ctx, tx.Movies, *in.MovieID); err != nil {
			return err
		}
		if err := requirePositive("participants", *in.Participants); err != nil {
			return err
		}

		o := &model.Order{
			MovieID:      *in.MovieID,
			OrderTime:    s.today(),
			Participants: *in.Participants,
		}
		if err := tx.Orders.Save(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.NewOrderEvent(queue.OrderCreated, *out, s.now()))
	return out, nil
}

// Update applies the set fields of patch to the order patch.ID names.
func (s *OrderService) Update(ctx context.Context, patch model.OrderInput) (*model.Order, error) {
	if patch.ID == nil {
		return nil, missingField("not enough information: id is required")
	}
	var out *model.Order
	err := s.run(ctx, "update", false, func(ctx context.Context, tx *repository.Tx) error {
		o, err := loadOrder(ctx, tx, *patch.ID)
		if err != nil {
			return err
		}
		if err := mergeOrder(ctx, tx.Movies, o, patch); err != nil {
			return err
		}
		if err := tx.Orders.Save(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.NewOrderEvent(queue.OrderUpdated, *out, s.now()))
	return out, nil
}

func (s *OrderService) Delete(ctx context.Context, id uint64) error {
	var gone *model.Order
	err := s.run(ctx, "delete", false, func(ctx context.Context, tx *repository.Tx) error {
		o, err := loadOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.Orders.DeleteByKey(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("order %d not found", id)
			}
			return err
		}
		gone = o
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.NewOrderEvent(queue.OrderDeleted, *gone, s.now()))
	return nil
}

func loadOrder(ctx context.Context, tx *repository.Tx, id uint64) (*model.Order, error) {
	o, err := tx.Orders.FindByKey(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("order %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
