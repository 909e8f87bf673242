// Package queue defines the catalog events exchanged over RabbitMQ, the
// publisher used by the services and the consumer that writes them to the
// event log.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

// CatalogQueueName is the durable queue every catalog event goes to.
const CatalogQueueName = "catalog.events"

// Event types.
const (
	MovieCreated = "movie.created"
	MovieUpdated = "movie.updated"
	MovieDeleted = "movie.deleted"
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	OrderDeleted = "order.deleted"
)

// CatalogEvent is published after a mutation commits.  It carries the state
// of the entity after the change (only the key for deletions) so consumers
// do not need to query the catalog.
type CatalogEvent struct {
	Type         string `json:"type"`
	EntityID     uint64 `json:"entity_id"`
	MovieID      uint64 `json:"movie_id,omitempty"`
	Name         string `json:"name,omitempty"`
	ReleaseDate  string `json:"release_date,omitempty"`
	Cost         int    `json:"cost,omitempty"`
	OrderTime    string `json:"order_time,omitempty"`
	Participants int    `json:"participants,omitempty"`
	// OrdersRemoved is set on movie.deleted to the number of cascaded orders.
	OrdersRemoved int64  `json:"orders_removed,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewMovieEvent describes a change to m.
func NewMovieEvent(eventType string, m model.Movie, at time.Time) CatalogEvent {
	ev := CatalogEvent{
		Type:       eventType,
		EntityID:   m.ID,
		MovieID:    m.ID,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
	if eventType != MovieDeleted {
		ev.Name = m.Name
		ev.ReleaseDate = m.ReleaseDate.String()
		ev.Cost = m.Cost
	}
	return ev
}

// NewOrderEvent describes a change to o.
func NewOrderEvent(eventType string, o model.Order, at time.Time) CatalogEvent {
	ev := CatalogEvent{
		Type:       eventType,
		EntityID:   o.ID,
		MovieID:    o.MovieID,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
	if eventType != OrderDeleted {
		ev.OrderTime = o.OrderTime.String()
		ev.Participants = o.Participants
	}
	return ev
}
