// Package service implements the catalog use cases on top of the
// repository layer.  Every exported operation runs in exactly one
// transaction; classified failures are returned as *Error.
package service

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/cinema-catalog/internal/metrics"
	"github.com/iliyamo/cinema-catalog/internal/model"
	"github.com/iliyamo/cinema-catalog/internal/queue"
	"github.com/iliyamo/cinema-catalog/internal/repository"
)

const tracerName = "github.com/iliyamo/cinema-catalog/internal/service"

// Transactor runs fn inside a store transaction.  *repository.Store
// implements it.
type Transactor interface {
	Tx(ctx context.Context, readOnly bool, fn func(tx *repository.Tx) error) error
}

// EventPublisher hands committed changes to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.CatalogEvent) error
}

// Option configures a service.
type Option func(*base)

// WithPublisher publishes an event after every committed mutation.
func WithPublisher(p EventPublisher) Option {
	return func(b *base) { b.publisher = p }
}

func WithMetrics(m *metrics.CatalogMetrics) Option {
	return func(b *base) { b.metrics = m }
}

// WithClock replaces time.Now, which decides the date of new orders.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

func WithLogger(l *logrus.Entry) Option {
	return func(b *base) { b.log = l }
}

// base carries what both services share: the store and the ambient
// collaborators around each operation.
type base struct {
	entity    string
	store     Transactor
	publisher EventPublisher
	metrics   *metrics.CatalogMetrics
	now       func() time.Time
	log       *logrus.Entry
	tracer    trace.Tracer
}

func newBase(entity string, store Transactor, opts []Option) base {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	b := base{
		entity: entity,
		store:  store,
		now:    time.Now,
		log:    logrus.NewEntry(discard),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.log = b.log.WithField("component", entity+"_service")
	return b
}

// run executes fn in one transaction and records the span, the metrics and,
// for unclassified failures, an error log line.
func (b *base) run(ctx context.Context, op string, readOnly bool, fn func(ctx context.Context, tx *repository.Tx) error) error {
	ctx, span := b.tracer.Start(ctx, b.entity+"."+op, trace.WithAttributes(
		attribute.String("catalog.entity", b.entity),
		attribute.String("catalog.operation", op),
		attribute.Bool("db.read_only", readOnly),
	))
	defer span.End()

	start := time.Now()
	err := b.store.Tx(ctx, readOnly, func(tx *repository.Tx) error {
		return fn(ctx, tx)
	})

	outcome := metrics.OutcomeOK
	if err != nil {
		kind := KindOf(err)
		outcome = kind.String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if kind == KindInternal {
			b.log.WithError(err).WithField("operation", op).Error("operation failed")
		}
	}
	b.metrics.RecordOperation(b.entity, op, outcome, time.Since(start))
	return err
}

// publish is best effort: the change is already committed, so a broker
// failure is logged and counted but never returned.
func (b *base) publish(ctx context.Context, ev queue.CatalogEvent) {
	if b.publisher == nil {
		return
	}
	err := b.publisher.Publish(ctx, ev)
	b.metrics.RecordEvent(ev.Type, err)
	if err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"event":     ev.Type,
			"entity_id": ev.EntityID,
		}).Warn("publish event failed")
	}
}

// today is the current calendar date in UTC.
func (b *base) today() model.Date {
	return model.DateOf(b.now().UTC())
}

func validatePaging(page, size int) error {
	if page < 0 {
		return invalidValue("page must not be negative")
	}
	if size < 1 {
		return invalidValue("size must be at least 1")
	}
	if page > math.MaxInt/size {
		return invalidValue("page %d is out of range", page)
	}
	return nil
}
