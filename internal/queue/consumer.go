package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// EventLogFile is the file, under the consumer's log directory, that
// receives one line per catalog event.
const EventLogFile = "catalog.log"

// Consumer appends catalog events to <dir>/catalog.log.
type Consumer struct {
	url string
	dir string
	log *logrus.Entry
}

func NewConsumer(url, dir string, log *logrus.Entry) *Consumer {
	if dir == "" {
		dir = "logs"
	}
	return &Consumer{url: url, dir: dir, log: log.WithField("component", "event_consumer")}
}

// Run connects to RabbitMQ, declares the catalog.events queue and consumes
// until ctx is cancelled.  Broker failures are retried with exponential
// backoff capped at 30s; Run only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}

	if _, err := ch.QueueDeclare(CatalogQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(CatalogQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				c.log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev CatalogEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, EventLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// formatEvent renders ev as one human-friendly log line.
func formatEvent(ev CatalogEvent) string {
	switch ev.Type {
	case MovieCreated, MovieUpdated:
		return fmt.Sprintf("[%s] %s | movie_id=%d | name=%q | release_date=%s | cost=%d\n",
			ev.OccurredAt, ev.Type, ev.EntityID, ev.Name, ev.ReleaseDate, ev.Cost)
	case MovieDeleted:
		return fmt.Sprintf("[%s] %s | movie_id=%d | orders_removed=%d\n",
			ev.OccurredAt, ev.Type, ev.EntityID, ev.OrdersRemoved)
	case OrderCreated, OrderUpdated:
		return fmt.Sprintf("[%s] %s | order_id=%d | movie_id=%d | order_time=%s | participants=%d\n",
			ev.OccurredAt, ev.Type, ev.EntityID, ev.MovieID, ev.OrderTime, ev.Participants)
	default:
		return fmt.Sprintf("[%s] %s | id=%d | movie_id=%d\n",
			ev.OccurredAt, ev.Type, ev.EntityID, ev.MovieID)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
