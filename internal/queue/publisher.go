package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends catalog events to the catalog.events queue.  Each publish
// opens its own connection so a broker restart never leaves the publisher
// holding a dead channel; the event rate of a catalog is low enough for
// that to be cheap.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	log         *logrus.Entry
	dial        func(ctx context.Context, url string) (*amqp.Connection, error)
}

// DefaultDialTimeout bounds connecting and the AMQP handshake, which run
// inside the request that made the change.
const DefaultDialTimeout = 3 * time.Second

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log *logrus.Entry) *Publisher {
	p := &Publisher{
		url:         url,
		queue:       CatalogQueueName,
		dialTimeout: DefaultDialTimeout,
		log:         log.WithField("component", "event_publisher"),
	}
	p.dial = p.dialBroker
	return p
}

// dialBroker connects within dialTimeout and gives up early when ctx ends.
// The deadline also covers the handshake; amqp clears it once the
// connection is open.
func (p *Publisher) dialBroker(ctx context.Context, url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: p.dialTimeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := conn.SetDeadline(time.Now().Add(p.dialTimeout)); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

// Publish declares the queue (idempotent) and publishes ev as a persistent
// JSON message.  Errors are returned unlogged; the caller decides whether
// they matter.
func (p *Publisher) Publish(ctx context.Context, ev CatalogEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := p.dial(ctx, p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.WithFields(logrus.Fields{"event": ev.Type, "entity_id": ev.EntityID}).Debug("event published")
	return nil
}
