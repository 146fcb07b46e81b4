// Package messaging publishes loyalty events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

// VisitPublisher sends visit-awarded events to a durable queue.
// Each publish dials its own connection; visits arrive at till speed, not in bursts.
type VisitPublisher struct {
	url   string
	queue string
	dial  func(url string) (*amqp.Connection, error)
}

// NewVisitPublisher returns a publisher, or nil when no broker URL is configured
func NewVisitPublisher(cfg config.BrokerConfig) *VisitPublisher {
	if cfg.URL == "" {
		return nil
	}
	return &VisitPublisher{url: cfg.URL, queue: cfg.Queue, dial: amqp.Dial}
}

// PublishVisitAwarded publishes visit as a persistent JSON message
func (p *VisitPublisher) PublishVisitAwarded(ctx context.Context, visit domain.Visit) error {
	body, err := json.Marshal(visit)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal visit: %w", err)
	}

	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so events survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare %s: %w", p.queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    visit.Reference,
		Timestamp:    time.Now().UTC(),
		Type:         "loyalty.visit.awarded",
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}
