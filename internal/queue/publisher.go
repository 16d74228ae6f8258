// Package queue connects the engine to RabbitMQ: the publisher queues
// booking confirmation notices and the background consumer delivers
// them. Delivery is at-least-once and fire-and-forget from the engine's
// perspective; a broker outage is logged and never rolls back a
// confirmation.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventix/ticket-booking/internal/booking"
)

const confirmedQueueName = "booking.confirmed"

// Publisher queues ConfirmedNotice payloads on the booking.confirmed
// queue. It satisfies the engine's Notifier interface.
type Publisher struct {
	url string
}

// NewPublisher returns a publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// BookingConfirmed publishes one notice. A fresh connection per publish
// keeps the publisher robust against stale channels at the cost of a
// dial; confirmation volume is low enough that this is acceptable.
// Messages are marked persistent so they survive a broker restart.
func (p *Publisher) BookingConfirmed(ctx context.Context, n booking.ConfirmedNotice) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(confirmedQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(n)
	if err != nil {
		log.Printf("rabbitmq: marshal notice failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", confirmedQueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
