package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventix/ticket-booking/internal/booking"
)

// StartConfirmationConsumer connects to RabbitMQ, declares the durable
// booking.confirmed queue and consumes confirmation notices. Each
// notice is appended to logs/notifications.log as a single line; this
// stands in for the user-facing delivery channel. The function runs a
// reconnect loop with exponential backoff and keeps going after
// processing errors, rejecting the offending message without requeue so
// a poison payload cannot wedge the queue.
func StartConfirmationConsumer(url string) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(confirmedQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(confirmedQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := deliver(d.Body); err != nil {
			log.Printf("notify-consumer: deliver failed: %v", err)
			_ = d.Nack(false, false) // reject, no requeue
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func deliver(body []byte) error {
	var n booking.ConfirmedNotice
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | event=%q | ticket=%q | quantity=%d | amount=%s\n",
		n.OccurredAt.Format(time.RFC3339), n.BookingID, n.UserID, n.EventTitle, n.TicketType, n.Quantity, n.Amount)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
