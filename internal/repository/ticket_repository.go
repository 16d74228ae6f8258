package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eventix/ticket-booking/internal/booking"
	"github.com/eventix/ticket-booking/internal/model"
)

// TicketRepo provides CRUD operations for tickets. Availability is
// never stored on the ticket row; listing joins the active booking sum
// so display values come from one consistent read.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Create inserts a ticket and populates the generated id.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (event_id, type, price, quantity) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, t.EventID, t.Type, t.Price, t.Quantity)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID looks a ticket up by primary key.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	const q = `SELECT id, event_id, type, price, quantity, created_at, updated_at FROM tickets WHERE id = ?`
	var t model.Ticket
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.EventID, &t.Type, &t.Price, &t.Quantity, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Ticket{}, booking.ErrTicketNotFound
		}
		return model.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// TicketAvailability pairs a ticket with its derived availability for
// listings. The value is display-only; write paths recompute it under
// the ticket row lock.
type TicketAvailability struct {
	Ticket    model.Ticket
	Available int
}

// ListByEvent returns an event's tickets with their remaining
// availability, floored at zero.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]TicketAvailability, error) {
	const q = `
SELECT t.id, t.event_id, t.type, t.price, t.quantity, t.created_at, t.updated_at,
       GREATEST(0, t.quantity - COALESCE(SUM(
         CASE WHEN b.status IN ('pending', 'confirmed') THEN b.quantity ELSE 0 END
       ), 0)) AS available
FROM tickets t
LEFT JOIN bookings b ON b.ticket_id = t.id
WHERE t.event_id = ?
GROUP BY t.id
ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []TicketAvailability
	for rows.Next() {
		var ta TicketAvailability
		t := &ta.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.Type, &t.Price, &t.Quantity, &t.CreatedAt, &t.UpdatedAt, &ta.Available); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, ta)
	}
	return out, rows.Err()
}
