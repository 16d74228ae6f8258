package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eventix/ticket-booking/internal/booking"
	"github.com/eventix/ticket-booking/internal/model"
)

// Store implements booking.Repository over MySQL. Row locking relies on
// SELECT ... FOR UPDATE inside the context-carried transaction; the
// bookings table additionally carries a unique index over
// (ticket_id, active_user) where active_user is a generated column that
// is NULL for cancelled rows, so a duplicate active booking is rejected
// by the database even if both application checks were bypassed.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying pool for the per-entity repositories that
// share it.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn in a single atomic transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.db, fn)
}

const ticketColumns = `id, event_id, type, price, quantity, created_at, updated_at`

func scanTicket(row *sql.Row) (model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.EventID, &t.Type, &t.Price, &t.Quantity, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Ticket{}, booking.ErrTicketNotFound
		}
		if isLockWaitTimeout(err) {
			return model.Ticket{}, booking.ErrLockTimeout
		}
		return model.Ticket{}, fmt.Errorf("scan ticket: %w", err)
	}
	return t, nil
}

// GetTicket reads a ticket without locking it. Used by display paths
// and by pre-checks outside the reservation transaction.
func (s *Store) GetTicket(ctx context.Context, id uint64) (model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	return scanTicket(conn(ctx, s.db).QueryRowContext(ctx, q, id))
}

// GetTicketForUpdate reads a ticket under an exclusive row lock. It
// must run inside WithTx; the lock is held until the transaction ends
// and serializes all reservation attempts against the ticket.
func (s *Store) GetTicketForUpdate(ctx context.Context, id uint64) (model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ? FOR UPDATE`
	return scanTicket(conn(ctx, s.db).QueryRowContext(ctx, q, id))
}

// GetEvent reads an event by id.
func (s *Store) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	const q = `SELECT id, title, venue, date, created_by, created_at, updated_at FROM events WHERE id = ?`
	var e model.Event
	err := conn(ctx, s.db).QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.Title, &e.Venue, &e.Date, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, booking.ErrEventNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// SumActiveQuantities totals the pending and confirmed quantities on a
// ticket. When excludeBookingID is non-zero that booking is left out,
// which quantity amendment uses to not count its own reservation.
func (s *Store) SumActiveQuantities(ctx context.Context, ticketID, excludeBookingID uint64) (int, error) {
	const q = `
SELECT COALESCE(SUM(quantity), 0)
FROM bookings
WHERE ticket_id = ? AND id != ? AND status IN ('pending', 'confirmed')`
	var total int
	if err := conn(ctx, s.db).QueryRowContext(ctx, q, ticketID, excludeBookingID).Scan(&total); err != nil {
		if isLockWaitTimeout(err) {
			return 0, booking.ErrLockTimeout
		}
		return 0, fmt.Errorf("sum active quantities: %w", err)
	}
	return total, nil
}

// HasActiveBooking reports whether the user holds a pending or
// confirmed booking on the ticket.
func (s *Store) HasActiveBooking(ctx context.Context, userID, ticketID uint64) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM bookings
  WHERE user_id = ? AND ticket_id = ? AND status IN ('pending', 'confirmed')
)`
	var exists bool
	if err := conn(ctx, s.db).QueryRowContext(ctx, q, userID, ticketID).Scan(&exists); err != nil {
		return false, fmt.Errorf("has active booking: %w", err)
	}
	return exists, nil
}

// CreateBooking inserts a booking and populates its generated id and
// timestamps. A violation of the active-booking unique index surfaces
// as booking.ErrDuplicateActiveBooking.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, ticket_id, quantity, status) VALUES (?, ?, ?, ?)`
	c := conn(ctx, s.db)
	result, err := c.ExecContext(ctx, q, b.UserID, b.TicketID, b.Quantity, b.Status)
	if err != nil {
		if isDuplicateEntry(err) {
			return booking.ErrDuplicateActiveBooking
		}
		if isLockWaitTimeout(err) {
			return booking.ErrLockTimeout
		}
		return fmt.Errorf("create booking: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return c.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetBooking reads a booking by id.
func (s *Store) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	const q = `SELECT id, user_id, ticket_id, quantity, status, created_at, updated_at FROM bookings WHERE id = ?`
	var b model.Booking
	err := conn(ctx, s.db).QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.TicketID, &b.Quantity, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, booking.ErrBookingNotFound
		}
		return model.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatus sets the status of a booking.
func (s *Store) UpdateBookingStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE bookings SET status = ? WHERE id = ?`
	if _, err := conn(ctx, s.db).ExecContext(ctx, q, status, id); err != nil {
		if isDuplicateEntry(err) {
			return booking.ErrDuplicateActiveBooking
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// UpdateBookingQuantity sets the reserved quantity of a booking.
func (s *Store) UpdateBookingQuantity(ctx context.Context, id uint64, quantity int) error {
	const q = `UPDATE bookings SET quantity = ? WHERE id = ?`
	if _, err := conn(ctx, s.db).ExecContext(ctx, q, quantity, id); err != nil {
		return fmt.Errorf("update booking quantity: %w", err)
	}
	return nil
}

// DeleteBooking removes a booking; its payment goes with it via the
// foreign key cascade.
func (s *Store) DeleteBooking(ctx context.Context, id uint64) error {
	const q = `DELETE FROM bookings WHERE id = ?`
	if _, err := conn(ctx, s.db).ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}

// GetPaymentByBooking returns the booking's payment, or nil when none
// exists.
func (s *Store) GetPaymentByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	const q = `SELECT id, booking_id, amount, status, created_at, updated_at FROM payments WHERE booking_id = ?`
	var p model.Payment
	err := conn(ctx, s.db).QueryRowContext(ctx, q, bookingID).Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by booking: %w", err)
	}
	return &p, nil
}

// CreatePayment inserts a payment and populates its generated id. The
// unique index on booking_id backs the at-most-one-payment rule.
func (s *Store) CreatePayment(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, amount, status) VALUES (?, ?, ?)`
	result, err := conn(ctx, s.db).ExecContext(ctx, q, p.BookingID, p.Amount, p.Status)
	if err != nil {
		if isDuplicateEntry(err) {
			return booking.ErrPaymentAlreadyExists
		}
		return fmt.Errorf("create payment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// UpdatePaymentStatus sets the status of a payment. The amount is never
// touched after creation.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE payments SET status = ? WHERE id = ?`
	if _, err := conn(ctx, s.db).ExecContext(ctx, q, status, id); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}
