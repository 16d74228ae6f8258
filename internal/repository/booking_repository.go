package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eventix/ticket-booking/internal/model"
)

// BookingRepo serves the read side of bookings for the HTTP layer:
// per-user listings and admin listings with the attached payment.
// Mutations go exclusively through the engine and the Store.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingDetail is a booking joined with its optional payment, shaped
// for listing responses.
type BookingDetail struct {
	Booking       model.Booking
	TicketType    string
	EventTitle    string
	PaymentStatus *string
	PaymentAmount *decimal.Decimal
}

const detailQuery = `
SELECT b.id, b.user_id, b.ticket_id, b.quantity, b.status, b.created_at, b.updated_at,
       t.type, e.title, p.status, p.amount
FROM bookings b
JOIN tickets t ON t.id = b.ticket_id
JOIN events e ON e.id = t.event_id
LEFT JOIN payments p ON p.booking_id = b.id`

// ListByUser returns the bookings created by one user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = detailQuery + ` WHERE b.user_id = ? ORDER BY b.created_at DESC`
	return r.list(ctx, q, userID)
}

// ListAll returns every booking, newest first. Admin only.
func (r *BookingRepo) ListAll(ctx context.Context) ([]BookingDetail, error) {
	const q = detailQuery + ` ORDER BY b.created_at DESC`
	return r.list(ctx, q)
}

// GetDetail returns one booking with its payment, if any.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (BookingDetail, error) {
	const q = detailQuery + ` WHERE b.id = ?`
	details, err := r.list(ctx, q, id)
	if err != nil {
		return BookingDetail{}, err
	}
	if len(details) == 0 {
		return BookingDetail{}, sql.ErrNoRows
	}
	return details[0], nil
}

func (r *BookingRepo) list(ctx context.Context, query string, args ...any) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []BookingDetail
	for rows.Next() {
		var (
			d      BookingDetail
			b      = &d.Booking
			status sql.NullString
			amount decimal.NullDecimal
		)
		err := rows.Scan(
			&b.ID, &b.UserID, &b.TicketID, &b.Quantity, &b.Status, &b.CreatedAt, &b.UpdatedAt,
			&d.TicketType, &d.EventTitle, &status, &amount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if status.Valid {
			s := status.String
			d.PaymentStatus = &s
		}
		if amount.Valid {
			a := amount.Decimal
			d.PaymentAmount = &a
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
