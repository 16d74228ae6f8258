package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses. A booking is created pending, may be confirmed or
// cancelled, and never leaves cancelled.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking records a reservation of N units of one ticket by one user,
// one row in the `bookings` table. A pending or confirmed booking
// consumes inventory; a cancelled one does not. At most one active
// booking may exist per (user, ticket) pair, enforced both in the
// reservation transaction and by a unique index in the schema.
//
// Fields:
//  ID        - primary key identifier.
//  UserID    - user who made the booking.
//  TicketID  - ticket being booked.
//  Quantity  - number of units reserved (1..10).
//  Status    - pending, confirmed or cancelled.
//  CreatedAt - timestamp of creation.
//  UpdatedAt - timestamp of last update.
type Booking struct {
	ID        uint64    // bookings.id
	UserID    uint64    // bookings.user_id
	TicketID  uint64    // bookings.ticket_id
	Quantity  int       // bookings.quantity
	Status    string    // bookings.status
	CreatedAt time.Time // bookings.created_at
	UpdatedAt time.Time // bookings.updated_at
}

// IsPending reports whether the booking is still awaiting confirmation.
func (b *Booking) IsPending() bool { return b.Status == BookingPending }

// IsConfirmed reports whether the booking has been confirmed.
func (b *Booking) IsConfirmed() bool { return b.Status == BookingConfirmed }

// IsCancelled reports whether the booking has been cancelled.
func (b *Booking) IsCancelled() bool { return b.Status == BookingCancelled }

// IsActive reports whether the booking still consumes inventory.
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// TotalAmount computes the price of the booking from the ticket's unit
// price and the booked quantity.
func (b *Booking) TotalAmount(ticket *Ticket) decimal.Decimal {
	return ticket.Price.Mul(decimal.NewFromInt(int64(b.Quantity)))
}
