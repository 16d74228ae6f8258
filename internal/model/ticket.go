package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket represents a purchasable allotment for an event, one row in
// the `tickets` table. Quantity is the total stock and is immutable
// after creation; how much of it remains available is always derived
// from the bookings table, never stored here.
//
// Fields:
//  ID        - primary key identifier.
//  EventID   - event this allotment belongs to.
//  Type      - ticket type label (VIP, Standard, ...).
//  Price     - unit price, non-negative decimal.
//  Quantity  - total stock, integer >= 0.
//  CreatedAt - timestamp of creation.
//  UpdatedAt - timestamp of last update.
type Ticket struct {
	ID        uint64          // tickets.id
	EventID   uint64          // tickets.event_id
	Type      string          // tickets.type
	Price     decimal.Decimal // tickets.price
	Quantity  int             // tickets.quantity
	CreatedAt time.Time       // tickets.created_at
	UpdatedAt time.Time       // tickets.updated_at
}
