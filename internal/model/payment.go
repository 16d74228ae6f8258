package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses. A refunded payment never re-enters success.
const (
	PaymentSuccess  = "success"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Payment is the at-most-one payment attached to a booking, one row in
// the `payments` table (booking_id is unique). The amount is computed
// from ticket price and booking quantity when the payment is created
// and is immutable afterwards. Payments come into existence only
// through booking state transitions, never directly.
//
// Fields:
//  ID        - primary key identifier.
//  BookingID - owning booking (unique).
//  Amount    - charged amount, fixed at creation.
//  Status    - success, failed or refunded.
//  CreatedAt - timestamp of creation.
//  UpdatedAt - timestamp of last update.
type Payment struct {
	ID        uint64          // payments.id
	BookingID uint64          // payments.booking_id
	Amount    decimal.Decimal // payments.amount
	Status    string          // payments.status
	CreatedAt time.Time       // payments.created_at
	UpdatedAt time.Time       // payments.updated_at
}

// IsSuccess reports whether the payment went through.
func (p *Payment) IsSuccess() bool { return p.Status == PaymentSuccess }

// IsFailed reports whether the payment attempt failed.
func (p *Payment) IsFailed() bool { return p.Status == PaymentFailed }

// IsRefunded reports whether the payment has been refunded.
func (p *Payment) IsRefunded() bool { return p.Status == PaymentRefunded }
