// Package booking implements the inventory-safe reservation engine:
// the availability ledger, the locked reservation transaction, the
// booking state machine and the coupled payment state machine. All
// persistence goes through the Repository interface so the engine can
// be exercised against MySQL in production and an in-memory fake in
// tests.
package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors raised by the engine. Handlers translate these into
// HTTP responses carrying the stable codes returned by Code.
var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrEventNotFound   = errors.New("event not found")

	// ErrInvalidQuantity is returned when the requested quantity is
	// outside the 1..MaxQuantity policy range.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 10")

	// ErrCapacityExceeded is the identity of CapacityExceededError for
	// errors.Is checks; the concrete error carries the amounts.
	ErrCapacityExceeded = errors.New("requested quantity exceeds available tickets")

	// ErrDuplicateActiveBooking is returned when the user already holds
	// a pending or confirmed booking on the same ticket.
	ErrDuplicateActiveBooking = errors.New("user already has an active booking for this ticket")

	// ErrEventAlreadyOccurred is returned when the ticket's event date
	// has passed. Not retryable.
	ErrEventAlreadyOccurred = errors.New("cannot book tickets for past events")

	// ErrAlreadyCancelled signals a repeated cancel call. The booking is
	// already in its terminal state; the call is a safe no-op failure.
	ErrAlreadyCancelled = errors.New("booking is already cancelled")

	// ErrInvalidTransition is returned for status moves the state
	// machine does not allow, such as confirming a cancelled booking.
	ErrInvalidTransition = errors.New("booking status transition not allowed")

	// ErrBookingNotPending is returned when a quantity amendment or a
	// gateway payment is attempted on a booking that is no longer
	// pending.
	ErrBookingNotPending = errors.New("booking is not pending")

	ErrPaymentAlreadyExists = errors.New("payment already exists for this booking")
	ErrNoPaymentFound       = errors.New("no payment found for this booking")
	ErrAlreadyRefunded      = errors.New("payment already refunded")
	ErrNotRefundable        = errors.New("can only refund successful payments")

	// ErrLockTimeout is returned when the ticket row lock could not be
	// acquired in time. The transaction is rolled back completely, so
	// callers may retry.
	ErrLockTimeout = errors.New("timed out waiting for ticket lock")
)

// CapacityExceededError reports how much was requested and how much was
// actually available under the lock. errors.Is(err, ErrCapacityExceeded)
// matches it.
type CapacityExceededError struct {
	Requested int
	Available int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("requested quantity (%d) exceeds available tickets (%d)", e.Requested, e.Available)
}

func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// Code maps an engine error to its stable machine-readable code.
// Unknown errors map to INTERNAL.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return "CAPACITY_EXCEEDED"
	case errors.Is(err, ErrDuplicateActiveBooking):
		return "DUPLICATE_ACTIVE_BOOKING"
	case errors.Is(err, ErrEventAlreadyOccurred):
		return "EVENT_ALREADY_OCCURRED"
	case errors.Is(err, ErrAlreadyCancelled):
		return "ALREADY_CANCELLED"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrBookingNotPending):
		return "BOOKING_NOT_PENDING"
	case errors.Is(err, ErrPaymentAlreadyExists):
		return "PAYMENT_ALREADY_EXISTS"
	case errors.Is(err, ErrNoPaymentFound):
		return "NO_PAYMENT_FOUND"
	case errors.Is(err, ErrAlreadyRefunded):
		return "ALREADY_REFUNDED"
	case errors.Is(err, ErrNotRefundable):
		return "NOT_REFUNDABLE"
	case errors.Is(err, ErrInvalidQuantity):
		return "INVALID_QUANTITY"
	case errors.Is(err, ErrLockTimeout):
		return "LOCK_TIMEOUT"
	case errors.Is(err, ErrTicketNotFound):
		return "TICKET_NOT_FOUND"
	case errors.Is(err, ErrBookingNotFound):
		return "BOOKING_NOT_FOUND"
	case errors.Is(err, ErrEventNotFound):
		return "EVENT_NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

// Retryable reports whether the caller may usefully retry the same
// operation. Capacity shortfalls can resolve when other bookings are
// cancelled, and lock timeouts are transient; everything else is either
// terminal or workflow misuse.
func Retryable(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrLockTimeout)
}
