package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&CapacityExceededError{Requested: 5, Available: 2}, "CAPACITY_EXCEEDED"},
		{ErrCapacityExceeded, "CAPACITY_EXCEEDED"},
		{ErrDuplicateActiveBooking, "DUPLICATE_ACTIVE_BOOKING"},
		{ErrEventAlreadyOccurred, "EVENT_ALREADY_OCCURRED"},
		{ErrAlreadyCancelled, "ALREADY_CANCELLED"},
		{ErrInvalidTransition, "INVALID_TRANSITION"},
		{ErrBookingNotPending, "BOOKING_NOT_PENDING"},
		{ErrPaymentAlreadyExists, "PAYMENT_ALREADY_EXISTS"},
		{ErrNoPaymentFound, "NO_PAYMENT_FOUND"},
		{ErrAlreadyRefunded, "ALREADY_REFUNDED"},
		{ErrNotRefundable, "NOT_REFUNDABLE"},
		{ErrInvalidQuantity, "INVALID_QUANTITY"},
		{ErrLockTimeout, "LOCK_TIMEOUT"},
		{ErrTicketNotFound, "TICKET_NOT_FOUND"},
		{ErrBookingNotFound, "BOOKING_NOT_FOUND"},
		{ErrEventNotFound, "EVENT_NOT_FOUND"},
		{errors.New("disk on fire"), "INTERNAL"},
		// wrapped errors still map
		{fmt.Errorf("reserve: %w", ErrLockTimeout), "LOCK_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&CapacityExceededError{Requested: 2, Available: 1}))
	assert.True(t, Retryable(ErrLockTimeout))
	assert.False(t, Retryable(ErrDuplicateActiveBooking))
	assert.False(t, Retryable(ErrEventAlreadyOccurred))
	assert.False(t, Retryable(ErrAlreadyCancelled))
	assert.False(t, Retryable(errors.New("anything else")))
}

func TestCapacityExceededError(t *testing.T) {
	err := &CapacityExceededError{Requested: 5, Available: 2}
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NotErrorIs(t, err, ErrDuplicateActiveBooking)
	assert.Equal(t, "requested quantity (5) exceeds available tickets (2)", err.Error())
}
