package booking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventix/ticket-booking/internal/clock"
	"github.com/eventix/ticket-booking/internal/model"
)

func TestGatewaySimulator(t *testing.T) {
	t.Run("zero and negative amounts always fail", func(t *testing.T) {
		g := NewGatewaySimulator(1, 1.0) // rate 1: positive amounts always succeed
		assert.False(t, g.Decide(decimal.Zero))
		assert.False(t, g.Decide(decimal.NewFromInt(-5)))
		assert.True(t, g.Decide(decimal.NewFromInt(1)))
	})

	t.Run("same seed yields the same sequence", func(t *testing.T) {
		a := NewGatewaySimulator(7, 0.5)
		b := NewGatewaySimulator(7, 0.5)
		amount := decimal.NewFromInt(10)
		for i := 0; i < 50; i++ {
			assert.Equal(t, a.Decide(amount), b.Decide(amount))
		}
	})

	t.Run("out-of-range rates fall back to the default", func(t *testing.T) {
		g := NewGatewaySimulator(1, 0)
		assert.Equal(t, DefaultSuccessRate, g.rate)
		g = NewGatewaySimulator(1, 1.5)
		assert.Equal(t, DefaultSuccessRate, g.rate)
	})
}

// paymentFixture seeds a future event, a 50.00 ticket and one pending
// booking of 2 units for user 42.
func paymentFixture(t *testing.T, opts ...Option) (*Service, *fakeRepo, model.Booking) {
	t.Helper()
	repo := newFakeRepo()
	event := repo.addEvent(model.Event{Title: "Go Conference", Venue: "Main Hall", Date: testNow.Add(24 * time.Hour), CreatedBy: 1})
	ticket := repo.addTicket(model.Ticket{EventID: event.ID, Type: "Standard", Price: decimal.NewFromFloat(50.00), Quantity: 10})
	svc := NewService(repo, clock.NewFixed(testNow), opts...)

	b, err := svc.Reserve(context.Background(), ticket.ID, 42, 2)
	require.NoError(t, err)
	return svc, repo, b
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()
	always := func(decimal.Decimal) bool { return true }
	never := func(decimal.Decimal) bool { return false }

	t.Run("success confirms the booking atomically", func(t *testing.T) {
		notifier := &fakeNotifier{}
		svc, repo, b := paymentFixture(t, WithOutcome(always), WithNotifier(notifier))

		payment, err := svc.ProcessPayment(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentSuccess, payment.Status)
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(100)), "amount = %s", payment.Amount)
		assert.Equal(t, model.BookingConfirmed, repo.booking(b.ID).Status)
		assert.Len(t, notifier.all(), 1)
	})

	t.Run("failure records the payment and leaves the booking pending", func(t *testing.T) {
		notifier := &fakeNotifier{}
		svc, repo, b := paymentFixture(t, WithOutcome(never), WithNotifier(notifier))

		payment, err := svc.ProcessPayment(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentFailed, payment.Status)
		assert.Equal(t, model.BookingPending, repo.booking(b.ID).Status)
		assert.Empty(t, notifier.all())
	})

	t.Run("a booking pays at most once", func(t *testing.T) {
		svc, _, b := paymentFixture(t, WithOutcome(never))

		_, err := svc.ProcessPayment(ctx, b.ID)
		require.NoError(t, err)

		_, err = svc.ProcessPayment(ctx, b.ID)
		assert.ErrorIs(t, err, ErrPaymentAlreadyExists)
	})

	t.Run("unknown booking", func(t *testing.T) {
		svc, _, _ := paymentFixture(t)
		_, err := svc.ProcessPayment(ctx, 999)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("a cancelled booking cannot be resurrected by payment", func(t *testing.T) {
		repo := newFakeRepo()
		event := repo.addEvent(model.Event{Title: "Go Conference", Venue: "Main Hall", Date: testNow.Add(24 * time.Hour), CreatedBy: 1})
		ticket := repo.addTicket(model.Ticket{EventID: event.ID, Type: "Standard", Price: decimal.NewFromFloat(50.00), Quantity: 2})
		svc := NewService(repo, clock.NewFixed(testNow), WithOutcome(always))

		// User 42 takes the whole stock, cancels, and user 43 rebooks
		// the freed capacity before 42's payment arrives.
		stale, err := svc.Reserve(ctx, ticket.ID, 42, 2)
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, stale.ID)
		require.NoError(t, err)
		_, err = svc.Reserve(ctx, ticket.ID, 43, 2)
		require.NoError(t, err)

		_, err = svc.ProcessPayment(ctx, stale.ID)
		require.ErrorIs(t, err, ErrBookingNotPending)
		assert.Equal(t, model.BookingCancelled, repo.booking(stale.ID).Status)
		assert.Nil(t, repo.paymentFor(stale.ID))

		active, err := repo.SumActiveQuantities(ctx, ticket.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, active, "the cancelled booking must not re-enter the ledger")
	})

	t.Run("a confirmed booking is not payable", func(t *testing.T) {
		svc, repo, b := paymentFixture(t, WithOutcome(always))
		_, err := svc.Confirm(ctx, b.ID)
		require.NoError(t, err)

		_, err = svc.ProcessPayment(ctx, b.ID)
		assert.ErrorIs(t, err, ErrBookingNotPending)
		assert.Equal(t, model.BookingConfirmed, repo.booking(b.ID).Status)
	})
}

func TestCreateConfirmedPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a successful payment for price times quantity", func(t *testing.T) {
		svc, repo, b := paymentFixture(t)

		payment, err := svc.CreateConfirmedPayment(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentSuccess, payment.Status)
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(100)), "amount = %s", payment.Amount)
		require.NotNil(t, repo.paymentFor(b.ID))
	})

	t.Run("rejects a second payment", func(t *testing.T) {
		svc, _, b := paymentFixture(t)

		_, err := svc.CreateConfirmedPayment(ctx, b.ID)
		require.NoError(t, err)

		_, err = svc.CreateConfirmedPayment(ctx, b.ID)
		assert.ErrorIs(t, err, ErrPaymentAlreadyExists)
	})
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds and cancels together", func(t *testing.T) {
		svc, repo, b := paymentFixture(t, WithOutcome(func(decimal.Decimal) bool { return true }))

		_, err := svc.ProcessPayment(ctx, b.ID)
		require.NoError(t, err)

		refunded, err := svc.Refund(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentRefunded, refunded.Status)
		assert.Equal(t, model.BookingCancelled, repo.booking(b.ID).Status)
	})

	t.Run("no payment", func(t *testing.T) {
		svc, _, b := paymentFixture(t)
		_, err := svc.Refund(ctx, b.ID)
		assert.ErrorIs(t, err, ErrNoPaymentFound)
	})

	t.Run("failed payments are not refundable", func(t *testing.T) {
		svc, _, b := paymentFixture(t, WithOutcome(func(decimal.Decimal) bool { return false }))
		_, err := svc.ProcessPayment(ctx, b.ID)
		require.NoError(t, err)

		_, err = svc.Refund(ctx, b.ID)
		assert.ErrorIs(t, err, ErrNotRefundable)
	})

	t.Run("a refund happens once", func(t *testing.T) {
		svc, _, b := paymentFixture(t, WithOutcome(func(decimal.Decimal) bool { return true }))
		_, err := svc.ProcessPayment(ctx, b.ID)
		require.NoError(t, err)
		_, err = svc.Refund(ctx, b.ID)
		require.NoError(t, err)

		_, err = svc.Refund(ctx, b.ID)
		assert.ErrorIs(t, err, ErrAlreadyRefunded)
	})
}
