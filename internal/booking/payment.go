package booking

import (
	"context"
	"log"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/eventix/ticket-booking/internal/model"
)

// DefaultSuccessRate is the probability that the simulated gateway
// approves a charge with a positive amount.
const DefaultSuccessRate = 0.95

// Outcome decides whether a simulated charge of the given amount
// succeeds. Implementations must be safe for concurrent use.
type Outcome func(amount decimal.Decimal) bool

// GatewaySimulator is the default Outcome: charges of zero or less
// always fail, positive amounts succeed with the configured rate. The
// random source is seeded explicitly so tests can pin the sequence.
type GatewaySimulator struct {
	mu   sync.Mutex
	rand *rand.Rand
	rate float64
}

// NewGatewaySimulator builds a simulator with the given seed and
// success rate. Rates outside (0,1] fall back to DefaultSuccessRate.
func NewGatewaySimulator(seed int64, rate float64) *GatewaySimulator {
	if rate <= 0 || rate > 1 {
		rate = DefaultSuccessRate
	}
	return &GatewaySimulator{rand: rand.New(rand.NewSource(seed)), rate: rate}
}

// Decide implements Outcome.
func (g *GatewaySimulator) Decide(amount decimal.Decimal) bool {
	if amount.Sign() <= 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rand.Float64() < g.rate
}

// CreateConfirmedPayment materializes a successful payment for a
// booking that is being confirmed manually. It fails if the booking
// already has a payment; it never simulates a gateway outcome. The
// amount is the ticket price times the booking's current quantity,
// fixed from this moment on.
func (s *Service) CreateConfirmedPayment(ctx context.Context, bookingID uint64) (model.Payment, error) {
	var payment model.Payment
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		existing, err := s.repo.GetPaymentByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrPaymentAlreadyExists
		}
		ticket, err := s.repo.GetTicket(txCtx, b.TicketID)
		if err != nil {
			return err
		}
		payment = model.Payment{
			BookingID: b.ID,
			Amount:    b.TotalAmount(&ticket),
			Status:    model.PaymentSuccess,
		}
		return s.repo.CreatePayment(txCtx, &payment)
	})
	if err != nil {
		return model.Payment{}, err
	}
	log.Printf("payment: confirmed payment of %s created for booking %d", payment.Amount, bookingID)
	return payment, nil
}

// ProcessPayment runs the simulated gateway flow for a pending booking.
// The outcome strategy decides success or failure; the payment row is
// created either way, and only a success also confirms the booking,
// atomically in the same transaction. A booking that already has a
// payment is rejected with ErrPaymentAlreadyExists; a booking that is
// no longer pending is rejected with ErrBookingNotPending, so a
// cancelled booking can never buy its way back into the ledger.
func (s *Service) ProcessPayment(ctx context.Context, bookingID uint64) (model.Payment, error) {
	var (
		payment model.Payment
		notice  ConfirmedNotice
		success bool
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsPending() {
			return ErrBookingNotPending
		}
		existing, err := s.repo.GetPaymentByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrPaymentAlreadyExists
		}
		ticket, err := s.repo.GetTicket(txCtx, b.TicketID)
		if err != nil {
			return err
		}
		amount := b.TotalAmount(&ticket)

		status := model.PaymentFailed
		success = s.outcome(amount)
		if success {
			status = model.PaymentSuccess
		}
		payment = model.Payment{
			BookingID: b.ID,
			Amount:    amount,
			Status:    status,
		}
		if err := s.repo.CreatePayment(txCtx, &payment); err != nil {
			return err
		}
		if !success {
			return nil
		}
		if err := s.repo.UpdateBookingStatus(txCtx, b.ID, model.BookingConfirmed); err != nil {
			return err
		}
		event, err := s.repo.GetEvent(txCtx, ticket.EventID)
		if err != nil {
			return err
		}
		notice = ConfirmedNotice{
			BookingID:  b.ID,
			UserID:     b.UserID,
			TicketID:   b.TicketID,
			TicketType: ticket.Type,
			EventTitle: event.Title,
			Quantity:   b.Quantity,
			Amount:     amount,
			OccurredAt: s.clock.Now(),
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	log.Printf("payment: processed booking %d amount %s status %s", bookingID, payment.Amount, payment.Status)
	if success {
		s.notify(ctx, notice)
	}
	return payment, nil
}

// Refund reverses a successful payment and cancels its booking in the
// same transaction, so payment and booking status cannot diverge. Only
// successful payments are refundable: a failed payment returns
// ErrNotRefundable, an already-refunded one ErrAlreadyRefunded and a
// missing one ErrNoPaymentFound.
func (s *Service) Refund(ctx context.Context, bookingID uint64) (model.Payment, error) {
	var (
		payment  model.Payment
		ticketID uint64
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		existing, err := s.repo.GetPaymentByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNoPaymentFound
		}
		if existing.IsRefunded() {
			return ErrAlreadyRefunded
		}
		if !existing.IsSuccess() {
			return ErrNotRefundable
		}
		if err := s.repo.UpdatePaymentStatus(txCtx, existing.ID, model.PaymentRefunded); err != nil {
			return err
		}
		if err := s.repo.UpdateBookingStatus(txCtx, b.ID, model.BookingCancelled); err != nil {
			return err
		}
		existing.Status = model.PaymentRefunded
		payment = *existing
		ticketID = b.TicketID
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	s.invalidate(ctx, ticketID)
	log.Printf("payment: refunded %s for booking %d", payment.Amount, bookingID)
	return payment, nil
}
