package booking

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eventix/ticket-booking/internal/clock"
	"github.com/eventix/ticket-booking/internal/model"
)

// MaxQuantity caps how many units a single booking may reserve. It is a
// policy value, not a capacity one; availability is enforced separately.
const MaxQuantity = 10

// Repository is the persistence collaborator for the engine. WithTx
// must run fn inside a single atomic transaction and roll back on any
// error; GetTicketForUpdate must acquire an exclusive row lock on the
// ticket that is held until the transaction ends. Implementations map
// lock-wait timeouts to ErrLockTimeout and violations of the active
// booking unique index to ErrDuplicateActiveBooking.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetTicket(ctx context.Context, id uint64) (model.Ticket, error)
	GetTicketForUpdate(ctx context.Context, id uint64) (model.Ticket, error)
	GetEvent(ctx context.Context, id uint64) (model.Event, error)

	// SumActiveQuantities sums the quantities of pending and confirmed
	// bookings on the ticket. A non-zero excludeBookingID leaves that
	// booking out of the sum, which is how quantity amendments compute
	// availability without counting their own current quantity.
	SumActiveQuantities(ctx context.Context, ticketID, excludeBookingID uint64) (int, error)
	HasActiveBooking(ctx context.Context, userID, ticketID uint64) (bool, error)

	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uint64, status string) error
	UpdateBookingQuantity(ctx context.Context, id uint64, quantity int) error
	DeleteBooking(ctx context.Context, id uint64) error

	// GetPaymentByBooking returns nil, nil when the booking has no payment.
	GetPaymentByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
	UpdatePaymentStatus(ctx context.Context, id uint64, status string) error
}

// ConfirmedNotice is handed to the Notifier after a booking has been
// confirmed and committed. It carries enough context for downstream
// delivery without another database round trip.
type ConfirmedNotice struct {
	BookingID  uint64          `json:"booking_id"`
	UserID     uint64          `json:"user_id"`
	TicketID   uint64          `json:"ticket_id"`
	TicketType string          `json:"ticket_type"`
	EventTitle string          `json:"event_title"`
	Quantity   int             `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Notifier queues a confirmation notice for asynchronous delivery. The
// engine never consults the outcome; delivery failures must not affect
// the already-committed confirmation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, n ConfirmedNotice) error
}

// Invalidator drops the cached display availability of a ticket after a
// write that changed its ledger.
type Invalidator interface {
	InvalidateTicket(ctx context.Context, ticketID uint64)
}

// Service wires the reservation transaction, the booking state machine
// and the payment state machine to a Repository. Concurrency control is
// delegated to the repository's per-ticket row lock; the service itself
// holds no mutable state and is safe for concurrent use.
type Service struct {
	repo     Repository
	clock    clock.Clock
	notifier Notifier
	cache    Invalidator
	outcome  Outcome
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the notification collaborator.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithInvalidator sets the availability cache invalidation collaborator.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.cache = inv }
}

// WithOutcome overrides the payment outcome strategy used by
// ProcessPayment. Tests install a deterministic one.
func WithOutcome(o Outcome) Option {
	return func(s *Service) {
		if o != nil {
			s.outcome = o
		}
	}
}

// NewService constructs the engine. The default payment outcome is the
// 95% gateway simulator seeded from the current time.
func NewService(repo Repository, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		clock:   clk,
		outcome: NewGatewaySimulator(time.Now().UnixNano(), DefaultSuccessRate).Decide,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve attempts to book quantity units of a ticket for a user. It
// validates the policy cap and the event date outside the lock for fast
// rejection, then serializes on the ticket row: availability and the
// double-booking guard are both re-checked after the lock is acquired,
// because values read before it are not trustworthy. On success the
// booking is returned in pending status; on any error nothing persists.
func (s *Service) Reserve(ctx context.Context, ticketID, userID uint64, quantity int) (model.Booking, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return model.Booking{}, ErrInvalidQuantity
	}

	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return model.Booking{}, err
	}
	event, err := s.repo.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return model.Booking{}, err
	}
	// The event date is immutable after creation, so this check does
	// not need to be repeated inside the lock.
	if event.HasOccurred(s.clock.Now()) {
		return model.Booking{}, ErrEventAlreadyOccurred
	}

	// Early rejection for fast feedback; racy on its own, so the same
	// check runs again inside the transaction.
	if active, err := s.repo.HasActiveBooking(ctx, userID, ticketID); err != nil {
		return model.Booking{}, err
	} else if active {
		return model.Booking{}, ErrDuplicateActiveBooking
	}

	var booking model.Booking
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		locked, err := s.repo.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		active, err := s.repo.SumActiveQuantities(txCtx, ticketID, 0)
		if err != nil {
			return err
		}
		available := Available(locked.Quantity, active)
		if quantity > available {
			return &CapacityExceededError{Requested: quantity, Available: available}
		}
		dup, err := s.repo.HasActiveBooking(txCtx, userID, ticketID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateActiveBooking
		}
		booking = model.Booking{
			UserID:   userID,
			TicketID: ticketID,
			Quantity: quantity,
			Status:   model.BookingPending,
		}
		return s.repo.CreateBooking(txCtx, &booking)
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.invalidate(ctx, ticketID)
	return booking, nil
}

// AmendQuantity changes the reserved quantity of a pending booking. It
// runs under the same ticket lock as Reserve and computes availability
// excluding the booking's own current quantity, so shrinking always
// succeeds and growing is bounded by what other bookings left over.
func (s *Service) AmendQuantity(ctx context.Context, bookingID uint64, quantity int) (model.Booking, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return model.Booking{}, ErrInvalidQuantity
	}

	var booking model.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsPending() {
			return ErrBookingNotPending
		}
		ticket, err := s.repo.GetTicketForUpdate(txCtx, b.TicketID)
		if err != nil {
			return err
		}
		others, err := s.repo.SumActiveQuantities(txCtx, b.TicketID, b.ID)
		if err != nil {
			return err
		}
		available := Available(ticket.Quantity, others)
		if quantity > available {
			return &CapacityExceededError{Requested: quantity, Available: available}
		}
		if err := s.repo.UpdateBookingQuantity(txCtx, b.ID, quantity); err != nil {
			return err
		}
		b.Quantity = quantity
		booking = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.invalidate(ctx, booking.TicketID)
	return booking, nil
}

// Confirm moves a pending booking to confirmed. If the booking has no
// payment yet, a successful payment for price × quantity is created in
// the same transaction (the manual confirmation path never simulates
// failure). The confirmation notice is queued only after commit so that
// delivery problems cannot roll the transition back, and no lock is
// held while publishing.
func (s *Service) Confirm(ctx context.Context, bookingID uint64) (model.Booking, error) {
	var (
		booking model.Booking
		notice  ConfirmedNotice
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsPending() {
			return ErrInvalidTransition
		}
		ticket, err := s.repo.GetTicket(txCtx, b.TicketID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateBookingStatus(txCtx, b.ID, model.BookingConfirmed); err != nil {
			return err
		}
		b.Status = model.BookingConfirmed

		amount := b.TotalAmount(&ticket)
		existing, err := s.repo.GetPaymentByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			payment := model.Payment{
				BookingID: b.ID,
				Amount:    amount,
				Status:    model.PaymentSuccess,
			}
			if err := s.repo.CreatePayment(txCtx, &payment); err != nil {
				return err
			}
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
		booking = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.notify(ctx, notice)
	return booking, nil
}

// Cancel moves a booking to cancelled, from either pending or
// confirmed. A successful payment is refunded first in the same
// transaction; if that refund fails the error is logged and swallowed,
// because a booking stuck active is worse than a payment left for
// manual reconciliation. Cancelling an already-cancelled booking fails
// with ErrAlreadyCancelled and changes nothing.
func (s *Service) Cancel(ctx context.Context, bookingID uint64) (model.Booking, error) {
	var booking model.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		if b.IsCancelled() {
			return ErrAlreadyCancelled
		}
		payment, err := s.repo.GetPaymentByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		if payment != nil && payment.IsSuccess() {
			if err := s.repo.UpdatePaymentStatus(txCtx, payment.ID, model.PaymentRefunded); err != nil {
				log.Printf("booking: refund during cancel failed for booking %d: %v", b.ID, err)
			}
		}
		if err := s.repo.UpdateBookingStatus(txCtx, b.ID, model.BookingCancelled); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		booking = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.invalidate(ctx, booking.TicketID)
	return booking, nil
}

// Delete removes a booking entirely. This is the administrative escape
// hatch: the row and its payment disappear and the booking simply stops
// contributing to the ledger.
func (s *Service) Delete(ctx context.Context, bookingID uint64) error {
	var ticketID uint64
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBooking(txCtx, bookingID)
		if err != nil {
			return err
		}
		ticketID = b.TicketID
		return s.repo.DeleteBooking(txCtx, b.ID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, ticketID)
	return nil
}

// HasActiveBooking exposes the double-booking guard as a lock-free
// predicate, used by handlers for early feedback.
func (s *Service) HasActiveBooking(ctx context.Context, userID, ticketID uint64) (bool, error) {
	return s.repo.HasActiveBooking(ctx, userID, ticketID)
}

func (s *Service) invalidate(ctx context.Context, ticketID uint64) {
	if s.cache != nil {
		s.cache.InvalidateTicket(ctx, ticketID)
	}
}

func (s *Service) notify(ctx context.Context, n ConfirmedNotice) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingConfirmed(ctx, n); err != nil {
		log.Printf("booking: confirmation notice for booking %d not queued: %v", n.BookingID, err)
	}
}
