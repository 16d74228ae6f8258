package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eventix/ticket-booking/internal/model"
)

// fakeRepo is an in-memory Repository. GetTicketForUpdate takes a real
// per-ticket mutex that is held until WithTx returns, so concurrent
// reservations serialize exactly like they do on the database row lock.
type fakeRepo struct {
	mu       sync.Mutex
	rowLocks sync.Map // ticket id -> *sync.Mutex

	// when set, UpdatePaymentStatus fails with this error
	paymentStatusErr error

	nextBookingID uint64
	nextPaymentID uint64

	tickets  map[uint64]model.Ticket
	events   map[uint64]model.Event
	bookings map[uint64]model.Booking
	payments map[uint64]model.Payment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tickets:  map[uint64]model.Ticket{},
		events:   map[uint64]model.Event{},
		bookings: map[uint64]model.Booking{},
		payments: map[uint64]model.Payment{},
	}
}

type fakeTxKey struct{}

type fakeTx struct {
	held []*sync.Mutex
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	tx := &fakeTx{}
	err := fn(context.WithValue(ctx, fakeTxKey{}, tx))
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	return err
}

func (f *fakeRepo) GetTicket(ctx context.Context, id uint64) (model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return model.Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeRepo) GetTicketForUpdate(ctx context.Context, id uint64) (model.Ticket, error) {
	tx, ok := ctx.Value(fakeTxKey{}).(*fakeTx)
	if !ok {
		return model.Ticket{}, errors.New("FOR UPDATE outside transaction")
	}
	v, _ := f.rowLocks.LoadOrStore(id, &sync.Mutex{})
	lock := v.(*sync.Mutex)
	lock.Lock()
	tx.held = append(tx.held, lock)
	return f.GetTicket(ctx, id)
}

func (f *fakeRepo) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	return e, nil
}

func (f *fakeRepo) SumActiveQuantities(ctx context.Context, ticketID, excludeBookingID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := 0
	for _, b := range f.bookings {
		if b.TicketID == ticketID && b.ID != excludeBookingID && b.IsActive() {
			sum += b.Quantity
		}
	}
	return sum, nil
}

func (f *fakeRepo) HasActiveBooking(ctx context.Context, userID, ticketID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.UserID == userID && b.TicketID == ticketID && b.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Mirrors the unique index on (ticket_id, active_user).
	for _, existing := range f.bookings {
		if existing.UserID == b.UserID && existing.TicketID == b.TicketID && existing.IsActive() {
			return ErrDuplicateActiveBooking
		}
	}
	f.nextBookingID++
	b.ID = f.nextBookingID
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	f.bookings[b.ID] = *b
	return nil
}

func (f *fakeRepo) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeRepo) UpdateBookingStatus(ctx context.Context, id uint64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	f.bookings[id] = b
	return nil
}

func (f *fakeRepo) UpdateBookingQuantity(ctx context.Context, id uint64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Quantity = quantity
	b.UpdatedAt = time.Now().UTC()
	f.bookings[id] = b
	return nil
}

func (f *fakeRepo) DeleteBooking(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[id]; !ok {
		return ErrBookingNotFound
	}
	delete(f.bookings, id)
	for pid, p := range f.payments {
		if p.BookingID == id {
			delete(f.payments, pid)
		}
	}
	return nil
}

func (f *fakeRepo) GetPaymentByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.payments {
		if existing.BookingID == p.BookingID {
			return ErrPaymentAlreadyExists
		}
	}
	f.nextPaymentID++
	p.ID = f.nextPaymentID
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.payments[p.ID] = *p
	return nil
}

func (f *fakeRepo) UpdatePaymentStatus(ctx context.Context, id uint64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paymentStatusErr != nil {
		return f.paymentStatusErr
	}
	p, ok := f.payments[id]
	if !ok {
		return ErrNoPaymentFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	f.payments[id] = p
	return nil
}

// seed helpers

func (f *fakeRepo) addEvent(e model.Event) model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == 0 {
		e.ID = uint64(len(f.events) + 1)
	}
	f.events[e.ID] = e
	return e
}

func (f *fakeRepo) addTicket(t model.Ticket) model.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		t.ID = uint64(len(f.tickets) + 1)
	}
	f.tickets[t.ID] = t
	return t
}

func (f *fakeRepo) addBooking(b model.Booking) model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextBookingID++
	b.ID = f.nextBookingID
	f.bookings[b.ID] = b
	return b
}

func (f *fakeRepo) addPayment(p model.Payment) model.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPaymentID++
	p.ID = f.nextPaymentID
	f.payments[p.ID] = p
	return p
}

func (f *fakeRepo) booking(id uint64) model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id]
}

func (f *fakeRepo) paymentFor(bookingID uint64) *model.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			cp := p
			return &cp
		}
	}
	return nil
}

// fakeNotifier records confirmation notices.
type fakeNotifier struct {
	mu      sync.Mutex
	notices []ConfirmedNotice
	err     error
}

func (n *fakeNotifier) BookingConfirmed(ctx context.Context, notice ConfirmedNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *fakeNotifier) all() []ConfirmedNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ConfirmedNotice, len(n.notices))
	copy(out, n.notices)
	return out
}

// fakeInvalidator records which tickets had their cache dropped.
type fakeInvalidator struct {
	mu      sync.Mutex
	tickets []uint64
}

func (i *fakeInvalidator) InvalidateTicket(ctx context.Context, ticketID uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tickets = append(i.tickets, ticketID)
}
