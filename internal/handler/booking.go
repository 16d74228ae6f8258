package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticket-booking/internal/booking"
	"github.com/eventix/ticket-booking/internal/model"
	"github.com/eventix/ticket-booking/internal/policy"
	"github.com/eventix/ticket-booking/internal/repository"
)

// BookingHandler exposes the reservation engine over HTTP. Every
// mutation goes through the engine; this layer only parses requests,
// runs policy checks and shapes responses.
type BookingHandler struct {
	Svc      *booking.Service
	Bookings *repository.BookingRepo
	Users    *repository.UserRepo
	Store    *repository.Store
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *booking.Service, bookings *repository.BookingRepo, users *repository.UserRepo, store *repository.Store) *BookingHandler {
	if svc == nil || bookings == nil || users == nil || store == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Bookings: bookings, Users: users, Store: store}
}

// Create handles POST /v1/bookings. The authenticated user reserves
// quantity units of a ticket; on success the booking comes back in
// pending status.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TicketID uint64 `json:"ticket_id"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.TicketID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_id is required"})
	}

	b, err := h.Svc.Reserve(c.Request().Context(), body.TicketID, userID, body.Quantity)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingJSON(b))
}

// List handles GET /v1/bookings. Customers and organizers see their own
// bookings; admins see everything.
func (h *BookingHandler) List(c echo.Context) error {
	actor, err := loadActor(c, h.Users)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	var details []repository.BookingDetail
	if actor.IsAdmin() {
		details, err = h.Bookings.ListAll(ctx)
	} else {
		details, err = h.Bookings.ListByUser(ctx, actor.ID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	items := make([]echo.Map, 0, len(details))
	for _, d := range details {
		items = append(items, detailJSON(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id. Visible to the owner, admins and
// the organizer of the booked event.
func (h *BookingHandler) Get(c echo.Context) error {
	b, ok, resp := h.authorize(c, func(actor *model.User, b *model.Booking, eventOwner uint64) bool {
		return policy.CanViewBooking(actor, b, eventOwner)
	})
	if !ok {
		return resp
	}

	detail, err := h.Bookings.GetDetail(c.Request().Context(), b.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, detailJSON(detail))
}

// Amend handles PATCH /v1/bookings/:id. The owner (or an admin) may
// change the quantity of a pending booking; the engine re-runs the
// availability check under the ticket lock.
func (h *BookingHandler) Amend(c echo.Context) error {
	b, ok, resp := h.authorize(c, func(actor *model.User, b *model.Booking, _ uint64) bool {
		return policy.CanCancelBooking(actor, b) // same rule: owner or admin
	})
	if !ok {
		return resp
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	amended, err := h.Svc.AmendQuantity(c.Request().Context(), b.ID, body.Quantity)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, bookingJSON(amended))
}

// Confirm handles POST /v1/bookings/:id/confirm. Admins and the event's
// organizer only. Confirmation creates the payment if none exists and
// queues the owner's notification after commit.
func (h *BookingHandler) Confirm(c echo.Context) error {
	b, ok, resp := h.authorize(c, func(actor *model.User, _ *model.Booking, eventOwner uint64) bool {
		return policy.CanConfirmBooking(actor, eventOwner)
	})
	if !ok {
		return resp
	}

	confirmed, err := h.Svc.Confirm(c.Request().Context(), b.ID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, bookingJSON(confirmed))
}

// Cancel handles POST /v1/bookings/:id/cancel. The owner or an admin
// cancels the booking; a successful payment is refunded on the way. A
// second cancel reports ALREADY_CANCELLED.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, ok, resp := h.authorize(c, func(actor *model.User, b *model.Booking, _ uint64) bool {
		return policy.CanCancelBooking(actor, b)
	})
	if !ok {
		return resp
	}

	cancelled, err := h.Svc.Cancel(c.Request().Context(), b.ID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, bookingJSON(cancelled))
}

// Pay handles POST /v1/bookings/:id/pay: the simulated gateway flow for
// the booking's owner. A successful charge confirms the booking in the
// same transaction; a failed one leaves it pending with a failed
// payment on record.
func (h *BookingHandler) Pay(c echo.Context) error {
	b, ok, resp := h.authorize(c, func(actor *model.User, b *model.Booking, _ uint64) bool {
		return actor.ID == b.UserID || actor.IsAdmin()
	})
	if !ok {
		return resp
	}

	payment, err := h.Svc.ProcessPayment(c.Request().Context(), b.ID)
	if err != nil {
		return engineError(c, err)
	}
	status := http.StatusOK
	if payment.IsFailed() {
		status = http.StatusPaymentRequired
	}
	return c.JSON(status, paymentJSON(payment))
}

// Delete handles DELETE /v1/bookings/:id. Admin only; removes the row
// and its payment outright.
func (h *BookingHandler) Delete(c echo.Context) error {
	b, ok, resp := h.authorize(c, func(actor *model.User, _ *model.Booking, _ uint64) bool {
		return policy.CanDeleteBooking(actor)
	})
	if !ok {
		return resp
	}

	if err := h.Svc.Delete(c.Request().Context(), b.ID); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// authorize loads the actor and the booking from the path, resolves the
// owning event's organizer and applies the given predicate. When the
// request must not proceed it writes the response itself and returns
// ok=false along with the handler return value.
func (h *BookingHandler) authorize(c echo.Context, allowed func(actor *model.User, b *model.Booking, eventOwner uint64) bool) (model.Booking, bool, error) {
	actor, err := loadActor(c, h.Users)
	if err != nil {
		return model.Booking{}, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, okID := pathID(c)
	if !okID {
		return model.Booking{}, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()

	b, err := h.Store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return model.Booking{}, false, c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return model.Booking{}, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	ticket, err := h.Store.GetTicket(ctx, b.TicketID)
	if err != nil {
		return b, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	event, err := h.Store.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return b, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !allowed(&actor, &b, event.CreatedBy) {
		return b, false, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return b, true, nil
}

func detailJSON(d repository.BookingDetail) echo.Map {
	m := bookingJSON(d.Booking)
	m["ticket_type"] = d.TicketType
	m["event_title"] = d.EventTitle
	if d.PaymentStatus != nil {
		m["payment"] = echo.Map{
			"status": *d.PaymentStatus,
			"amount": d.PaymentAmount,
		}
	}
	return m
}
