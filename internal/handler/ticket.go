package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/eventix/ticket-booking/internal/booking"
	"github.com/eventix/ticket-booking/internal/cache"
	"github.com/eventix/ticket-booking/internal/model"
	"github.com/eventix/ticket-booking/internal/policy"
	"github.com/eventix/ticket-booking/internal/repository"
)

// TicketHandler serves ticket creation and browsing, including the
// cached display availability. Reservations themselves live on
// BookingHandler.
type TicketHandler struct {
	Tickets *repository.TicketRepo
	Events  *repository.EventRepo
	Users   *repository.UserRepo
	Svc     *booking.Service
	Cache   *cache.Availability
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(tickets *repository.TicketRepo, events *repository.EventRepo, users *repository.UserRepo, svc *booking.Service, avail *cache.Availability) *TicketHandler {
	if tickets == nil || events == nil || users == nil || svc == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets, Events: events, Users: users, Svc: svc, Cache: avail}
}

// Create handles POST /v1/events/:id/tickets. Admins and the event's
// organizer only. The stock quantity is fixed at creation; resizing an
// allotment is not supported.
func (h *TicketHandler) Create(c echo.Context) error {
	actor, err := loadActor(c, h.Users)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	event, err := h.Events.GetByID(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !policy.CanCreateTicket(&actor, &event) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var body struct {
		Type     string          `json:"type"`
		Price    decimal.Decimal `json:"price"`
		Quantity int             `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Type == "" || body.Quantity < 0 || body.Price.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type, a non-negative price and a non-negative quantity are required"})
	}

	ticket := model.Ticket{
		EventID:  eventID,
		Type:     body.Type,
		Price:    body.Price,
		Quantity: body.Quantity,
	}
	if err := h.Tickets.Create(c.Request().Context(), &ticket); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, ticketJSON(ticket, ticket.Quantity))
}

// ListByEvent handles GET /v1/events/:id/tickets, open to everyone.
// Availability comes from one consistent read per listing.
func (h *TicketHandler) ListByEvent(c echo.Context) error {
	eventID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	tickets, err := h.Tickets.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]echo.Map, 0, len(tickets))
	for _, ta := range tickets {
		items = append(items, ticketJSON(ta.Ticket, ta.Available))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/tickets/:id, open to everyone. The response
// includes the derived availability, served from the cache when fresh.
func (h *TicketHandler) Get(c echo.Context) error {
	ticketID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	ctx := c.Request().Context()

	ticket, err := h.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, booking.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	available, hit := 0, false
	if h.Cache != nil {
		available, hit = h.Cache.Get(ctx, ticketID)
	}
	if !hit {
		if available, err = h.Svc.AvailableQuantity(ctx, ticketID); err != nil {
			return engineError(c, err)
		}
		if h.Cache != nil {
			h.Cache.Set(ctx, ticketID, available)
		}
	}
	return c.JSON(http.StatusOK, ticketJSON(ticket, available))
}

// Availability handles GET /v1/tickets/:id/availability. The value is
// served from the per-ticket cache when fresh; it is a display figure
// only and write paths never consult it.
func (h *TicketHandler) Availability(c echo.Context) error {
	ticketID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	ctx := c.Request().Context()

	if h.Cache != nil {
		if n, hit := h.Cache.Get(ctx, ticketID); hit {
			return c.JSON(http.StatusOK, echo.Map{"ticket_id": ticketID, "available": n, "cached": true})
		}
	}
	available, err := h.Svc.AvailableQuantity(ctx, ticketID)
	if err != nil {
		return engineError(c, err)
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, ticketID, available)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket_id": ticketID, "available": available, "cached": false})
}

func ticketJSON(t model.Ticket, available int) echo.Map {
	return echo.Map{
		"id":        t.ID,
		"event_id":  t.EventID,
		"type":      t.Type,
		"price":     t.Price,
		"quantity":  t.Quantity,
		"available": available,
	}
}
