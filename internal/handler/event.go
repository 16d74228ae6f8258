package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticket-booking/internal/clock"
	"github.com/eventix/ticket-booking/internal/model"
	"github.com/eventix/ticket-booking/internal/policy"
	"github.com/eventix/ticket-booking/internal/repository"
)

// EventHandler serves event creation and browsing. Events are the
// parents of tickets; their dates gate new reservations.
type EventHandler struct {
	Events *repository.EventRepo
	Users  *repository.UserRepo
	Clock  clock.Clock
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *repository.EventRepo, users *repository.UserRepo, clk clock.Clock) *EventHandler {
	if events == nil || users == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Users: users, Clock: clk}
}

// Create handles POST /v1/events. Organizers and admins only; the date
// must lie in the future and is immutable afterwards.
func (h *EventHandler) Create(c echo.Context) error {
	actor, err := loadActor(c, h.Users)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !policy.CanCreateEvent(&actor) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var body struct {
		Title string    `json:"title"`
		Venue string    `json:"venue"`
		Date  time.Time `json:"date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Title == "" || body.Venue == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and venue are required"})
	}
	if !body.Date.After(h.Clock.Now()) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "event date must be in the future"})
	}

	event := model.Event{
		Title:     body.Title,
		Venue:     body.Venue,
		Date:      body.Date.UTC(),
		CreatedBy: actor.ID,
	}
	if err := h.Events.Create(c.Request().Context(), &event); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, eventJSON(event))
}

// Get handles GET /v1/events/:id, open to everyone.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	event, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, eventJSON(event))
}

// List handles GET /v1/events, open to everyone.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Events.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]echo.Map, 0, len(events))
	for _, e := range events {
		items = append(items, eventJSON(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func eventJSON(e model.Event) echo.Map {
	return echo.Map{
		"id":         e.ID,
		"title":      e.Title,
		"venue":      e.Venue,
		"date":       e.Date,
		"created_by": e.CreatedBy,
	}
}
