package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eventix/ticket-booking/internal/handler"
	"github.com/eventix/ticket-booking/internal/middleware"
	"github.com/eventix/ticket-booking/internal/model"
)

// Handlers bundles every handler the router wires up. Keeping them in
// one struct keeps the registration signatures short.
type Handlers struct {
	Auth    *handler.AuthHandler
	Event   *handler.EventHandler
	Ticket  *handler.TicketHandler
	Booking *handler.BookingHandler
}

// RateLimitConfig carries the Redis client and the per-user budget for
// the reservation endpoint. A nil Client disables limiting.
type RateLimitConfig struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
}

// Register wires all routes on the provided Echo instance.
//
// Browse endpoints (events, tickets, availability) are public so that
// guests can look around before registering. Everything that creates or
// mutates state lives behind JWT auth under /v1.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rl RateLimitConfig) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Unauthenticated auth operations.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Public browse endpoints. No middleware; handlers return only
	// display data.
	e.GET("/v1/events", h.Event.List)
	e.GET("/v1/events/:id", h.Event.Get)
	e.GET("/v1/events/:id/tickets", h.Ticket.ListByEvent)
	e.GET("/v1/tickets/:id", h.Ticket.Get)
	e.GET("/v1/tickets/:id/availability", h.Ticket.Availability)

	// Protected endpoints. JWTAuth validates the access token and
	// RequireRole rejects unknown roles before any handler runs.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(model.RoleCustomer, model.RoleOrganizer, model.RoleAdmin))

	v1.GET("/me", h.Auth.Me)

	// Event and ticket management. Role checks beyond authentication
	// happen inside the handlers via the policy package, since they
	// depend on resource ownership and not just the role claim.
	v1.POST("/events", h.Event.Create)
	v1.POST("/events/:id/tickets", h.Ticket.Create)

	// The reservation endpoint carries the rate limiter; it is the one
	// route a client can hammer in a sale rush.
	reserve := []echo.MiddlewareFunc{}
	if rl.Client != nil && rl.Limit > 0 {
		reserve = append(reserve, middleware.RateLimit(rl.Client, rl.Limit, rl.Window))
	}
	v1.POST("/bookings", h.Booking.Create, reserve...)

	v1.GET("/bookings", h.Booking.List)
	v1.GET("/bookings/:id", h.Booking.Get)
	v1.PATCH("/bookings/:id", h.Booking.Amend)
	v1.POST("/bookings/:id/confirm", h.Booking.Confirm)
	v1.POST("/bookings/:id/cancel", h.Booking.Cancel)
	v1.POST("/bookings/:id/pay", h.Booking.Pay)
	v1.DELETE("/bookings/:id", h.Booking.Delete)
}
