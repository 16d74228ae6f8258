package handler // handler defines the HTTP handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticket-booking/internal/booking"
	"github.com/eventix/ticket-booking/internal/model"
	"github.com/eventix/ticket-booking/internal/repository"
)

// getUserID extracts the user_id stored by the JWT middleware and
// converts it to uint64. JWT numeric claims round-trip as float64, so
// several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// loadActor resolves the authenticated user record for policy checks.
func loadActor(c echo.Context, users *repository.UserRepo) (model.User, error) {
	id, err := getUserID(c)
	if err != nil {
		return model.User{}, err
	}
	return users.GetByID(c.Request().Context(), id)
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// engineError translates an engine error into the JSON error envelope:
// a human-readable message, the stable machine-readable code, and a
// retryable flag so clients know whether re-prompting the user makes
// sense. CapacityExceeded additionally carries the amounts.
func engineError(c echo.Context, err error) error {
	body := echo.Map{
		"error":     err.Error(),
		"code":      booking.Code(err),
		"retryable": booking.Retryable(err),
	}
	var capErr *booking.CapacityExceededError
	if errors.As(err, &capErr) {
		body["requested"] = capErr.Requested
		body["available"] = capErr.Available
	}
	return c.JSON(engineStatus(err), body)
}

func engineStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrTicketNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, booking.ErrEventNotFound),
		errors.Is(err, booking.ErrNoPaymentFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrEventAlreadyOccurred):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrCapacityExceeded),
		errors.Is(err, booking.ErrDuplicateActiveBooking),
		errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrBookingNotPending),
		errors.Is(err, booking.ErrPaymentAlreadyExists),
		errors.Is(err, booking.ErrAlreadyRefunded),
		errors.Is(err, booking.ErrNotRefundable):
		return http.StatusConflict
	case errors.Is(err, booking.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// bookingJSON shapes a booking for responses.
func bookingJSON(b model.Booking) echo.Map {
	return echo.Map{
		"id":         b.ID,
		"user_id":    b.UserID,
		"ticket_id":  b.TicketID,
		"quantity":   b.Quantity,
		"status":     b.Status,
		"created_at": b.CreatedAt,
		"updated_at": b.UpdatedAt,
	}
}

// paymentJSON shapes a payment for responses.
func paymentJSON(p model.Payment) echo.Map {
	return echo.Map{
		"id":         p.ID,
		"booking_id": p.BookingID,
		"amount":     p.Amount,
		"status":     p.Status,
	}
}
