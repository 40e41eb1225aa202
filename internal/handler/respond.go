// Package handler exposes the booking core over HTTP.  Handlers are
// thin: bind and shape-check the request, resolve the caller identity,
// call the reservation core, and translate its error kinds onto HTTP
// statuses.  All domain decisions live in internal/booking.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/booking"
)

// statusFor maps booking error kinds onto HTTP statuses.  conflict-state
// defaults to 409; the release-hold handler narrows it to 400 where the
// API contract demands it.
func statusFor(kind string) int {
	switch kind {
	case booking.KindValidation:
		return http.StatusBadRequest
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindConflictBooked, booking.KindConflictHeld, booking.KindConflictState:
		return http.StatusConflict
	case booking.KindConflictUnavailable, booking.KindExpired:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a booking error in the standard envelope.
func writeError(c echo.Context, err error) error {
	var be *booking.Error
	if errors.As(err, &be) {
		return c.JSON(statusFor(be.Kind), echo.Map{"error": be.Message})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
