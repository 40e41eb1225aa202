package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/booking"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
)

// BookingHandler serves the hold, order and seatmap endpoints on top of
// the reservation core.  Identity resolution and rate limiting have
// already happened in middleware by the time these methods run.
type BookingHandler struct {
	Svc *booking.Service
}

// NewBookingHandler wires the handler to the reservation core.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// CreateHold handles POST /holds.
func (h *BookingHandler) CreateHold(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req booking.HoldRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	hold, err := h.Svc.CreateHold(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"holdId":    hold.HoldID,
		"showId":    hold.ShowID,
		"seatIds":   hold.SeatIDs,
		"status":    hold.Status,
		"expiresAt": hold.ExpiresAt.Format(time.RFC3339),
	})
}

// GetHold handles GET /holds/:holdId.
func (h *BookingHandler) GetHold(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	hold, err := h.Svc.GetHold(c.Request().Context(), userID, c.Param("holdId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"holdId":    hold.HoldID,
		"showId":    hold.ShowID,
		"seatIds":   hold.SeatIDs,
		"status":    hold.Status,
		"createdAt": hold.CreatedAt.Format(time.RFC3339),
		"expiresAt": hold.ExpiresAt.Format(time.RFC3339),
	})
}

// ReleaseHold handles POST /holds/:holdId/release.  The API contract
// reports an already-released or expired hold as 400, narrower than
// the default conflict mapping.
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	hold, released, err := h.Svc.ReleaseHold(c.Request().Context(), userID, c.Param("holdId"))
	if err != nil {
		if booking.KindOf(err) == booking.KindConflictState {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold is already released"})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"holdId":        hold.HoldID,
		"status":        hold.Status,
		"releasedSeats": released,
	})
}
