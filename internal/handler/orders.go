package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/movie-ticket-booking/internal/booking"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// CreateOrder handles POST /orders.
func (h *BookingHandler) CreateOrder(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req booking.OrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	order, err := h.Svc.CreateOrder(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orderView(order))
}

// GetOrder handles GET /orders/:orderId.
func (h *BookingHandler) GetOrder(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Svc.GetOrder(c.Request().Context(), userID, c.Param("orderId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orderView(order))
}

// ConfirmPayment handles POST /orders/:orderId/confirm-payment.
func (h *BookingHandler) ConfirmPayment(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Svc.ConfirmPayment(c.Request().Context(), userID, c.Param("orderId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orderId":    order.OrderID,
		"status":     order.Status,
		"ticketCode": order.TicketCode,
		"message":    "Payment confirmed successfully. Your tickets have been booked!",
	})
}

// Ticket handles GET /orders/:orderId/ticket.  It renders the ticket
// code of a confirmed order as a QR PNG for scanning at the theatre.
func (h *BookingHandler) Ticket(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Svc.GetOrder(c.Request().Context(), userID, c.Param("orderId"))
	if err != nil {
		return writeError(c, err)
	}
	if order.Status != model.OrderConfirmed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "order is not confirmed"})
	}
	png, err := qrcode.Encode(order.TicketCode, qrcode.Medium, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render ticket"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// orderView shapes an order for JSON responses; nullable fields are
// omitted rather than rendered empty.
func orderView(o *model.Order) echo.Map {
	view := echo.Map{
		"orderId":     o.OrderID,
		"showId":      o.ShowID,
		"seatIds":     o.SeatIDs,
		"amount":      o.Amount,
		"status":      o.Status,
		"customer":    o.Customer,
		"movieTitle":  o.MovieTitle,
		"theatreName": o.TheatreName,
		"showTime":    o.StartTime.Format(time.RFC3339),
		"createdAt":   o.CreatedAt.Format(time.RFC3339),
		"expiresAt":   o.ExpiresAt.Format(time.RFC3339),
	}
	if o.TicketCode != "" {
		view["ticketCode"] = o.TicketCode
	}
	return view
}
