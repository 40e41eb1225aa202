package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/handler"
)

// RegisterRoutes wires every endpoint.  Seatmap and catalogue reads
// are public; hold and order operations require a resolved identity,
// and hold creation additionally passes the rate limiter.
func RegisterRoutes(e *echo.Echo, b *handler.BookingHandler, m *handler.MovieHandler, identity, rateLimit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// Public catalogue + availability.
	e.GET("/movies", m.List)
	e.GET("/movies/:movieId", m.Get)
	e.GET("/movies/:movieId/shows", m.Shows)
	e.GET("/shows/:showId/seatmap", b.Seatmap)

	// Booking flow.
	g := e.Group("", identity)
	g.POST("/holds", b.CreateHold, rateLimit)
	g.GET("/holds/:holdId", b.GetHold)
	g.POST("/holds/:holdId/release", b.ReleaseHold)
	g.POST("/orders", b.CreateOrder)
	g.GET("/orders/:orderId", b.GetOrder)
	g.POST("/orders/:orderId/confirm-payment", b.ConfirmPayment)
	g.GET("/orders/:orderId/ticket", b.Ticket)
}
