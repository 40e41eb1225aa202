package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Seatmap handles GET /shows/:showId/seatmap.  The endpoint is public:
// browsing availability requires no identity.
func (h *BookingHandler) Seatmap(c echo.Context) error {
	sm, err := h.Svc.Seatmap(c.Request().Context(), c.Param("showId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sm)
}
