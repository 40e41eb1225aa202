package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// MovieHandler serves the read-only catalogue endpoints.  The booking
// core treats the catalogue as a lookup service; these handlers exist
// so clients can navigate from movie to show to seatmap.
type MovieHandler struct {
	Movies *repository.MovieRepo
}

// NewMovieHandler constructs a MovieHandler.
func NewMovieHandler(movies *repository.MovieRepo) *MovieHandler {
	return &MovieHandler{Movies: movies}
}

// List handles GET /movies with limit/offset pagination.
func (h *MovieHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	movies, err := h.Movies.List(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movies"})
	}
	items := make([]echo.Map, 0, len(movies))
	for _, m := range movies {
		items = append(items, echo.Map{
			"movieId":      m.MovieID,
			"title":        m.Title,
			"thumbnailUrl": m.ThumbnailURL,
			"rating":       m.Rating,
			"durationMins": m.DurationMins,
			"genres":       m.Genres,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /movies/:movieId.
func (h *MovieHandler) Get(c echo.Context) error {
	m, err := h.Movies.GetByID(c.Request().Context(), c.Param("movieId"))
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movie"})
	}
	view := echo.Map{
		"movieId":      m.MovieID,
		"title":        m.Title,
		"thumbnailUrl": m.ThumbnailURL,
		"rating":       m.Rating,
		"durationMins": m.DurationMins,
		"genres":       m.Genres,
	}
	if m.ReleaseDate != nil {
		view["releaseDate"] = m.ReleaseDate.Format("2006-01-02")
	}
	return c.JSON(http.StatusOK, view)
}

// Shows handles GET /movies/:movieId/shows?date=YYYY-MM-DD.
func (h *MovieHandler) Shows(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	listings, err := h.Movies.ShowsByMovieAndDate(c.Request().Context(), c.Param("movieId"), date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load shows"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": listings})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
