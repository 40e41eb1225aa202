package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// ShowRepo provides read access to shows.  The booking core never
// mutates shows; the catalogue side owns their lifecycle.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB {
	return r.db
}

// GetByID loads a show together with its movie title, theatre name and
// the theatre's seat-layout dimensions.  Returns ErrShowNotFound when
// no row matches.
func (r *ShowRepo) GetByID(ctx context.Context, showID string) (*model.Show, error) {
	const q = `SELECT s.show_id, s.movie_id, s.theatre_id, s.start_time, s.price, s.status,
	                  m.title, t.name, t.seat_rows, t.seats_per_row
	           FROM shows s
	           JOIN movies m ON s.movie_id = m.movie_id
	           JOIN theatres t ON s.theatre_id = t.theatre_id
	           WHERE s.show_id = ?`
	var s model.Show
	err := r.db.QueryRowContext(ctx, q, showID).Scan(
		&s.ShowID, &s.MovieID, &s.TheatreID, &s.StartTime, &s.Price, &s.Status,
		&s.MovieTitle, &s.TheatreName, &s.SeatRows, &s.SeatsPerRow,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
