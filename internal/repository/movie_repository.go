package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// MovieRepo provides read access to the movie catalogue and the show
// listings hanging off it.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo bound to the provided database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// List returns a page of movies, newest releases first.
func (r *MovieRepo) List(ctx context.Context, limit, offset int) ([]model.Movie, error) {
	const q = `SELECT movie_id, title, thumbnail_url, rating, duration_mins, genres
	           FROM movies
	           ORDER BY release_date DESC
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movies []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows.Scan)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// GetByID loads a single movie.  Returns ErrMovieNotFound on a miss.
func (r *MovieRepo) GetByID(ctx context.Context, movieID string) (*model.Movie, error) {
	const q = `SELECT movie_id, title, thumbnail_url, rating, duration_mins, genres, release_date
	           FROM movies WHERE movie_id = ?`
	var (
		m       model.Movie
		genres  []byte
		release sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, movieID).Scan(
		&m.MovieID, &m.Title, &m.ThumbnailURL, &m.Rating, &m.DurationMins, &genres, &release,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(genres) > 0 {
		_ = json.Unmarshal(genres, &m.Genres)
	}
	if release.Valid {
		t := release.Time
		m.ReleaseDate = &t
	}
	return &m, nil
}

// ShowsByMovieAndDate lists the non-cancelled shows of a movie on a
// calendar date, ordered by theatre then start time.
func (r *MovieRepo) ShowsByMovieAndDate(ctx context.Context, movieID string, date time.Time) ([]model.ShowListing, error) {
	const q = `SELECT s.show_id, s.start_time, s.price, s.status,
	                  t.theatre_id, t.name, t.address, t.cancellation_available
	           FROM shows s
	           JOIN theatres t ON s.theatre_id = t.theatre_id
	           WHERE s.movie_id = ?
	             AND s.start_time >= ? AND s.start_time < ?
	             AND s.status != 'CANCELLED'
	           ORDER BY t.name, s.start_time`
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.QueryContext(ctx, q, movieID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var listings []model.ShowListing
	for rows.Next() {
		var l model.ShowListing
		if err := rows.Scan(
			&l.ShowID, &l.StartTime, &l.Price, &l.Status,
			&l.TheatreID, &l.TheatreName, &l.Address, &l.CancellationAvailable,
		); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func scanMovie(scan func(...interface{}) error) (model.Movie, error) {
	var (
		m      model.Movie
		genres []byte
	)
	if err := scan(&m.MovieID, &m.Title, &m.ThumbnailURL, &m.Rating, &m.DurationMins, &genres); err != nil {
		return m, err
	}
	if len(genres) > 0 {
		_ = json.Unmarshal(genres, &m.Genres)
	}
	return m, nil
}
