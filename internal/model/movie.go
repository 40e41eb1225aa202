package model

import "time"

// Movie is a catalogue entry.  The booking core only reads movies; the
// catalogue pipeline owns them.
type Movie struct {
	MovieID      string
	Title        string
	ThumbnailURL string
	Rating       float64
	DurationMins int
	Genres       []string
	ReleaseDate  *time.Time
}

// ShowListing is one row of the shows-by-movie-and-date view: the show
// with enough theatre context for a client to pick a screening.
type ShowListing struct {
	ShowID                string    `json:"showId"`
	StartTime             time.Time `json:"startTime"`
	Price                 float64   `json:"price"`
	Status                string    `json:"status"`
	TheatreID             string    `json:"theatreId"`
	TheatreName           string    `json:"theatreName"`
	Address               string    `json:"address"`
	CancellationAvailable bool      `json:"cancellationAvailable"`
}
