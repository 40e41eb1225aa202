package model

import "time"

// Show statuses as stored in the shows table.
const (
	ShowScheduled = "SCHEDULED"
	ShowCancelled = "CANCELLED"
	ShowFinished  = "FINISHED"
)

// Show represents a scheduled screening of a movie at a theatre.  It is
// read-only to the booking core: the catalogue side owns creation and
// updates.  StartTime doubles as the booking cutoff: no hold may be
// created at or after it.
//
// Fields:
//
//	ShowID       – primary key (UUIDv4).
//	MovieID      – movie being screened.
//	MovieTitle   – denormalized movie title (join on movies).
//	TheatreID    – theatre where the show takes place.
//	TheatreName  – denormalized theatre name (join on theatres).
//	StartTime    – when the show begins; also the booking cutoff.
//	Price        – price per seat for this show.
//	Status       – SCHEDULED, CANCELLED or FINISHED.
//	SeatRows     – number of seat rows in the theatre (A.. upward).
//	SeatsPerRow  – seats per row (1.. upward).
type Show struct {
	ShowID      string
	MovieID     string
	MovieTitle  string
	TheatreID   string
	TheatreName string
	StartTime   time.Time
	Price       float64
	Status      string
	SeatRows    int
	SeatsPerRow int
}

// Started reports whether the show's booking cutoff has passed.
func (s *Show) Started(now time.Time) bool {
	return !now.Before(s.StartTime)
}

// Layout expands the theatre dimensions into the flat seat list served
// to clients.  Row letters run A..Z; the theatre schema caps rows at 26.
func (s *Show) Layout() []Seat {
	seats := make([]Seat, 0, s.SeatRows*s.SeatsPerRow)
	for r := 0; r < s.SeatRows; r++ {
		row := string(rune('A' + r))
		for n := 1; n <= s.SeatsPerRow; n++ {
			seats = append(seats, Seat{
				SeatID: row + itoa(n),
				Row:    row,
				Number: n,
				Type:   "regular",
			})
		}
	}
	return seats
}

// Capacity is the number of physical seats in the hall, before the
// blocked set is subtracted.
func (s *Show) Capacity() int {
	return s.SeatRows * s.SeatsPerRow
}

// HasSeat reports whether a seat identifier falls inside the theatre's
// layout.  Seat IDs are `<RowLetter><1..99>`; row must be within
// SeatRows and the number within SeatsPerRow.
func (s *Show) HasSeat(seatID string) bool {
	if len(seatID) < 2 {
		return false
	}
	row := int(seatID[0] - 'A')
	if row < 0 || row >= s.SeatRows {
		return false
	}
	n := 0
	for _, c := range seatID[1:] {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n >= 1 && n <= s.SeatsPerRow
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
