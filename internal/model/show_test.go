package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShowLayout(t *testing.T) {
	s := Show{SeatRows: 2, SeatsPerRow: 3}
	layout := s.Layout()
	assert.Len(t, layout, 6)
	assert.Equal(t, Seat{SeatID: "A1", Row: "A", Number: 1, Type: "regular"}, layout[0])
	assert.Equal(t, Seat{SeatID: "B3", Row: "B", Number: 3, Type: "regular"}, layout[5])

	wide := Show{SeatRows: 1, SeatsPerRow: 12}
	last := wide.Layout()[11]
	assert.Equal(t, "A12", last.SeatID)
}

func TestShowHasSeat(t *testing.T) {
	s := Show{SeatRows: 10, SeatsPerRow: 10}
	for _, sid := range []string{"A1", "J10", "C8"} {
		assert.True(t, s.HasSeat(sid), "expected %s in layout", sid)
	}
	for _, sid := range []string{"K1", "A11", "A0", "A", "", "Ax"} {
		assert.False(t, s.HasSeat(sid), "expected %s outside layout", sid)
	}
}

func TestShowStarted(t *testing.T) {
	now := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	s := Show{StartTime: now}
	assert.True(t, s.Started(now))
	assert.True(t, s.Started(now.Add(time.Second)))
	assert.False(t, s.Started(now.Add(-time.Second)))
}

func TestHoldEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	h := Hold{Status: HoldHeld, ExpiresAt: now.Add(time.Minute)}
	assert.Equal(t, HoldHeld, h.EffectiveStatus(now))
	assert.Equal(t, HoldExpired, h.EffectiveStatus(now.Add(2*time.Minute)))

	// Released stays released, even past expiry.
	h.Status = HoldReleased
	assert.Equal(t, HoldReleased, h.EffectiveStatus(now.Add(2*time.Minute)))
}
