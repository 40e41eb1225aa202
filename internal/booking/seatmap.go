package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// Seatmap is the availability projector: it composes the confirmed
// seats from the durable store, the currently-held seats from the
// coordinator and the theatre's blocked set into the read-optimized
// view, behind a short-TTL cache.  Held seats are reported separately
// from unavailable ones so clients can render "booked" and "held by
// someone" differently.
func (s *Service) Seatmap(ctx context.Context, showID string) (*model.Seatmap, error) {
	if !validUUID(showID) {
		return nil, fail(KindValidation, "invalid show ID format")
	}
	if cached, ok := s.Cache.Get(ctx, showID); ok {
		return cached, nil
	}

	show, err := s.Shows.GetByID(ctx, showID)
	if errors.Is(err, repository.ErrShowNotFound) {
		return nil, fail(KindNotFound, "show not found")
	}
	if err != nil {
		return nil, transient("load show", err)
	}

	confirmed, err := s.Orders.ConfirmedSeatsForShow(ctx, showID)
	if err != nil {
		return nil, transient("load confirmed seats", err)
	}
	held, err := s.Locks.LockedSeats(ctx, showID)
	if err != nil {
		return nil, transient("list locked seats", err)
	}
	sort.Strings(held)

	sm := &model.Seatmap{
		ShowID:             showID,
		MovieTitle:         show.MovieTitle,
		TheatreName:        show.TheatreName,
		StartTime:          show.StartTime.Format(time.RFC3339),
		Price:              show.Price,
		Layout:             show.Layout(),
		UnavailableSeatIDs: sortedUnion(s.Blocked.ForTheatre(show.TheatreID), confirmed),
		HeldSeatIDs:        held,
	}
	s.Cache.Put(ctx, showID, sm)
	return sm, nil
}
