package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

type stubOrders struct {
	lapsed []repository.ExpiredOrder
	err    error
	calls  int
}

func (s *stubOrders) ExpirePending(_ context.Context, _ time.Time) ([]repository.ExpiredOrder, error) {
	s.calls++
	return s.lapsed, s.err
}

type stubHolds struct {
	expired []*model.Hold
	dropped []string
	err     error
}

func (s *stubHolds) ExpiredHolds(_ context.Context) ([]*model.Hold, error) {
	return s.expired, s.err
}

func (s *stubHolds) DropTrace(_ context.Context, holdID string) error {
	s.dropped = append(s.dropped, holdID)
	return nil
}

type stubCache struct {
	invalidated []string
}

func (s *stubCache) Get(_ context.Context, _ string) (*model.Seatmap, bool) { return nil, false }
func (s *stubCache) Put(_ context.Context, _ string, _ *model.Seatmap)      {}
func (s *stubCache) Invalidate(_ context.Context, showID string) {
	s.invalidated = append(s.invalidated, showID)
}

type stubEvents struct {
	published []string
	err       error
}

func (s *stubEvents) Publish(_ context.Context, eventType string, _ interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, eventType)
	return nil
}

func TestExpireOrdersInvalidatesAffectedShows(t *testing.T) {
	orders := &stubOrders{lapsed: []repository.ExpiredOrder{
		{OrderID: "o1", ShowID: "show-1", SeatIDs: []string{"A1"}},
		{OrderID: "o2", ShowID: "show-2", SeatIDs: []string{"B1", "B2"}},
	}}
	cache := &stubCache{}
	w := NewWorker(orders, &stubHolds{}, cache, &stubEvents{})

	require.NoError(t, w.ExpireOrders(context.Background()))
	assert.Equal(t, []string{"show-1", "show-2"}, cache.invalidated)
}

func TestReapHoldsEmitsAndDropsTraces(t *testing.T) {
	holds := &stubHolds{expired: []*model.Hold{
		{HoldID: "h1", UserID: "u1", ShowID: "show-1", SeatIDs: []string{"A1"}, Status: model.HoldHeld},
		{HoldID: "h2", UserID: "u2", ShowID: "show-2", SeatIDs: []string{"C3"}, Status: model.HoldHeld},
	}}
	cache := &stubCache{}
	events := &stubEvents{}
	w := NewWorker(&stubOrders{}, holds, cache, events)

	require.NoError(t, w.ReapHolds(context.Background()))
	assert.Equal(t, []string{"hold.expired", "hold.expired"}, events.published)
	assert.Equal(t, []string{"h1", "h2"}, holds.dropped)
	assert.Equal(t, []string{"show-1", "show-2"}, cache.invalidated)
}

func TestReapHoldsKeepsTraceWhenPublishFails(t *testing.T) {
	holds := &stubHolds{expired: []*model.Hold{
		{HoldID: "h1", UserID: "u1", ShowID: "show-1", SeatIDs: []string{"A1"}, Status: model.HoldHeld},
	}}
	events := &stubEvents{err: errors.New("broker down")}
	w := NewWorker(&stubOrders{}, holds, &stubCache{}, events)

	require.NoError(t, w.ReapHolds(context.Background()))
	// The trace survives so the next sweep retries the emission.
	assert.Empty(t, holds.dropped)
}
