// Package worker contains the background reconcilers.  Expiry itself
// is passive (seat locks and hold records vanish when their TTL
// elapses) so these sweeps never free seats; they reconcile the
// durable order rows with the clock and emit the expiry events that
// passive TTL cannot.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/booking"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// OrderExpirer is the slice of the order store the sweep needs.
type OrderExpirer interface {
	ExpirePending(ctx context.Context, now time.Time) ([]repository.ExpiredOrder, error)
}

// HoldReaper is the slice of the coordinator the reaper needs.
type HoldReaper interface {
	ExpiredHolds(ctx context.Context) ([]*model.Hold, error)
	DropTrace(ctx context.Context, holdID string) error
}

// Worker bundles the two periodic sweeps.
type Worker struct {
	Orders OrderExpirer
	Holds  HoldReaper
	Cache  booking.SeatmapCache
	Events booking.Publisher
	Now    func() time.Time
}

// NewWorker constructs a worker with a UTC clock.
func NewWorker(orders OrderExpirer, holds HoldReaper, cache booking.SeatmapCache, events booking.Publisher) *Worker {
	return &Worker{
		Orders: orders,
		Holds:  holds,
		Cache:  cache,
		Events: events,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// ExpireOrders marks lapsed PAYMENT_PENDING orders as EXPIRED.  The
// seats come back automatically when their locks' TTL runs out; the
// cache is invalidated so readers see the change promptly.
func (w *Worker) ExpireOrders(ctx context.Context) error {
	lapsed, err := w.Orders.ExpirePending(ctx, w.Now())
	if err != nil {
		return err
	}
	for _, eo := range lapsed {
		w.Cache.Invalidate(ctx, eo.ShowID)
	}
	if len(lapsed) > 0 {
		log.Printf("worker: expired %d pending orders", len(lapsed))
	}
	return nil
}

// ReapHolds emits hold.expired for every hold that lapsed via TTL
// without being released or converted, then drops its trace.  Emission
// is at-least-once: a crash between publish and drop re-emits on the
// next sweep, and consumers dedupe on hold_id.
func (w *Worker) ReapHolds(ctx context.Context) error {
	expired, err := w.Holds.ExpiredHolds(ctx)
	if err != nil {
		return err
	}
	for _, h := range expired {
		if err := w.Events.Publish(ctx, "hold.expired", map[string]interface{}{
			"hold_id":  h.HoldID,
			"user_id":  h.UserID,
			"show_id":  h.ShowID,
			"seat_ids": h.SeatIDs,
		}); err != nil {
			log.Printf("worker: publish hold.expired for %s failed: %v", h.HoldID, err)
			continue // keep the trace; retry next sweep
		}
		if err := w.Holds.DropTrace(ctx, h.HoldID); err != nil {
			log.Printf("worker: drop trace of %s failed: %v", h.HoldID, err)
		}
		w.Cache.Invalidate(ctx, h.ShowID)
	}
	return nil
}
