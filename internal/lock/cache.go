package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

const seatmapKey = "seatmap:%s" // showID

// SeatmapCache is the short-TTL cache in front of the availability
// projector.  Entries are invalidated by every reservation transition,
// so the TTL only bounds staleness for readers that race an
// invalidation.  All operations degrade gracefully: a cache failure is
// never a reason to fail a request.
type SeatmapCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeatmapCache builds a cache with the given entry TTL.  A nil
// client disables caching (every Get misses, Put and Invalidate are
// no-ops).
func NewSeatmapCache(rdb *redis.Client, ttl time.Duration) *SeatmapCache {
	return &SeatmapCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached seatmap for a show, or ok=false on miss,
// expiry, decode failure or cache unavailability.
func (c *SeatmapCache) Get(ctx context.Context, showID string) (*model.Seatmap, bool) {
	if c.rdb == nil {
		return nil, false
	}
	// Any failure, redis.Nil included, is a miss; the projector
	// recomputes from source.
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(seatmapKey, showID)).Bytes()
	if err != nil {
		return nil, false
	}
	var sm model.Seatmap
	if err := json.Unmarshal(raw, &sm); err != nil {
		return nil, false
	}
	return &sm, true
}

// Put stores the composed seatmap under seatmap:<showId>.
func (c *SeatmapCache) Put(ctx context.Context, showID string, sm *model.Seatmap) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(sm)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, fmt.Sprintf(seatmapKey, showID), raw, c.ttl).Err()
}

// Invalidate drops the cached view for a show.  Called after every
// hold, release, order and confirmation so the worst-case staleness is
// one TTL.
func (c *SeatmapCache) Invalidate(ctx context.Context, showID string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, fmt.Sprintf(seatmapKey, showID)).Err()
}
