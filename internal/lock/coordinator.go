// Package lock binds the Redis side of the booking flow: per-seat
// locks, hold records and their expiry traces.  It is the single
// serialization point for seat contention: both multi-seat operations
// run as server-side Lua scripts, so a check-N/set-N sequence is
// indivisible with respect to every other script touching the same
// keys.  Emulating this with multiple round-trips would reintroduce the
// double-booking race the scripts exist to close.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Key formats of the coordinator key-space.  A seat lock's value is
// "<userId>:<holdId>"; hold and trace values are JSON hold records.
const (
	seatLockKey  = "seat_lock:%s:%s" // showID, seatID
	holdKey      = "hold:%s"         // holdID
	holdTraceKey = "hold_trace:%s"   // holdID
)

// traceGrace is how long a hold's expiry trace outlives the hold
// itself, giving the reaper a window to observe the expiry and emit an
// event before the trace too disappears.
const traceGrace = 2 * time.Minute

// ErrConflict reports that another user owns a lock on one of the
// requested seats.  Seat names the first conflicting seat in request
// order.
type ErrConflict struct {
	Seat string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("seat %s is locked by another user", e.Seat)
}

// Coordinator wraps a Redis client with the seat-lock operations.  All
// methods surface Redis failures verbatim so callers can classify them
// as transient.
type Coordinator struct {
	rdb *redis.Client
}

// NewCoordinator binds a coordinator to the given client.  The client
// must be non-nil; unlike caching, seat locking has no database
// fallback.
func NewCoordinator(rdb *redis.Client) *Coordinator {
	if rdb == nil {
		panic("nil redis client passed to NewCoordinator")
	}
	return &Coordinator{rdb: rdb}
}

// acquireScript checks every requested seat lock and, only when all are
// free or already owned by the caller, writes them all.  Returns
// {1, 0} on success or {0, i} with the 1-based index of the first seat
// owned by a different user.  A lock already owned by the caller is
// re-acquirable: the second pass refreshes its TTL, which makes
// repeated acquire by the same (user, hold) idempotent.
var acquireScript = redis.NewScript(`
local owner = ARGV[1]
local value = ARGV[1] .. ":" .. ARGV[2]
local ttl = tonumber(ARGV[3])

for i, key in ipairs(KEYS) do
    local existing = redis.call('GET', key)
    if existing then
        local existingOwner = string.match(existing, "^([^:]+)")
        if existingOwner ~= owner then
            return {0, i}
        end
    end
end

for i, key in ipairs(KEYS) do
    redis.call('SET', key, value, 'EX', ttl)
end

return {1, 0}
`)

// releaseScript deletes each lock only when the caller owns it,
// skipping silently otherwise, and returns the 1-based indices of the
// locks actually deleted.  Ownership is checked inside the script so a
// racing re-acquire by another user can never be clobbered.
var releaseScript = redis.NewScript(`
local owner = ARGV[1]
local released = {}

for i, key in ipairs(KEYS) do
    local existing = redis.call('GET', key)
    if existing and string.match(existing, "^([^:]+)") == owner then
        redis.call('DEL', key)
        table.insert(released, i)
    end
end

return released
`)

// AcquireSeats atomically locks every seat in seatIDs for (userID,
// holdID) with the given TTL.  Either all locks are written or none
// are.  Returns *ErrConflict when another user holds one of the seats;
// any other error is a coordinator failure and must be treated as
// transient.
func (c *Coordinator) AcquireSeats(ctx context.Context, showID, userID, holdID string, seatIDs []string, ttl time.Duration) error {
	keys := make([]string, len(seatIDs))
	for i, sid := range seatIDs {
		keys[i] = fmt.Sprintf(seatLockKey, showID, sid)
	}
	res, err := acquireScript.Run(ctx, c.rdb, keys, userID, holdID, int(ttl.Seconds())).Int64Slice()
	if err != nil {
		return fmt.Errorf("acquire seats: %w", err)
	}
	if len(res) != 2 {
		return fmt.Errorf("acquire seats: unexpected script result %v", res)
	}
	if res[0] != 1 {
		idx := int(res[1]) - 1
		if idx < 0 || idx >= len(seatIDs) {
			return errors.New("acquire seats: conflict index out of range")
		}
		return &ErrConflict{Seat: seatIDs[idx]}
	}
	return nil
}

// ReleaseSeats atomically deletes the caller's locks on seatIDs and
// returns the seats actually released.  Locks owned by other users are
// left untouched.
func (c *Coordinator) ReleaseSeats(ctx context.Context, showID, userID string, seatIDs []string) ([]string, error) {
	keys := make([]string, len(seatIDs))
	for i, sid := range seatIDs {
		keys[i] = fmt.Sprintf(seatLockKey, showID, sid)
	}
	res, err := releaseScript.Run(ctx, c.rdb, keys, userID).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("release seats: %w", err)
	}
	released := make([]string, 0, len(res))
	for _, i := range res {
		if i >= 1 && int(i) <= len(seatIDs) {
			released = append(released, seatIDs[i-1])
		}
	}
	return released, nil
}

// LockedSeats enumerates the seats currently locked for a show.  The
// scan is eventually consistent against in-flight acquires; the only
// consumer is the availability projector, which tolerates that.
func (c *Coordinator) LockedSeats(ctx context.Context, showID string) ([]string, error) {
	pattern := fmt.Sprintf(seatLockKey, showID, "*")
	var seats []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if i := strings.LastIndexByte(key, ':'); i >= 0 {
			seats = append(seats, key[i+1:])
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan locked seats: %w", err)
	}
	return seats, nil
}

// StoreHold writes the hold record under hold:<holdId> with the given
// TTL, plus a shadow trace under hold_trace:<holdId> that outlives it
// by traceGrace.  The trace lets the expiry reaper tell "expired" apart
// from "released or converted" after the primary key is gone.
func (c *Coordinator) StoreHold(ctx context.Context, h *model.Hold, ttl time.Duration) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal hold: %w", err)
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(holdKey, h.HoldID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store hold: %w", err)
	}
	// Best effort: a lost trace only costs one hold.expired event.
	_ = c.rdb.Set(ctx, fmt.Sprintf(holdTraceKey, h.HoldID), raw, ttl+traceGrace).Err()
	return nil
}

// FetchHold reads a hold record.  A nil hold with nil error means the
// key is missing or expired; the two are indistinguishable by design.
func (c *Coordinator) FetchHold(ctx context.Context, holdID string) (*model.Hold, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(holdKey, holdID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch hold: %w", err)
	}
	var h model.Hold
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode hold %s: %w", holdID, err)
	}
	return &h, nil
}

// RemoveHold deletes the hold record and its trace.  Used when a hold
// is converted into an order: the disappearance must not read as an
// expiry.
func (c *Coordinator) RemoveHold(ctx context.Context, holdID string) error {
	if err := c.rdb.Del(ctx, fmt.Sprintf(holdKey, holdID)).Err(); err != nil {
		return fmt.Errorf("remove hold: %w", err)
	}
	_ = c.rdb.Del(ctx, fmt.Sprintf(holdTraceKey, holdID)).Err()
	return nil
}

// DropTrace removes only the expiry trace, leaving the hold record
// alone.  Called after an explicit release, which already emitted its
// own event.
func (c *Coordinator) DropTrace(ctx context.Context, holdID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(holdTraceKey, holdID)).Err()
}

// ExpiredHolds scans the trace keys and returns the holds whose primary
// record vanished without an explicit release or conversion, i.e. the
// holds that lapsed via TTL.  The reaper deletes each trace after
// emitting its event.
func (c *Coordinator) ExpiredHolds(ctx context.Context) ([]*model.Hold, error) {
	var expired []*model.Hold
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf(holdTraceKey, "*"), 100).Iterator()
	for iter.Next(ctx) {
		traceKey := iter.Val()
		holdID := traceKey[strings.LastIndexByte(traceKey, ':')+1:]
		n, err := c.rdb.Exists(ctx, fmt.Sprintf(holdKey, holdID)).Result()
		if err != nil {
			return nil, fmt.Errorf("check hold %s: %w", holdID, err)
		}
		if n > 0 {
			continue // still alive
		}
		raw, err := c.rdb.Get(ctx, traceKey).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // trace expired between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("read trace %s: %w", holdID, err)
		}
		var h model.Hold
		if err := json.Unmarshal(raw, &h); err != nil {
			_ = c.rdb.Del(ctx, traceKey).Err() // poison trace
			continue
		}
		if h.Status != model.HoldHeld {
			// Released holds keep their record until TTL; their trace
			// is dropped at release time, but tolerate stragglers.
			_ = c.rdb.Del(ctx, traceKey).Err()
			continue
		}
		expired = append(expired, &h)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan traces: %w", err)
	}
	return expired, nil
}
