package booking

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// Collaborator contracts.  The concrete adapters live in
// internal/repository (durable store), internal/lock (coordinator and
// cache) and internal/service (event bus); the state machine only sees
// these interfaces so its transitions can be tested with in-memory
// fakes.

// ShowStore is the read side of the durable store for shows.
type ShowStore interface {
	GetByID(ctx context.Context, showID string) (*model.Show, error)
}

// OrderStore is the transactional order persistence contract.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, orderID string) (*model.Order, error)
	ConfirmPayment(ctx context.Context, orderID, ticketCode, showID string, seatIDs []string, now time.Time) (bool, error)
	ConfirmedSeatsForShow(ctx context.Context, showID string) ([]string, error)
}

// SeatLocks is the ephemeral coordinator contract: atomic multi-seat
// acquisition/release plus the TTL-bounded hold records.
type SeatLocks interface {
	AcquireSeats(ctx context.Context, showID, userID, holdID string, seatIDs []string, ttl time.Duration) error
	ReleaseSeats(ctx context.Context, showID, userID string, seatIDs []string) ([]string, error)
	LockedSeats(ctx context.Context, showID string) ([]string, error)
	StoreHold(ctx context.Context, h *model.Hold, ttl time.Duration) error
	FetchHold(ctx context.Context, holdID string) (*model.Hold, error)
	RemoveHold(ctx context.Context, holdID string) error
	DropTrace(ctx context.Context, holdID string) error
}

// SeatmapCache fronts the availability projector.  All methods are
// best-effort.
type SeatmapCache interface {
	Get(ctx context.Context, showID string) (*model.Seatmap, bool)
	Put(ctx context.Context, showID string, sm *model.Seatmap)
	Invalidate(ctx context.Context, showID string)
}

// Publisher emits lifecycle events.  Delivery is at-least-once and
// best-effort: a publish failure is logged by the adapter and never
// fails the request.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// BlockedSeats resolves the permanently-unavailable seat set of a
// theatre.
type BlockedSeats interface {
	ForTheatre(theatreID string) map[string]struct{}
}

// Service is the reservation core.  All shared state lives in the
// collaborators; Service itself is stateless and safe for concurrent
// use by any number of request handlers.
type Service struct {
	Shows   ShowStore
	Orders  OrderStore
	Locks   SeatLocks
	Cache   SeatmapCache
	Events  Publisher
	Blocked BlockedSeats

	HoldTTL        time.Duration
	OrderTTL       time.Duration
	OrderLockGrace time.Duration
	MaxSeats       int

	// Now is injectable for tests; defaults to UTC wall clock.
	Now func() time.Time
}

// NewService wires a reservation core.  All collaborators must be
// non-nil.
func NewService(shows ShowStore, orders OrderStore, locks SeatLocks, cache SeatmapCache, events Publisher, blocked BlockedSeats) *Service {
	if shows == nil || orders == nil || locks == nil || cache == nil || events == nil || blocked == nil {
		panic("nil collaborator passed to booking.NewService")
	}
	return &Service{
		Shows:          shows,
		Orders:         orders,
		Locks:          locks,
		Cache:          cache,
		Events:         events,
		Blocked:        blocked,
		HoldTTL:        5 * time.Minute,
		OrderTTL:       5 * time.Minute,
		OrderLockGrace: 30 * time.Second,
		MaxSeats:       10,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateHold validates the request, atomically locks the seats and
// writes the hold record.  On any failure after the locks are taken
// the locks are released again, so a failed create-hold never leaves
// partial state behind.
func (s *Service) CreateHold(ctx context.Context, userID string, req HoldRequest) (*model.Hold, error) {
	if verr := s.validateHoldRequest(req); verr != nil {
		return nil, verr
	}

	show, err := s.Shows.GetByID(ctx, req.ShowID)
	if errors.Is(err, repository.ErrShowNotFound) {
		return nil, fail(KindNotFound, "show not found")
	}
	if err != nil {
		return nil, transient("load show", err)
	}

	now := s.Now()
	if show.Status == model.ShowCancelled {
		return nil, fail(KindConflictUnavailable, "show has been cancelled")
	}
	if show.Started(now) {
		return nil, fail(KindConflictUnavailable, "cannot book seats for a show that has already started")
	}
	for _, sid := range req.SeatIDs {
		if !show.HasSeat(sid) {
			return nil, fail(KindValidation, "seat %s does not exist in this theatre", sid)
		}
	}

	blocked := s.Blocked.ForTheatre(show.TheatreID)
	confirmed, err := s.Orders.ConfirmedSeatsForShow(ctx, req.ShowID)
	if err != nil {
		return nil, transient("load confirmed seats", err)
	}
	confirmedSet := toSet(confirmed)
	var bookedHits, blockedHits []string
	for _, sid := range req.SeatIDs {
		if _, ok := confirmedSet[sid]; ok {
			bookedHits = append(bookedHits, sid)
		} else if _, ok := blocked[sid]; ok {
			blockedHits = append(blockedHits, sid)
		}
	}
	if len(bookedHits) > 0 {
		return nil, fail(KindConflictBooked, "seats already booked: %s", strings.Join(bookedHits, ", "))
	}
	if len(blockedHits) > 0 {
		return nil, fail(KindConflictUnavailable, "seats are unavailable: %s", strings.Join(blockedHits, ", "))
	}

	holdID := uuid.NewString()
	if err := s.Locks.AcquireSeats(ctx, req.ShowID, userID, holdID, req.SeatIDs, s.HoldTTL); err != nil {
		var conflict *lock.ErrConflict
		if errors.As(err, &conflict) {
			return nil, fail(KindConflictHeld, "seat %s is no longer available", conflict.Seat)
		}
		return nil, transient("acquire seat locks", err)
	}

	hold := &model.Hold{
		HoldID:    holdID,
		ShowID:    req.ShowID,
		UserID:    userID,
		SeatIDs:   req.SeatIDs,
		Quantity:  req.Quantity,
		Status:    model.HoldHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(s.HoldTTL),
	}
	if err := s.Locks.StoreHold(ctx, hold, s.HoldTTL); err != nil {
		// Compensation: without a hold record the locks are orphans;
		// release them rather than letting users wait out the TTL.
		if _, relErr := s.Locks.ReleaseSeats(ctx, req.ShowID, userID, req.SeatIDs); relErr != nil {
			log.Printf("booking: compensation failed, seats stay locked until TTL: hold=%s: %v", holdID, relErr)
		}
		return nil, transient("store hold", err)
	}

	s.Cache.Invalidate(ctx, req.ShowID)
	s.publish(ctx, "hold.created", map[string]interface{}{
		"hold_id":      hold.HoldID,
		"user_id":      userID,
		"show_id":      hold.ShowID,
		"seat_ids":     hold.SeatIDs,
		"expires_at":   hold.ExpiresAt.Format(time.RFC3339),
		"movie_title":  show.MovieTitle,
		"theatre_name": show.TheatreName,
	})
	return hold, nil
}

// GetHold returns the caller's hold with expiry projected onto the
// status.  The read never mutates coordinator state.
func (s *Service) GetHold(ctx context.Context, userID, holdID string) (*model.Hold, error) {
	hold, err := s.loadOwnedHold(ctx, userID, holdID)
	if err != nil {
		return nil, err
	}
	view := *hold
	view.Status = hold.EffectiveStatus(s.Now())
	return &view, nil
}

// ReleaseHold frees the caller's seat locks and rewrites the hold as
// RELEASED, preserving the residual TTL so the record ages out on the
// original schedule.
func (s *Service) ReleaseHold(ctx context.Context, userID, holdID string) (*model.Hold, []string, error) {
	hold, err := s.loadOwnedHold(ctx, userID, holdID)
	if err != nil {
		return nil, nil, err
	}
	if hold.Status == model.HoldReleased {
		return nil, nil, fail(KindConflictState, "hold is already released")
	}
	now := s.Now()
	if hold.EffectiveStatus(now) == model.HoldExpired {
		return nil, nil, fail(KindExpired, "hold has already expired")
	}

	released, err := s.Locks.ReleaseSeats(ctx, hold.ShowID, userID, hold.SeatIDs)
	if err != nil {
		return nil, nil, transient("release seat locks", err)
	}
	hold.Status = model.HoldReleased
	if err := s.Locks.StoreHold(ctx, hold, hold.ExpiresAt.Sub(now)); err != nil {
		// Locks are already gone, which is the safe direction; the
		// stale HELD record ages out on its own TTL.
		log.Printf("booking: failed to mark hold %s released: %v", holdID, err)
	}
	// The release is explicit, so the expiry reaper must not also
	// report this hold.
	if err := s.Locks.DropTrace(ctx, holdID); err != nil {
		log.Printf("booking: failed to drop trace of hold %s: %v", holdID, err)
	}

	s.Cache.Invalidate(ctx, hold.ShowID)
	s.publish(ctx, "hold.released", map[string]interface{}{
		"hold_id":        hold.HoldID,
		"user_id":        userID,
		"show_id":        hold.ShowID,
		"seat_ids":       hold.SeatIDs,
		"released_seats": released,
	})
	return hold, released, nil
}

// CreateOrder converts a live hold into a durable PAYMENT_PENDING
// order.  The hold record is consumed; the seat locks are deliberately
// retained, refreshed to outlive the payment window, so the seats
// stay reserved while the user pays.
func (s *Service) CreateOrder(ctx context.Context, userID string, req OrderRequest) (*model.Order, error) {
	if verr := validateOrderRequest(req); verr != nil {
		return nil, verr
	}
	hold, err := s.loadOwnedHold(ctx, userID, req.HoldID)
	if err != nil {
		return nil, err
	}
	if hold.Status != model.HoldHeld {
		return nil, fail(KindConflictState, "cannot create order from hold with status %s", hold.Status)
	}
	now := s.Now()
	if hold.EffectiveStatus(now) == model.HoldExpired {
		return nil, fail(KindExpired, "hold has expired")
	}

	show, err := s.Shows.GetByID(ctx, hold.ShowID)
	if errors.Is(err, repository.ErrShowNotFound) {
		return nil, fail(KindNotFound, "show not found")
	}
	if err != nil {
		return nil, transient("load show", err)
	}

	// Refresh the seat locks before touching the durable store: a
	// same-owner acquire is an idempotent TTL refresh, and after it the
	// locks are guaranteed to outlive the order's payment window.
	lockTTL := s.OrderTTL + s.OrderLockGrace
	if err := s.Locks.AcquireSeats(ctx, hold.ShowID, userID, hold.HoldID, hold.SeatIDs, lockTTL); err != nil {
		var conflict *lock.ErrConflict
		if errors.As(err, &conflict) {
			// Our locks lapsed and someone else took a seat.
			return nil, fail(KindConflictHeld, "seat %s is no longer available", conflict.Seat)
		}
		return nil, transient("refresh seat locks", err)
	}

	order := &model.Order{
		OrderID:     uuid.NewString(),
		HoldID:      hold.HoldID,
		UserID:      userID,
		ShowID:      hold.ShowID,
		SeatIDs:     hold.SeatIDs,
		Customer:    req.Customer,
		Amount:      float64(len(hold.SeatIDs)) * show.Price,
		Status:      model.OrderPaymentPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.OrderTTL),
		MovieTitle:  show.MovieTitle,
		TheatreID:   show.TheatreID,
		TheatreName: show.TheatreName,
		StartTime:   show.StartTime,
	}
	if err := s.Orders.Create(ctx, order); err != nil {
		// Compensation: re-put the hold so retries see an intact hold.
		// The seat locks were never released.
		if putErr := s.Locks.StoreHold(ctx, hold, hold.ExpiresAt.Sub(now)); putErr != nil {
			log.Printf("booking: failed to restore hold %s after order insert failure: %v", hold.HoldID, putErr)
		}
		return nil, transient("persist order", err)
	}

	// The hold is consumed; its disappearance must not read as expiry.
	if err := s.Locks.RemoveHold(ctx, hold.HoldID); err != nil {
		log.Printf("booking: failed to delete converted hold %s: %v", hold.HoldID, err)
	}

	s.Cache.Invalidate(ctx, hold.ShowID)
	s.publish(ctx, "order.created", map[string]interface{}{
		"order_id":     order.OrderID,
		"user_id":      userID,
		"show_id":      order.ShowID,
		"movie_title":  order.MovieTitle,
		"theatre_name": order.TheatreName,
		"seat_ids":     order.SeatIDs,
		"amount":       order.Amount,
		"customer":     order.Customer,
		"expires_at":   order.ExpiresAt.Format(time.RFC3339),
	})
	return order, nil
}

// GetOrder returns the caller's order with expiry projected onto a
// still-pending status; the expiry sweep reconciles the stored row.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.loadOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == model.OrderPaymentPending && s.Now().After(order.ExpiresAt) {
		view := *order
		view.Status = model.OrderExpired
		return &view, nil
	}
	return order, nil
}

// ConfirmPayment promotes a pending order to CONFIRMED exactly once,
// assigns the ticket code, and releases the seat locks the order no
// longer needs; from here on the durable row is what keeps the seats
// unavailable.
func (s *Service) ConfirmPayment(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.loadOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderPaymentPending {
		return nil, fail(KindConflictState, "cannot confirm payment for order with status %s", order.Status)
	}
	now := s.Now()
	if now.After(order.ExpiresAt) {
		return nil, fail(KindExpired, "order has expired")
	}

	ticketCode := "BMS" + strings.ToUpper(order.OrderID[:8])
	ok, err := s.Orders.ConfirmPayment(ctx, order.OrderID, ticketCode, order.ShowID, order.SeatIDs, now)
	if errors.Is(err, repository.ErrSeatAlreadyBooked) {
		return nil, fail(KindConflictBooked, "seats already booked for this show")
	}
	if err != nil {
		return nil, transient("confirm order", err)
	}
	if !ok {
		// Compare-and-set lost: someone else transitioned the order
		// between our read and the update.
		current, rerr := s.Orders.GetByID(ctx, order.OrderID)
		if rerr != nil || current == nil {
			return nil, transient("re-read order after failed confirm", rerr)
		}
		return nil, fail(KindConflictState, "order is no longer pending (status %s)", current.Status)
	}

	// The locks were protecting the payment window; the confirmed row
	// supersedes them.  Failure here is harmless: TTL finishes the job.
	if _, err := s.Locks.ReleaseSeats(ctx, order.ShowID, userID, order.SeatIDs); err != nil {
		log.Printf("booking: failed to release locks of confirmed order %s: %v", order.OrderID, err)
	}

	order.Status = model.OrderConfirmed
	order.TicketCode = ticketCode
	order.UpdatedAt = now

	s.Cache.Invalidate(ctx, order.ShowID)
	s.publish(ctx, "order.confirmed", map[string]interface{}{
		"order_id":     order.OrderID,
		"user_id":      userID,
		"ticket_code":  ticketCode,
		"show_id":      order.ShowID,
		"seat_ids":     order.SeatIDs,
		"movie_title":  order.MovieTitle,
		"theatre_name": order.TheatreName,
		"show_time":    order.StartTime.Format(time.RFC3339),
		"customer":     order.Customer,
		"amount":       order.Amount,
	})
	s.checkSoldOut(ctx, order.ShowID)
	return order, nil
}

// loadOwnedHold centralizes the fetch + ownership rules shared by the
// hold operations.
func (s *Service) loadOwnedHold(ctx context.Context, userID, holdID string) (*model.Hold, error) {
	if !validUUID(holdID) {
		return nil, fail(KindValidation, "invalid holdId format")
	}
	hold, err := s.Locks.FetchHold(ctx, holdID)
	if err != nil {
		return nil, transient("load hold", err)
	}
	if hold == nil {
		return nil, fail(KindNotFound, "hold not found or expired")
	}
	if hold.UserID != userID {
		return nil, fail(KindForbidden, "hold belongs to another user")
	}
	return hold, nil
}

// loadOwnedOrder mirrors loadOwnedHold for the durable side.
func (s *Service) loadOwnedOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	if !validUUID(orderID) {
		return nil, fail(KindValidation, "invalid orderId format")
	}
	order, err := s.Orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fail(KindNotFound, "order not found")
	}
	if err != nil {
		return nil, transient("load order", err)
	}
	if order.UserID != userID {
		return nil, fail(KindForbidden, "order belongs to another user")
	}
	return order, nil
}

// checkSoldOut emits show.sold_out when a confirmation leaves no
// bookable seat.  Entirely best-effort: any failure only costs the
// event.
func (s *Service) checkSoldOut(ctx context.Context, showID string) {
	show, err := s.Shows.GetByID(ctx, showID)
	if err != nil {
		return
	}
	confirmed, err := s.Orders.ConfirmedSeatsForShow(ctx, showID)
	if err != nil {
		return
	}
	blocked := s.Blocked.ForTheatre(show.TheatreID)
	blockedInLayout := 0
	for sid := range blocked {
		if show.HasSeat(sid) {
			blockedInLayout++
		}
	}
	if len(confirmed)+blockedInLayout >= show.Capacity() {
		s.publish(ctx, "show.sold_out", map[string]interface{}{
			"show_id":      showID,
			"movie_title":  show.MovieTitle,
			"theatre_name": show.TheatreName,
			"start_time":   show.StartTime.Format(time.RFC3339),
		})
	}
}

// publish emits an event and swallows failures; the adapter has
// already logged them.
func (s *Service) publish(ctx context.Context, eventType string, data interface{}) {
	if err := s.Events.Publish(ctx, eventType, data); err != nil {
		log.Printf("booking: publish %s failed: %v", eventType, err)
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedUnion(a map[string]struct{}, b []string) []string {
	union := make(map[string]struct{}, len(a)+len(b))
	for id := range a {
		union[id] = struct{}{}
	}
	for _, id := range b {
		union[id] = struct{}{}
	}
	out := make([]string, 0, len(union))
	for id := range union {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
