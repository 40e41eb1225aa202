package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/booking"
	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/database"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/router"
	queue_publisher "github.com/iliyamo/movie-ticket-booking/internal/service"
	"github.com/iliyamo/movie-ticket-booking/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env if present (ignore error in dev/local)
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found; using defaults/env")
	}

	cfg := config.Load()
	blocked := config.LoadBlockedSeats()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// Seat locking has no fallback: without the coordinator no
		// booking request can be served safely.
		log.Fatal("redis connect failed: the seat-lock coordinator is required")
	}
	defer rdb.Close()

	showRepo := repository.NewShowRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	movieRepo := repository.NewMovieRepo(db)
	locks := lock.NewCoordinator(rdb)
	cache := lock.NewSeatmapCache(rdb, cfg.SeatmapCacheTTL)
	publisher := queue_publisher.NewPublisher()

	svc := booking.NewService(showRepo, orderRepo, locks, cache, publisher, blocked)
	svc.HoldTTL = cfg.HoldTTL
	svc.OrderTTL = cfg.OrderTTL
	svc.OrderLockGrace = cfg.OrderLockGrace
	svc.MaxSeats = cfg.MaxSeatsPerBooking

	// --- Background pieces ---

	// Event consumer: drains booking.events into logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	// Expiry sweeps: reconcile lapsed orders and emit hold.expired.
	w := worker.NewWorker(orderRepo, locks, cache, publisher)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.ExpireOrders(ctx); err != nil {
					log.Printf("order expiry sweep error: %v", err)
				}
				if err := w.ReapHolds(ctx); err != nil {
					log.Printf("hold reaper error: %v", err)
				}
			}
		}
	}()

	// --- HTTP server ---
	e := echo.New()
	e.Validator = handler.NewRequestValidator()

	bookingHandler := handler.NewBookingHandler(svc)
	movieHandler := handler.NewMovieHandler(movieRepo)
	identity := middleware.RequireUser(cfg.JWTSecret)
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e, bookingHandler, movieHandler, identity, rateLimit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
