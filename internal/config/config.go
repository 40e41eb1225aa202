package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every environment-driven setting the booking service
// needs at startup.  Connection parameters are required; booking
// parameters fall back to the documented defaults so a bare .env with
// DB credentials is enough for local development.
type Config struct {
	Env  string
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	// HoldTTL bounds how long a seat hold (and its seat locks) live
	// before passive expiry.  OrderTTL bounds the payment window of a
	// PAYMENT_PENDING order.  OrderLockGrace is added on top of
	// OrderTTL when seat locks are refreshed at order creation, so the
	// locks always outlive the order they protect.
	HoldTTL        time.Duration
	OrderTTL       time.Duration
	OrderLockGrace time.Duration

	MaxSeatsPerBooking int
	SeatmapCacheTTL    time.Duration

	// JWTSecret is optional; when set, bearer tokens are verified and
	// their subject claim used as the caller identity.  The x-user-id
	// header always takes precedence (it stands in for a token already
	// decoded at the API gateway).
	JWTSecret string
}

// Load reads the configuration from the environment.  Missing required
// variables abort startup.
func Load() Config {
	return Config{
		Env:    getenv("APP_ENV", "dev"),
		Port:   getenv("APP_PORT", "8080"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		HoldTTL:        time.Duration(envInt("HOLD_TTL_SECONDS", 300)) * time.Second,
		OrderTTL:       time.Duration(envInt("ORDER_TTL_SECONDS", 300)) * time.Second,
		OrderLockGrace: time.Duration(envInt("ORDER_LOCK_GRACE_SECONDS", 30)) * time.Second,

		MaxSeatsPerBooking: envInt("MAX_SEATS_PER_BOOKING", 10),
		SeatmapCacheTTL:    time.Duration(envInt("SEATMAP_CACHE_TTL", 10)) * time.Second,

		JWTSecret: os.Getenv("JWT_SECRET"),
	}
}

// BlockedSeats maps a theatre ID to the set of seats that may never be
// held or booked there (broken seats, obstructed views).  Theatres
// without an explicit entry use the Default set.
type BlockedSeats struct {
	Default   map[string]struct{}
	ByTheatre map[string]map[string]struct{}
}

// LoadBlockedSeats parses BLOCKED_SEATS_DEFAULT ("A5,B10,C8") and
// BLOCKED_SEATS ("<theatreId>=A5|B10;<theatreId>=C8").  The historical
// default set applies when neither variable is present.
func LoadBlockedSeats() BlockedSeats {
	bs := BlockedSeats{
		Default:   seatSet(strings.Split(getenv("BLOCKED_SEATS_DEFAULT", "A5,B10,C8"), ",")),
		ByTheatre: map[string]map[string]struct{}{},
	}
	for _, entry := range strings.Split(os.Getenv("BLOCKED_SEATS"), ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		theatreID, seats, ok := strings.Cut(entry, "=")
		if !ok || theatreID == "" {
			log.Printf("config: ignoring malformed BLOCKED_SEATS entry %q", entry)
			continue
		}
		bs.ByTheatre[theatreID] = seatSet(strings.Split(seats, "|"))
	}
	return bs
}

// ForTheatre returns the blocked set for a theatre, falling back to the
// default set.
func (b BlockedSeats) ForTheatre(theatreID string) map[string]struct{} {
	if s, ok := b.ByTheatre[theatreID]; ok {
		return s
	}
	return b.Default
}

func seatSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(strings.ToUpper(id))
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	log.Printf("config: invalid int for %s: %q; using default %d", k, v, d)
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
