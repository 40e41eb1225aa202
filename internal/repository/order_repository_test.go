package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Integration tests against a real MySQL with schema.sql applied.  Set
// BOOKING_TEST_DSN (e.g. "booking:booking@tcp(localhost:3306)/booking_test
// ?charset=utf8mb4&parseTime=true&loc=UTC") to enable them; they skip
// otherwise.  Each test creates its own movie/theatre/show fixture under
// fresh UUIDs so runs never collide.

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("BOOKING_TEST_DSN")
	if dsn == "" {
		t.Skip("skipping: BOOKING_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		t.Skipf("skipping: database not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedShow(t *testing.T, db *sql.DB, price float64) *model.Show {
	t.Helper()
	ctx := context.Background()
	movieID := uuid.NewString()
	theatreID := uuid.NewString()
	showID := uuid.NewString()
	start := time.Now().UTC().Add(4 * time.Hour).Truncate(time.Second)

	_, err := db.ExecContext(ctx,
		`INSERT INTO movies (movie_id, title, rating, duration_mins) VALUES (?, ?, 8.5, 148)`,
		movieID, "Test Feature")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO theatres (theatre_id, name, seat_rows, seats_per_row) VALUES (?, ?, 10, 10)`,
		theatreID, "Test Theatre")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO shows (show_id, movie_id, theatre_id, start_time, price) VALUES (?, ?, ?, ?, ?)`,
		showID, movieID, theatreID, start, price)
	require.NoError(t, err)

	return &model.Show{ShowID: showID, MovieID: movieID, TheatreID: theatreID, StartTime: start, Price: price}
}

func pendingOrder(show *model.Show, seats []string) *model.Order {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Order{
		OrderID: uuid.NewString(),
		HoldID:  uuid.NewString(),
		UserID:  "user-1",
		ShowID:  show.ShowID,
		SeatIDs: seats,
		Customer: model.Customer{
			Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210",
		},
		Amount:    float64(len(seats)) * show.Price,
		Status:    model.OrderPaymentPending,
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}

func TestOrderCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewOrderRepo(db)
	show := seedShow(t, db, 150)
	ctx := context.Background()

	o := pendingOrder(show, []string{"A1", "A2"})
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, o.UserID, got.UserID)
	assert.Equal(t, []string{"A1", "A2"}, got.SeatIDs)
	assert.Equal(t, model.OrderPaymentPending, got.Status)
	assert.Empty(t, got.TicketCode)
	assert.Equal(t, "Test Feature", got.MovieTitle)
	assert.Equal(t, "Test Theatre", got.TheatreName)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestConfirmPaymentIsCompareAndSet(t *testing.T) {
	db := testDB(t)
	repo := NewOrderRepo(db)
	show := seedShow(t, db, 150)
	ctx := context.Background()

	o := pendingOrder(show, []string{"B1"})
	require.NoError(t, repo.Create(ctx, o))

	ok, err := repo.ConfirmPayment(ctx, o.OrderID, "BMSABCDEF01", show.ShowID, o.SeatIDs, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	// A second confirmation affects zero rows.
	ok, err = repo.ConfirmPayment(ctx, o.OrderID, "BMSABCDEF02", show.ShowID, o.SeatIDs, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, got.Status)
	assert.Equal(t, "BMSABCDEF01", got.TicketCode, "the losing confirm must not overwrite the ticket code")
}

func TestConfirmPaymentRejectsDoubleBookedSeat(t *testing.T) {
	db := testDB(t)
	repo := NewOrderRepo(db)
	show := seedShow(t, db, 150)
	ctx := context.Background()

	first := pendingOrder(show, []string{"C1", "C2"})
	require.NoError(t, repo.Create(ctx, first))
	ok, err := repo.ConfirmPayment(ctx, first.OrderID, "BMS11111111", show.ShowID, first.SeatIDs, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	// A second order for an overlapping seat trips the uniqueness
	// index and the whole confirmation rolls back.
	second := pendingOrder(show, []string{"C2", "C3"})
	require.NoError(t, repo.Create(ctx, second))
	_, err = repo.ConfirmPayment(ctx, second.OrderID, "BMS22222222", show.ShowID, second.SeatIDs, time.Now().UTC())
	assert.ErrorIs(t, err, ErrSeatAlreadyBooked)

	got, err := repo.GetByID(ctx, second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentPending, got.Status, "a rejected confirmation must leave the order pending")
}

func TestConfirmedSeatsForShow(t *testing.T) {
	db := testDB(t)
	repo := NewOrderRepo(db)
	show := seedShow(t, db, 150)
	ctx := context.Background()

	first := pendingOrder(show, []string{"D1", "D2"})
	require.NoError(t, repo.Create(ctx, first))
	ok, err := repo.ConfirmPayment(ctx, first.OrderID, "BMS33333333", show.ShowID, first.SeatIDs, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	// Pending orders do not count as confirmed seats.
	pending := pendingOrder(show, []string{"D3"})
	require.NoError(t, repo.Create(ctx, pending))

	seats, err := repo.ConfirmedSeatsForShow(ctx, show.ShowID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"D1", "D2"}, seats)
}

func TestExpirePending(t *testing.T) {
	db := testDB(t)
	repo := NewOrderRepo(db)
	show := seedShow(t, db, 150)
	ctx := context.Background()

	stale := pendingOrder(show, []string{"E1"})
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, stale))

	fresh := pendingOrder(show, []string{"E2"})
	require.NoError(t, repo.Create(ctx, fresh))

	lapsed, err := repo.ExpirePending(ctx, time.Now().UTC())
	require.NoError(t, err)

	var found bool
	for _, eo := range lapsed {
		if eo.OrderID == stale.OrderID {
			found = true
			assert.Equal(t, []string{"E1"}, eo.SeatIDs)
		}
		assert.NotEqual(t, fresh.OrderID, eo.OrderID, "unexpired orders must be left alone")
	}
	assert.True(t, found)

	got, err := repo.GetByID(ctx, stale.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderExpired, got.Status)

	got, err = repo.GetByID(ctx, fresh.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentPending, got.Status)
}
