package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// mysqlDupEntry is the MySQL error number for a violated unique index.
const mysqlDupEntry = 1062

// OrderRepo provides transactional persistence for orders.  Seat lists
// are stored on the order row as a JSON array; at confirmation the
// seats are additionally expanded into order_seats rows whose
// (show_id, seat_id) uniqueness index backstops the coordinator.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo constructs an OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create inserts a PAYMENT_PENDING order in a single transaction.  The
// caller supplies a fully-populated order; timestamps are stored in
// UTC.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	seats, err := json.Marshal(o.SeatIDs)
	if err != nil {
		return fmt.Errorf("marshal seat ids: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `INSERT INTO orders
	           (order_id, hold_id, user_id, show_id, seat_ids,
	            customer_name, customer_email, customer_phone,
	            amount, status, created_at, expires_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		o.OrderID, o.HoldID, o.UserID, o.ShowID, seats,
		o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		o.Amount, o.Status,
		o.CreatedAt.UTC(), o.ExpiresAt.UTC(), o.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads an order together with the denormalized show context
// used by read responses and event payloads.  Returns ErrOrderNotFound
// when no row matches.
func (r *OrderRepo) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	const q = `SELECT o.order_id, o.hold_id, o.user_id, o.show_id, o.seat_ids,
	                  o.customer_name, o.customer_email, o.customer_phone,
	                  o.amount, o.status, o.ticket_code,
	                  o.created_at, o.expires_at, o.updated_at,
	                  s.start_time, s.theatre_id, m.title, t.name
	           FROM orders o
	           JOIN shows s ON o.show_id = s.show_id
	           JOIN movies m ON s.movie_id = m.movie_id
	           JOIN theatres t ON s.theatre_id = t.theatre_id
	           WHERE o.order_id = ?`
	var (
		o      model.Order
		seats  []byte
		ticket sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, orderID).Scan(
		&o.OrderID, &o.HoldID, &o.UserID, &o.ShowID, &seats,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&o.Amount, &o.Status, &ticket,
		&o.CreatedAt, &o.ExpiresAt, &o.UpdatedAt,
		&o.StartTime, &o.TheatreID, &o.MovieTitle, &o.TheatreName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seats, &o.SeatIDs); err != nil {
		return nil, fmt.Errorf("decode seat ids of order %s: %w", orderID, err)
	}
	if ticket.Valid {
		o.TicketCode = ticket.String
	}
	return &o, nil
}

// ConfirmPayment transitions an order to CONFIRMED with compare-and-set
// semantics: the UPDATE is scoped to status = PAYMENT_PENDING, and a
// zero row count means someone else already transitioned the order (or
// the expiry sweep got there first).  In the same transaction the seats
// are expanded into order_seats rows; a duplicate-key rejection there
// surfaces as ErrSeatAlreadyBooked and rolls the confirmation back.
func (r *OrderRepo) ConfirmPayment(ctx context.Context, orderID, ticketCode, showID string, seatIDs []string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const upd = `UPDATE orders
	             SET status = 'CONFIRMED', ticket_code = ?, updated_at = ?
	             WHERE order_id = ? AND status = 'PAYMENT_PENDING'`
	res, err := tx.ExecContext(ctx, upd, ticketCode, now.UTC(), orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if len(seatIDs) > 0 {
		ins := `INSERT INTO order_seats (show_id, seat_id, order_id) VALUES `
		args := make([]interface{}, 0, len(seatIDs)*3)
		for i, sid := range seatIDs {
			if i > 0 {
				ins += ","
			}
			ins += "(?, ?, ?)"
			args = append(args, showID, sid, orderID)
		}
		if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == mysqlDupEntry {
				return false, ErrSeatAlreadyBooked
			}
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// ConfirmedSeatsForShow returns the union of seat IDs across all
// CONFIRMED orders of a show.  The per-order seat sets are pairwise
// disjoint (order_seats enforces it), so the union is duplicate-free.
func (r *OrderRepo) ConfirmedSeatsForShow(ctx context.Context, showID string) ([]string, error) {
	const q = `SELECT seat_ids FROM orders WHERE show_id = ? AND status = 'CONFIRMED'`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var confirmed []string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var seats []string
		if err := json.Unmarshal(raw, &seats); err != nil {
			return nil, fmt.Errorf("decode confirmed seats for show %s: %w", showID, err)
		}
		confirmed = append(confirmed, seats...)
	}
	return confirmed, rows.Err()
}

// ExpiredOrder describes an order the expiry sweep moved to EXPIRED.
type ExpiredOrder struct {
	OrderID string
	UserID  string
	ShowID  string
	SeatIDs []string
}

// ExpirePending marks every PAYMENT_PENDING order whose payment window
// has closed as EXPIRED and returns the affected orders.  The rows are
// locked FOR UPDATE and the UPDATE is re-scoped to the pending status,
// so an order confirmed before the sweep reaches it is never
// overwritten; a confirmation that arrives after the lock finds the
// order EXPIRED and affects zero rows.
func (r *OrderRepo) ExpirePending(ctx context.Context, now time.Time) ([]ExpiredOrder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	rows, err := tx.QueryContext(ctx,
		`SELECT order_id, user_id, show_id, seat_ids
		 FROM orders
		 WHERE status = 'PAYMENT_PENDING' AND expires_at <= ?
		 FOR UPDATE`, now.UTC())
	if err != nil {
		return nil, err
	}
	var lapsed []ExpiredOrder
	for rows.Next() {
		var (
			eo  ExpiredOrder
			raw []byte
		)
		if err := rows.Scan(&eo.OrderID, &eo.UserID, &eo.ShowID, &raw); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal(raw, &eo.SeatIDs); err != nil {
			rows.Close()
			return nil, err
		}
		lapsed = append(lapsed, eo)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(lapsed) == 0 {
		return nil, tx.Commit()
	}
	ids := make([]string, len(lapsed))
	args := make([]interface{}, 0, len(lapsed)+1)
	args = append(args, now.UTC())
	for i, eo := range lapsed {
		ids[i] = "?"
		args = append(args, eo.OrderID)
	}
	upd := fmt.Sprintf(
		`UPDATE orders SET status = 'EXPIRED', updated_at = ?
		 WHERE order_id IN (%s) AND status = 'PAYMENT_PENDING'`,
		strings.Join(ids, ","))
	if _, err := tx.ExecContext(ctx, upd, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return lapsed, nil
}
