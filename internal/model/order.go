package model

import "time"

// Order statuses.  CONFIRMED is terminal; PAYMENT_PENDING lapses to
// EXPIRED when the payment window closes without confirmation.
const (
	OrderPaymentPending = "PAYMENT_PENDING"
	OrderConfirmed      = "CONFIRMED"
	OrderExpired        = "EXPIRED"
	OrderCancelled      = "CANCELLED"
)

// Customer is the contact block captured at order creation.  It is
// denormalized onto the order row so notification consumers never need
// a user lookup.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order is the durable record of intent to pay for specific seats.
// Rows are inserted at order creation with status PAYMENT_PENDING and
// transition to CONFIRMED via a conditional update; there is no
// transition out of CONFIRMED.  TicketCode is set exactly when the
// order is confirmed.
//
// MovieTitle, TheatreName and StartTime are join-time context for
// reads; they are not columns of the orders table.
type Order struct {
	OrderID    string
	HoldID     string
	UserID     string
	ShowID     string
	SeatIDs    []string
	Customer   Customer
	Amount     float64
	Status     string
	TicketCode string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	UpdatedAt  time.Time

	MovieTitle  string
	TheatreID   string
	TheatreName string
	StartTime   time.Time
}

// PaymentWindowOpen reports whether a pending order can still be
// confirmed.
func (o *Order) PaymentWindowOpen(now time.Time) bool {
	return o.Status == OrderPaymentPending && !now.After(o.ExpiresAt)
}
