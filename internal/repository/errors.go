// Package repository is the durable-store adapter: transactional
// persistence of orders plus read access to the catalogue (movies,
// theatres, shows) and the confirmed-seat sets derived from orders.
// This file defines sentinel errors shared across repositories so the
// layers above can distinguish failure scenarios with errors.Is.
package repository

import "errors"

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrMovieNotFound indicates that a movie was not located in the DB.
var ErrMovieNotFound = errors.New("movie not found")

// ErrOrderNotFound indicates that an order was not located in the DB.
var ErrOrderNotFound = errors.New("order not found")

// ErrSeatAlreadyBooked is returned when the order_seats uniqueness
// index rejects a confirmation because one of the seats already
// belongs to a confirmed order for the same show.  The coordinator's
// locks make this unreachable in normal operation; the index is the
// backstop that keeps invariant damage impossible rather than unlikely.
var ErrSeatAlreadyBooked = errors.New("seat already booked for this show")
