package booking

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Domain validation rules.  The HTTP layer already checks DTO shape
// (required fields) via the request validator; the rules here are the
// ones that define the domain (seat-id syntax, email format, the
// supported phone format, quantity agreement) and they run regardless
// of which transport invoked the core.
var (
	seatIDPattern = regexp.MustCompile(`^[A-Z]\d{1,2}$`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern  = regexp.MustCompile(`^[6-9]\d{9}$`) // Indian mobile numbers
)

// HoldRequest is the create-hold input.  Quantity is redundant with
// len(SeatIDs) by contract and exists so a client desync is caught
// before any lock is attempted.
type HoldRequest struct {
	ShowID   string   `json:"showId" validate:"required"`
	SeatIDs  []string `json:"seatIds" validate:"required,min=1"`
	Quantity int      `json:"quantity" validate:"required,min=1"`
}

// OrderRequest is the create-order input.
type OrderRequest struct {
	HoldID   string         `json:"holdId" validate:"required"`
	Customer model.Customer `json:"customer" validate:"required"`
}

// validUUID accepts version-4 UUIDs in any form uuid.Parse understands
// (hyphenated, braced, urn:uuid: prefixed or unhyphenated).
func validUUID(s string) bool {
	u, err := uuid.Parse(s)
	return err == nil && u.Version() == 4
}

// normalizePhone strips the +91 prefix and common separators before
// the format check.
func normalizePhone(phone string) string {
	phone = strings.TrimPrefix(phone, "+91")
	phone = strings.ReplaceAll(phone, " ", "")
	return strings.ReplaceAll(phone, "-", "")
}

func (s *Service) validateHoldRequest(req HoldRequest) *Error {
	if !validUUID(req.ShowID) {
		return fail(KindValidation, "invalid showId format")
	}
	if len(req.SeatIDs) == 0 {
		return fail(KindValidation, "seatIds must be a non-empty list")
	}
	if req.Quantity != len(req.SeatIDs) {
		return fail(KindValidation, "quantity must match number of seat IDs")
	}
	if req.Quantity > s.MaxSeats {
		return fail(KindValidation, "cannot book more than %d seats", s.MaxSeats)
	}
	seen := make(map[string]struct{}, len(req.SeatIDs))
	for _, sid := range req.SeatIDs {
		if !seatIDPattern.MatchString(sid) {
			return fail(KindValidation, "invalid seat ID format: %s", sid)
		}
		if _, dup := seen[sid]; dup {
			return fail(KindValidation, "duplicate seat ID: %s", sid)
		}
		seen[sid] = struct{}{}
	}
	return nil
}

func validateOrderRequest(req OrderRequest) *Error {
	if !validUUID(req.HoldID) {
		return fail(KindValidation, "invalid holdId format")
	}
	c := req.Customer
	if strings.TrimSpace(c.Name) == "" {
		return fail(KindValidation, "customer name is required")
	}
	if !emailPattern.MatchString(c.Email) {
		return fail(KindValidation, "invalid email format")
	}
	if !phonePattern.MatchString(normalizePhone(c.Phone)) {
		return fail(KindValidation, "invalid phone number format")
	}
	return nil
}
