package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatIDPattern(t *testing.T) {
	valid := []string{"A1", "B12", "J10", "Z99"}
	for _, s := range valid {
		assert.True(t, seatIDPattern.MatchString(s), "expected %s to be valid", s)
	}
	invalid := []string{"", "A", "1A", "a1", "A100", "AA1", "A-1", " A1"}
	for _, s := range invalid {
		assert.False(t, seatIDPattern.MatchString(s), "expected %s to be invalid", s)
	}
}

func TestEmailPattern(t *testing.T) {
	valid := []string{"a@b.co", "first.last+tag@sub.example.com", "user_name%x@example.in"}
	for _, s := range valid {
		assert.True(t, emailPattern.MatchString(s), "expected %s to be valid", s)
	}
	invalid := []string{"", "plain", "@example.com", "a@b", "a b@c.com"}
	for _, s := range invalid {
		assert.False(t, emailPattern.MatchString(s), "expected %s to be invalid", s)
	}
}

func TestPhoneNormalizationAndPattern(t *testing.T) {
	valid := []string{"9876543210", "+919876543210", "98765 43210", "98765-43210"}
	for _, s := range valid {
		assert.True(t, phonePattern.MatchString(normalizePhone(s)), "expected %s to be valid", s)
	}
	invalid := []string{"", "1234567890", "987654321", "98765432100", "5876543210"}
	for _, s := range invalid {
		assert.False(t, phonePattern.MatchString(normalizePhone(s)), "expected %s to be invalid", s)
	}
}

func TestValidUUID(t *testing.T) {
	assert.True(t, validUUID("c2a9f3d4-7b1e-4c8a-9f2d-3e5b7a90c1d2"))
	// v1 UUIDs are rejected: identifiers in this system are v4 only.
	assert.False(t, validUUID("8c9e6f2a-0b1c-11ee-be56-0242ac120002"))
	assert.False(t, validUUID("not-a-uuid"))
	assert.False(t, validUUID(""))
}
