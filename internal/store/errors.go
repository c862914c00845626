package store

import (
	"errors"
	"strings"
)

// ErrDuplicateKey is returned when an insert violates a unique constraint,
// e.g. a second late-fee charge carrying the same idempotency key.
var ErrDuplicateKey = errors.New("duplicate key")

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
