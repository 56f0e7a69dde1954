package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a booking id is unknown
	ErrNotFound = errors.New("booking not found")
	// ErrConflict is returned when the requested dates overlap a live booking
	ErrConflict = errors.New("property is already booked for the selected dates")
	// ErrInvalidTransition is returned for status moves outside the transition table
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStaleBooking is returned by Repository.Update when the stored
	// version no longer matches the one that was read
	ErrStaleBooking = errors.New("booking was modified concurrently")
)

// IsConflict reports whether err should be surfaced as a conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidTransition)
}

// ValidationError is returned for a missing or malformed input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Missing required field: " + e.Field
}

func missingField(field string) error {
	return &ValidationError{Field: field}
}

func invalidField(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
