package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrConflict          = errors.New("resource conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyInitiated  = errors.New("payment already initiated")
	ErrHoldExpired       = errors.New("hold expired, please rebook")
	ErrInvalidHold       = errors.New("invalid hold input")
)

// ConflictError carries the ids of the reservations that already occupy the
// requested resources. errors.Is(err, ErrConflict) matches it.
type ConflictError struct {
	Conflicts []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource conflict with bookings [%s]", strings.Join(e.Conflicts, ","))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
