package services

import (
	"errors"
	"fmt"

	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/lock"
	"github.com/stylebook/backend/internal/models"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidCode            = errors.New("invalid code")
	ErrAlreadyResolved        = errors.New("dispute already resolved")
	ErrRefundExceedsAmount    = errors.New("refund exceeds appointment amount")
	ErrForbidden              = errors.New("forbidden")

	ErrAlreadyProcessed    = ledger.ErrAlreadyProcessed
	ErrInsufficientBalance = ledger.ErrInsufficientBalance
	ErrNotFound            = models.ErrNotFound
	ErrBusy                = lock.ErrBusy
)

// ReasonError carries the sentence shown to the user next to the sentinel
// callers match on with errors.Is.
type ReasonError struct {
	Kind   error
	Reason string
}

func (e *ReasonError) Error() string { return e.Kind.Error() + ": " + e.Reason }
func (e *ReasonError) Unwrap() error { return e.Kind }

func reason(kind error, format string, args ...any) error {
	return &ReasonError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Reason returns the user-facing sentence of err, or "" when it has none.
func Reason(err error) string {
	var re *ReasonError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
