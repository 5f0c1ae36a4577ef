package ledger

import "errors"

var (
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrMissingReference         = errors.New("transaction reference is required")
	ErrDuplicateReference       = errors.New("duplicate transaction reference")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrDuplicatePouch           = errors.New("pouch already exists for appointment")
	ErrAlreadyProcessed         = errors.New("already processed")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status change")

	// ErrConsistency means a ledger record and its balance adjustment diverged.
	// The unit of work must be rolled back.
	ErrConsistency = errors.New("ledger consistency violation")
)
