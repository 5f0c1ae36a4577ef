package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types. The sign of a movement is implied by the type and owner,
// the stored amount is always positive.
const (
	TransactionPayment      = "payment"
	TransactionRefund       = "refund"
	TransactionEarning      = "earning"
	TransactionWithdraw     = "withdraw"
	TransactionSubscription = "subscription"
	TransactionOther        = "other"
)

// Transaction statuses.
const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
	TransactionApproved  = "approved"
	TransactionDeclined  = "declined"
	TransactionReversed  = "reversed"
)

type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Reference     string          `json:"reference"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Settled reports whether the entry counts towards fund conservation.
func (t *Transaction) Settled() bool {
	return t.Status == TransactionCompleted || t.Status == TransactionApproved
}
