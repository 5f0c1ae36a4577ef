package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal and deposit request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDeclined = "declined"
)

// Withdrawal is a stylist payout request. The amount is debited from the
// balance when the request is created.
type Withdrawal struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id,omitempty"`
	Status          string          `json:"status"`
	Note            string          `json:"note,omitempty"`
	ProcessedBy     *uuid.UUID      `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Deposit is a wallet top-up awaiting confirmation by an admin.
type Deposit struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id,omitempty"`
	Status          string          `json:"status"`
	Note            string          `json:"note,omitempty"`
	ProcessedBy     *uuid.UUID      `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
