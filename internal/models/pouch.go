package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pouch statuses.
const (
	PouchHolding  = "holding"
	PouchReleased = "released"
	PouchRefunded = "refunded"
)

// Pouch kinds. An appointment has at most one pouch of each kind.
const (
	PouchKindApproval   = "approval"
	PouchKindSettlement = "settlement"
)

// Pouch is an escrow holding of a stylist's share of a booking.
type Pouch struct {
	ID            uuid.UUID       `json:"id"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	StylistID     uuid.UUID       `json:"stylist_id"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          string          `json:"kind"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
}
