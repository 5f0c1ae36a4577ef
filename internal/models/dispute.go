package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dispute statuses.
const (
	DisputeOpen       = "open"
	DisputeInProgress = "in_progress"
	DisputeResolved   = "resolved"
	DisputeClosed     = "closed"
)

// Dispute priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityRisky  = "risky"
)

// Dispute originators.
const (
	OriginatorCustomer = "customer"
	OriginatorStylist  = "stylist"
)

// Resolution types.
const (
	ResolutionRefundCustomer     = "refund_customer"
	ResolutionSplitRefund        = "split_refund"
	ResolutionCompleteForStylist = "complete_for_stylist"
	ResolutionNoAction           = "no_action"
)

type AppointmentDispute struct {
	ID                uuid.UUID        `json:"id"`
	AppointmentID     uuid.UUID        `json:"appointment_id"`
	CustomerID        uuid.UUID        `json:"customer_id"`
	StylistID         uuid.UUID        `json:"stylist_id"`
	Originator        string           `json:"originator"`
	Comment           string           `json:"comment"`
	ImagePaths        []string         `json:"image_paths,omitempty"`
	Status            string           `json:"status"`
	Priority          string           `json:"priority"`
	ResolutionType    *string          `json:"resolution_type,omitempty"`
	ResolutionAmount  *decimal.Decimal `json:"resolution_amount,omitempty"`
	StylistAmount     *decimal.Decimal `json:"stylist_amount,omitempty"`
	ResolutionComment string           `json:"resolution_comment,omitempty"`
	ResolvedBy        *uuid.UUID       `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Unresolved reports whether an arbitrator can still act on the dispute.
func (d *AppointmentDispute) Unresolved() bool {
	return d.Status == DisputeOpen || d.Status == DisputeInProgress
}
