package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Appointment statuses.
const (
	AppointmentProcessing  = "processing"
	AppointmentPending     = "pending"
	AppointmentApproved    = "approved"
	AppointmentConfirmed   = "confirmed"
	AppointmentCompleted   = "completed"
	AppointmentCanceled    = "canceled"
	AppointmentEscalated   = "escalated"
	AppointmentRescheduled = "rescheduled"
)

// Funding sources for a booking.
const (
	FundingGateway = "gateway"
	FundingWallet  = "wallet"
)

type Appointment struct {
	ID                  uuid.UUID       `json:"id"`
	BookingCode         string          `json:"booking_code"`
	AppointmentCodeHash string          `json:"-"`
	CompletionCodeHash  string          `json:"-"`
	CustomerID          uuid.UUID       `json:"customer_id"`
	StylistID           uuid.UUID       `json:"stylist_id"`
	PortfolioID         *uuid.UUID      `json:"portfolio_id,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	FundingSource       string          `json:"funding_source"`
	ScheduledDate       time.Time       `json:"scheduled_date"`
	ScheduledTime       string          `json:"scheduled_time"`
	DurationMinutes     int             `json:"duration_minutes"`
	Status              string          `json:"status"`
	PreviousStatus      string          `json:"previous_status,omitempty"`
	StylistNote         string          `json:"stylist_note,omitempty"`
	ServiceNotes        string          `json:"service_notes,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	DeletedAt           *time.Time      `json:"-"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Active reports whether a dispute can still be filed against the appointment.
func (a *Appointment) Active() bool {
	switch a.Status {
	case AppointmentPending, AppointmentApproved, AppointmentConfirmed:
		return true
	}
	return false
}
