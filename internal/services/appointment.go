package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/codes"
	"github.com/stylebook/backend/internal/commission"
	"github.com/stylebook/backend/internal/database"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/notify"
)

type AppointmentRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, a *models.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Appointment, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, a *models.Appointment) error
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*models.Appointment, error)
}

type DisputeRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, d *models.AppointmentDispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AppointmentDispute, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.AppointmentDispute, error)
	FindUnresolvedByAppointmentTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) (*models.AppointmentDispute, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, d *models.AppointmentDispute) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*models.AppointmentDispute, error)
}

// AppointmentService drives the appointment state machine. Every transition
// runs under the appointment's lock in one unit of work: row lock, guard,
// ledger writes, status write, commit, then events and notifications.
type AppointmentService struct {
	*Engine
	Appointments AppointmentRepo
	Disputes     DisputeRepo
	Codes        *codes.Generator
}

func NewAppointmentService(engine *Engine, appointments AppointmentRepo, disputes DisputeRepo, gen *codes.Generator) *AppointmentService {
	return &AppointmentService{Engine: engine, Appointments: appointments, Disputes: disputes, Codes: gen}
}

// transition describes one edge of the state machine.
type transition struct {
	name      string
	from      []string
	to        string
	reason    string
	authorize func(actor Actor, a *models.Appointment) error
	// apply runs after the source status is checked and before the new
	// status is written. It may reject the transition (e.g. wrong code).
	apply   func(ctx context.Context, w *database.Work, a *models.Appointment) error
	after   func(w *database.Work, a *models.Appointment, previous string)
	message string
}

func (s *AppointmentService) run(ctx context.Context, actor Actor, id uuid.UUID, t transition) (*Result[*models.Appointment], error) {
	var out *models.Appointment
	var previous string
	err := s.withLock(ctx, appointmentKey(id), func() error {
		return s.UoW.Do(ctx, func(w *database.Work) error {
			a, err := s.Appointments.GetByIDForUpdate(ctx, w.Tx, id)
			if err != nil {
				return fmt.Errorf("appointment %s: %w", id, err)
			}
			if t.authorize != nil {
				if err := t.authorize(actor, a); err != nil {
					return err
				}
			}
			if !slices.Contains(t.from, a.Status) {
				if a.Status == t.to {
					return reason(ErrAlreadyProcessed, "This appointment is already %s.", t.to)
				}
				return reason(ErrInvalidStateTransition, "%s", t.reason)
			}
			previous = a.Status
			if t.apply != nil {
				if err := t.apply(ctx, w, a); err != nil {
					return err
				}
			}
			a.Status = t.to
			if err := s.Appointments.UpdateTx(ctx, w.Tx, a); err != nil {
				return fmt.Errorf("update appointment %s: %w", id, err)
			}
			s.statusChanged(w, a, previous)
			if t.after != nil {
				t.after(w, a, previous)
			}
			out = a
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("appointment transitioned", "appointment_id", id, "action", t.name, "from", previous, "to", t.to, "actor_id", actor.ID)
	return ok(t.message, out), nil
}

func onlyStylist(action string) func(Actor, *models.Appointment) error {
	return func(actor Actor, a *models.Appointment) error {
		if actor.ID != a.StylistID {
			return reason(ErrForbidden, "Only the stylist of this appointment can %s it.", action)
		}
		return nil
	}
}

func onlyCustomer(action string) func(Actor, *models.Appointment) error {
	return func(actor Actor, a *models.Appointment) error {
		if actor.ID != a.CustomerID {
			return reason(ErrForbidden, "Only the customer of this appointment can %s it.", action)
		}
		return nil
	}
}

func onlyAdmin(actor Actor, _ *models.Appointment) error {
	if !actor.IsAdmin() {
		return reason(ErrForbidden, "Only an administrator can do this.")
	}
	return nil
}

func participantOrAdmin(actor Actor, a *models.Appointment) error {
	if actor.IsAdmin() || actor.ID == a.CustomerID || actor.ID == a.StylistID {
		return nil
	}
	return reason(ErrForbidden, "You are not part of this appointment.")
}

// ---------------------------------------------------------------------------
// Booking
// ---------------------------------------------------------------------------

type BookInput struct {
	CustomerID      uuid.UUID       `json:"customer_id" validate:"required"`
	StylistID       uuid.UUID       `json:"stylist_id" validate:"required"`
	PortfolioID     *uuid.UUID      `json:"portfolio_id"`
	Amount          decimal.Decimal `json:"amount"`
	FundingSource   string          `json:"funding_source" validate:"required,oneof=gateway wallet"`
	ScheduledDate   time.Time       `json:"scheduled_date" validate:"required"`
	ScheduledTime   string          `json:"scheduled_time" validate:"required,datetime=15:04"`
	DurationMinutes int             `json:"duration_minutes" validate:"gte=0,lte=1440"`
	ServiceNotes    string          `json:"service_notes" validate:"max=2000"`
}

// Booking is returned once at booking time; the plaintext codes are never
// stored or shown again.
type Booking struct {
	Appointment     *models.Appointment `json:"appointment"`
	AppointmentCode string              `json:"appointment_code"`
	CompletionCode  string              `json:"completion_code"`
}

// Book creates an appointment. Wallet bookings debit the customer at once and
// start pending; gateway bookings start processing until the payment is
// verified.
func (s *AppointmentService) Book(ctx context.Context, actor Actor, in BookInput) (*Result[*Booking], error) {
	if actor.ID != in.CustomerID && !actor.IsAdmin() {
		return nil, reason(ErrForbidden, "You can only book appointments for yourself.")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	amount := commission.Round(in.Amount)
	if !amount.IsPositive() {
		return nil, reason(ErrValidation, "Amount must be greater than zero.")
	}
	if in.CustomerID == in.StylistID {
		return nil, reason(ErrValidation, "You cannot book an appointment with yourself.")
	}
	stylist, err := s.Users.GetByID(ctx, in.StylistID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, reason(ErrNotFound, "Stylist not found.")
	}
	if err != nil {
		return nil, err
	}
	if stylist.Role != models.RoleStylist {
		return nil, reason(ErrValidation, "The selected user is not a stylist.")
	}

	bookingCode, err := s.Codes.BookingCode()
	if err != nil {
		return nil, err
	}
	secrets, err := s.Codes.NewSecrets()
	if err != nil {
		return nil, err
	}
	duration := in.DurationMinutes
	if duration == 0 {
		duration = 60
	}
	a := &models.Appointment{
		ID:                  uuid.New(),
		BookingCode:         bookingCode,
		AppointmentCodeHash: secrets.AppointmentCodeHash,
		CompletionCodeHash:  secrets.CompletionCodeHash,
		CustomerID:          in.CustomerID,
		StylistID:           in.StylistID,
		PortfolioID:         in.PortfolioID,
		Amount:              amount,
		FundingSource:       in.FundingSource,
		ScheduledDate:       in.ScheduledDate,
		ScheduledTime:       in.ScheduledTime,
		DurationMinutes:     duration,
		Status:              models.AppointmentProcessing,
		ServiceNotes:        in.ServiceNotes,
	}
	if in.FundingSource == models.FundingWallet {
		a.Status = models.AppointmentPending
	}

	err = s.UoW.Do(ctx, func(w *database.Work) error {
		if err := s.Appointments.CreateTx(ctx, w.Tx, a); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		payment := ledger.Entry{
			UserID:        a.CustomerID,
			AppointmentID: &a.ID,
			Amount:        amount,
			Type:          models.TransactionPayment,
			Status:        models.TransactionPending,
			Reference:     ledger.Reference(models.TransactionPayment, a.ID),
			Description:   "Payment for " + a.BookingCode,
		}
		if a.FundingSource == models.FundingWallet {
			if _, err := s.Ledger.Debit(ctx, w.Tx, payment); err != nil {
				if errors.Is(err, ErrInsufficientBalance) {
					return reason(ErrInsufficientBalance, "Your wallet balance is too low for this booking.")
				}
				return err
			}
			s.announceBooking(w, a)
			return nil
		}
		_, err := s.Ledger.RecordTransaction(ctx, w.Tx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("appointment booked", "appointment_id", a.ID, "booking_code", a.BookingCode, "status", a.Status)
	return ok("Appointment booked.", &Booking{
		Appointment:     a,
		AppointmentCode: secrets.AppointmentCode,
		CompletionCode:  secrets.CompletionCode,
	}), nil
}

func (s *AppointmentService) announceBooking(w *database.Work, a *models.Appointment) {
	s.notifyUser(w, a.StylistID, appointmentLink(a.ID), "New booking request",
		fmt.Sprintf("Booking %s on %s at %s is waiting for your approval.", a.BookingCode, a.ScheduledDate.Format("2006-01-02"), a.ScheduledTime),
		notify.PriorityHigh)
	s.emailUser(w, a.StylistID, notify.TemplateAppointmentBooked, map[string]string{
		"booking_code": a.BookingCode,
		"scheduled":    a.ScheduledDate.Format("2006-01-02") + " " + a.ScheduledTime,
		"link":         s.link(appointmentLink(a.ID)),
	})
}

// VerifyPayment moves a gateway booking from processing to pending once the
// payment provider has confirmed the charge.
func (s *AppointmentService) VerifyPayment(ctx context.Context, actor Actor, id uuid.UUID) (*Result[*models.Appointment], error) {
	return s.run(ctx, actor, id, transition{
		name:      "verify_payment",
		from:      []string{models.AppointmentProcessing},
		to:        models.AppointmentPending,
		reason:    "Only appointments awaiting payment can be verified.",
		authorize: onlyAdmin,
		after: func(w *database.Work, a *models.Appointment, _ string) {
			s.announceBooking(w, a)
		},
		message: "Payment verified.",
	})
}

// ---------------------------------------------------------------------------
// Stylist decisions
// ---------------------------------------------------------------------------

// Approve splits the gross amount, escrows the stylist share and books the
// platform commission.
func (s *AppointmentService) Approve(ctx context.Context, actor Actor, id uuid.UUID, note string) (*Result[*models.Appointment], error) {
	return s.run(ctx, actor, id, transition{
		name:      "approve",
		from:      []string{models.AppointmentPending},
		to:        models.AppointmentApproved,
		reason:    "You can only approve a pending appointment.",
		authorize: onlyStylist("approve"),
		apply: func(ctx context.Context, w *database.Work, a *models.Appointment) error {
			rate, err := s.rate(ctx)
			if err != nil {
				return err
			}
			if err := s.lockParties(ctx, w.Tx, a); err != nil {
				return err
			}
			if _, err := s.openApproval(ctx, w.Tx, a, rate); err != nil {
				return err
			}
			if note != "" {
				a.StylistNote = note
			}
			return nil
		},
		after: func(w *database.Work, a *models.Appointment, _ string) {
			s.notifyUser(w, a.CustomerID, appointmentLink(a.ID), "Appointment approved",
				fmt.Sprintf("Your appointment %s has been approved.", a.BookingCode), notify.PriorityNormal)
			s.emailUser(w, a.CustomerID, notify.TemplateAppointmentApproved, map[string]string{
				"booking_code": a.BookingCode,
				"scheduled":    a.ScheduledDate.Format("2006-01-02") + " " + a.ScheduledTime,
				"link":         s.link(appointmentLink(a.ID)),
			})
		},
		message: "Appointment approved.",
	})
}

// Reject declines a pending booking and refunds the customer in full.
func (s *AppointmentService) Reject(ctx context.Context, actor Actor, id uuid.UUID, note string) (*Result[*models.Appointment], error) {
	return s.run(ctx, actor, id, transition{
		name:      "reject",
		from:      []string{models.AppointmentPending},
		to:        models.AppointmentCanceled,
		reason:    "You can only reject a pending appointment.",
		authorize: onlyStylist("reject"),
		apply: func(ctx context.Context, w *database.Work, a *models.Appointment) error {
			if note != "" {
				a.StylistNote = note
			}
			return s.cancelMoney(ctx, w.Tx, a, "Refund for rejected booking "+a.BookingCode)
		},
		after:   s.afterCancel,
		message: "Appointment rejected and the customer refunded.",
	})
}

// Cancel withdraws a booking before the service starts. Escrowed funds go
// back to the customer and the commission is reversed.
func (s *AppointmentService) Cancel(ctx context.Context, actor Actor, id uuid.UUID, note string) (*Result[*models.Appointment], error) {
	return s.run(ctx, actor, id, transition{
		name: "cancel",
		from: []string{
			models.AppointmentProcessing,
			models.AppointmentPending,
			models.AppointmentApproved,
			models.AppointmentRescheduled,
		},
		to:        models.AppointmentCanceled,
		reason:    "This appointment can no longer be canceled.",
		authorize: participantOrAdmin,
		apply: func(ctx context.Context, w *database.Work, a *models.Appointment) error {
			if note != "" && actor.ID == a.StylistID {
				a.StylistNote = note
			}
			if a.Status == models.AppointmentProcessing {
				// Never paid: nothing to refund.
				return s.setPaymentStatus(ctx, w.Tx, a, models.TransactionFailed)
			}
			return s.cancelMoney(ctx, w.Tx, a, "Refund for canceled booking "+a.BookingCode)
		},
		after:   s.afterCancel,
		message: "Appointment canceled.",
	})
}

func (s *AppointmentService) cancelMoney(ctx context.Context, tx pgx.Tx, a *models.Appointment, description string) error {
	if err := s.lockParties(ctx, tx, a); err != nil {
		return err
	}
	if err := s.unwindApproval(ctx, tx, a); err != nil {
		return err
	}
	if err := s.refundCustomer(ctx, tx, a, a.Amount, description); err != nil {
		return err
	}
	return s.completePayment(ctx, tx, a)
}

func (s *AppointmentService) afterCancel(w *database.Work, a *models.Appointment, previous string) {
	amount := money(a.Amount)
	if previous == models.AppointmentProcessing {
		amount = money(decimal.Zero)
	}
	for _, user := range []uuid.UUID{a.CustomerID, a.StylistID} {
		s.notifyUser(w, user, appointmentLink(a.ID), "Appointment canceled",
			fmt.Sprintf("Appointment %s was canceled.", a.BookingCode), notify.PriorityNormal)
	}
	s.emailUser(w, a.CustomerID, notify.TemplateAppointmentCanceled, map[string]string{
		"booking_code": a.BookingCode,
		"amount":       amount,
	})
}

// ---------------------------------------------------------------------------
// Rescheduling
// ---------------------------------------------------------------------------

type RescheduleInput struct {
	ScheduledDate   time.Time `json:"scheduled_date" validate:"required"`
	ScheduledTime   string    `json:"scheduled_time" validate:"required,datetime=15:04"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=0,lte=1440"`
}

// Reschedule proposes a new slot for a pending booking. The stylist has to
// accept it before the booking is pending again.
func (s *AppointmentService) Reschedule(ctx context.Context, actor Actor, id uuid.UUID, in RescheduleInput) (*Result[*models.Appointment], error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, id, transition{
		name:      "reschedule",
		from:      []string{models.AppointmentPending},
		to:        models.AppointmentRescheduled,
		reason:    "You can only reschedule a pending appointment.",
		authorize: onlyCustomer("reschedule"),
		apply: func(_ context.Context, _ *database.Work, a *models.Appointment) error {
			a.ScheduledDate = in.ScheduledDate
			a.ScheduledTime = in.ScheduledTime
			if in.DurationMinutes > 0 {
				a.DurationMinutes = in.DurationMinutes
			}
			return nil
		},
		after: func(w *database.Work, a *models.Appointment, _ string) {
			s.notifyUser(w, a.StylistID, appointmentLink(a.ID), "Reschedule requested",
				fmt.Sprintf("The customer asked to move %s to %s at %s.", a.BookingCode, a.ScheduledDate.Format("2006-01-02"), a.ScheduledTime),
				notify.PriorityHigh)
		},
		message: "Reschedule requested.",
	})
}

func (s *AppointmentService) AcceptReschedule(ctx context.Context, actor Actor, id uuid.UUID) (*Result[*models.Appointment], error) {
	return s.run(ctx, actor, id, transition{
		name:      "accept_reschedule",
		from:      []string{models.AppointmentRescheduled},
		to:        models.AppointmentPending,
		reason:    "There is no reschedule request to accept.",
		authorize: onlyStylist("accept the new time of"),
		after: func(w *database.Work, a *models.Appointment, _ string) {
			s.notifyUser(w, a.CustomerID, appointmentLink(a.ID), "New time accepted",
				fmt.Sprintf("The stylist accepted the new time for %s.", a.BookingCode), notify.PriorityNormal)
		},
		message: "New time accepted.",
	})
}

// ---------------------------------------------------------------------------
// Service day
// ---------------------------------------------------------------------------

// Confirm checks the appointment code the customer hands to the stylist at
// the start of the service. A wrong code changes nothing.
func (s *AppointmentService) Confirm(ctx context.Context, actor Actor, id uuid.UUID, code string) (*Result[*models.Appointment], error) {
	if code == "" {
		return nil, reason(ErrValidation, "The appointment code is required.")
	}
	return s.run(ctx, actor, id, transition{
		name:      "confirm",
		from:      []string{models.AppointmentApproved},
		to:        models.AppointmentConfirmed,
		reason:    "You can only confirm an approved appointment.",
		authorize: onlyStylist("confirm"),
		apply: func(_ context.Context, _ *database.Work, a *models.Appointment) error {
			if err := codes.Verify(a.AppointmentCodeHash, code); err != nil {
				return reason(ErrInvalidCode, "The appointment code is incorrect.")
			}
			return nil
		},
		message: "Appointment confirmed.",
	})
}

// Complete checks the completion code and pays the stylist out of escrow.
func (s *AppointmentService) Complete(ctx context.Context, actor Actor, id uuid.UUID, code string) (*Result[*models.Appointment], error) {
	if code == "" {
		return nil, reason(ErrValidation, "The completion code is required.")
	}
	return s.run(ctx, actor, id, transition{
		name:      "complete",
		from:      []string{models.AppointmentConfirmed},
		to:        models.AppointmentCompleted,
		reason:    "You can only complete a confirmed appointment.",
		authorize: onlyStylist("complete"),
		apply: func(ctx context.Context, w *database.Work, a *models.Appointment) error {
			if err := codes.Verify(a.CompletionCodeHash, code); err != nil {
				return reason(ErrInvalidCode, "The completion code is incorrect.")
			}
			if err := s.lockParties(ctx, w.Tx, a); err != nil {
				return err
			}
			if err := s.settleForStylist(ctx, w.Tx, a); err != nil {
				return err
			}
			now := s.now()
			a.CompletedAt = &now
			return nil
		},
		after:   s.afterComplete,
		message: "Appointment completed.",
	})
}

func (s *AppointmentService) afterComplete(w *database.Work, a *models.Appointment, _ string) {
	s.notifyUser(w, a.StylistID, appointmentLink(a.ID), "Payment released",
		fmt.Sprintf("Your earnings for %s are in your wallet.", a.BookingCode), notify.PriorityNormal)
	s.emailUser(w, a.CustomerID, notify.TemplateAppointmentCompleted, map[string]string{
		"booking_code": a.BookingCode,
	})
}

// ---------------------------------------------------------------------------
// Disputes
// ---------------------------------------------------------------------------

type DisputeInput struct {
	Comment    string   `json:"comment" validate:"required,max=5000"`
	ImagePaths []string `json:"image_paths" validate:"max=10,dive,max=500"`
	Priority   string   `json:"priority" validate:"omitempty,oneof=low medium high risky"`
}

// FileDispute escalates an active appointment. No money moves until the
// dispute is resolved.
func (s *AppointmentService) FileDispute(ctx context.Context, actor Actor, id uuid.UUID, in DisputeInput) (*Result[*models.AppointmentDispute], error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var dispute *models.AppointmentDispute
	res, err := s.run(ctx, actor, id, transition{
		name:   "file_dispute",
		from:   []string{models.AppointmentPending, models.AppointmentApproved, models.AppointmentConfirmed},
		to:     models.AppointmentEscalated,
		reason: "You can only dispute an active appointment.",
		authorize: func(actor Actor, a *models.Appointment) error {
			if actor.ID != a.CustomerID && actor.ID != a.StylistID {
				return reason(ErrForbidden, "Only the customer or the stylist can open a dispute.")
			}
			return nil
		},
		apply: func(ctx context.Context, w *database.Work, a *models.Appointment) error {
			if _, err := s.Disputes.FindUnresolvedByAppointmentTx(ctx, w.Tx, a.ID); err == nil {
				return reason(ErrAlreadyProcessed, "A dispute is already open for this appointment.")
			} else if !errors.Is(err, models.ErrNotFound) {
				return err
			}
			originator := models.OriginatorCustomer
			if actor.ID == a.StylistID {
				originator = models.OriginatorStylist
			}
			priority := in.Priority
			if priority == "" {
				priority = models.PriorityMedium
			}
			dispute = &models.AppointmentDispute{
				ID:            uuid.New(),
				AppointmentID: a.ID,
				CustomerID:    a.CustomerID,
				StylistID:     a.StylistID,
				Originator:    originator,
				Comment:       in.Comment,
				ImagePaths:    in.ImagePaths,
				Status:        models.DisputeOpen,
				Priority:      priority,
			}
			if err := s.Disputes.CreateTx(ctx, w.Tx, dispute); err != nil {
				return fmt.Errorf("create dispute: %w", err)
			}
			a.PreviousStatus = a.Status
			return nil
		},
		after: func(w *database.Work, a *models.Appointment, _ string) {
			other := a.StylistID
			if actor.ID == a.StylistID {
				other = a.CustomerID
			}
			s.notifyUser(w, other, appointmentLink(a.ID), "Dispute opened",
				fmt.Sprintf("A dispute was opened for %s.", a.BookingCode), notify.PriorityHigh)
			for _, user := range []uuid.UUID{a.CustomerID, a.StylistID} {
				s.emailUser(w, user, notify.TemplateDisputeFiled, map[string]string{"booking_code": a.BookingCode})
			}
		},
		message: "Dispute filed.",
	})
	if err != nil {
		return nil, err
	}
	return ok(res.Message, dispute), nil
}

// ---------------------------------------------------------------------------
// Administration and reads
// ---------------------------------------------------------------------------

// Delete soft-deletes a settled appointment. Appointments with money still
// in flight cannot be deleted.
func (s *AppointmentService) Delete(ctx context.Context, actor Actor, id uuid.UUID) (*Result[*models.Appointment], error) {
	if !actor.IsAdmin() {
		return nil, reason(ErrForbidden, "Only an administrator can delete appointments.")
	}
	var out *models.Appointment
	err := s.withLock(ctx, appointmentKey(id), func() error {
		return s.UoW.Do(ctx, func(w *database.Work) error {
			a, err := s.Appointments.GetByIDForUpdate(ctx, w.Tx, id)
			if err != nil {
				return fmt.Errorf("appointment %s: %w", id, err)
			}
			switch a.Status {
			case models.AppointmentProcessing, models.AppointmentCompleted, models.AppointmentCanceled:
			default:
				return reason(ErrInvalidStateTransition, "Only settled appointments can be deleted.")
			}
			holding, err := s.Ledger.HoldingPouches(ctx, w.Tx, a.ID)
			if err != nil {
				return err
			}
			if len(holding) > 0 {
				return reason(ErrInvalidStateTransition, "This appointment still holds funds in escrow.")
			}
			now := s.now()
			a.DeletedAt = &now
			if err := s.Appointments.UpdateTx(ctx, w.Tx, a); err != nil {
				return err
			}
			out = a
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("appointment deleted", "appointment_id", id, "actor_id", actor.ID)
	return ok("Appointment deleted.", out), nil
}

func (s *AppointmentService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Appointment, error) {
	a, err := s.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := participantOrAdmin(actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AppointmentService) List(ctx context.Context, actor Actor) ([]*models.Appointment, error) {
	return s.Appointments.ListByParticipant(ctx, actor.ID)
}

// Statement is every money record of one appointment with its totals.
type Statement struct {
	Transactions []*models.Transaction `json:"transactions"`
	Pouches      []*models.Pouch       `json:"pouches"`
	Summary      ledger.Summary        `json:"summary"`
}

func (s *AppointmentService) Statement(ctx context.Context, actor Actor, id uuid.UUID) (*Statement, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	st := &Statement{}
	err = s.UoW.Do(ctx, func(w *database.Work) error {
		txs, pouches, err := s.Ledger.AppointmentLedger(ctx, w.Tx, a.ID)
		if err != nil {
			return err
		}
		st.Transactions, st.Pouches = txs, pouches
		return nil
	})
	if err != nil {
		return nil, err
	}
	st.Summary = ledger.Summarize(st.Transactions, st.Pouches)
	return st, nil
}
