package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/commission"
	"github.com/stylebook/backend/internal/database"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/notify"
)

// DisputeService lets an admin arbitrate escalated appointments.
type DisputeService struct {
	*Engine
	Appointments AppointmentRepo
	Disputes     DisputeRepo
}

func NewDisputeService(engine *Engine, appointments AppointmentRepo, disputes DisputeRepo) *DisputeService {
	return &DisputeService{Engine: engine, Appointments: appointments, Disputes: disputes}
}

type ResolveInput struct {
	Type          string           `json:"resolution_type" validate:"required,oneof=refund_customer split_refund complete_for_stylist no_action"`
	RefundAmount  *decimal.Decimal `json:"refund_amount"`
	StylistAmount *decimal.Decimal `json:"stylist_amount"`
	Comment       string           `json:"comment" validate:"max=5000"`
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Dispute     *models.AppointmentDispute `json:"dispute"`
	Appointment *models.Appointment        `json:"appointment"`
}

// Resolve settles the money of an escalated appointment and closes the
// arbitration. The dispute lock is taken before the appointment lock.
func (s *DisputeService) Resolve(ctx context.Context, actor Actor, disputeID uuid.UUID, in ResolveInput) (*Result[*Resolution], error) {
	if !actor.IsAdmin() {
		return nil, reason(ErrForbidden, "Only an administrator can resolve disputes.")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	refund, stylist, err := resolutionAmounts(in)
	if err != nil {
		return nil, err
	}
	head, err := s.Disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	out := &Resolution{}
	err = s.withLock(ctx, disputeKey(disputeID), func() error {
		return s.withLock(ctx, appointmentKey(head.AppointmentID), func() error {
			return s.UoW.Do(ctx, func(w *database.Work) error {
				d, err := s.Disputes.GetByIDForUpdate(ctx, w.Tx, disputeID)
				if err != nil {
					return fmt.Errorf("dispute %s: %w", disputeID, err)
				}
				if !d.Unresolved() {
					return reason(ErrAlreadyResolved, "This dispute is already %s.", d.Status)
				}
				a, err := s.Appointments.GetByIDForUpdate(ctx, w.Tx, d.AppointmentID)
				if err != nil {
					return fmt.Errorf("appointment %s: %w", d.AppointmentID, err)
				}
				if a.Status != models.AppointmentEscalated {
					return reason(ErrInvalidStateTransition, "The appointment is %s, not escalated.", a.Status)
				}
				if refund != nil && refund.GreaterThan(a.Amount) {
					return reason(ErrRefundExceedsAmount, "The refund of %s exceeds the appointment amount of %s.", money(*refund), money(a.Amount))
				}
				previous := a.Status
				refunded, paid, err := s.settle(ctx, w, a, in.Type, refund, stylist)
				if err != nil {
					return err
				}
				if err := s.Appointments.UpdateTx(ctx, w.Tx, a); err != nil {
					return fmt.Errorf("update appointment %s: %w", a.ID, err)
				}

				now := s.now()
				resolution := in.Type
				d.Status = models.DisputeResolved
				d.ResolutionType = &resolution
				d.ResolutionAmount = refunded
				d.StylistAmount = paid
				d.ResolutionComment = in.Comment
				d.ResolvedBy = &actor.ID
				d.ResolvedAt = &now
				if err := s.Disputes.UpdateTx(ctx, w.Tx, d); err != nil {
					return fmt.Errorf("update dispute %s: %w", d.ID, err)
				}

				s.statusChanged(w, a, previous)
				for _, user := range []uuid.UUID{a.CustomerID, a.StylistID} {
					s.notifyUser(w, user, appointmentLink(a.ID), "Dispute resolved",
						fmt.Sprintf("The dispute for %s was resolved: %s.", a.BookingCode, describeResolution(in.Type)),
						notify.PriorityHigh)
					s.emailUser(w, user, notify.TemplateDisputeResolved, map[string]string{
						"booking_code": a.BookingCode,
						"resolution":   describeResolution(in.Type),
					})
				}
				out.Dispute, out.Appointment = d, a
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("dispute resolved", "dispute_id", disputeID, "appointment_id", out.Appointment.ID,
		"resolution", in.Type, "appointment_status", out.Appointment.Status, "actor_id", actor.ID)
	return ok("Dispute resolved.", out), nil
}

func resolutionAmounts(in ResolveInput) (refund, stylist *decimal.Decimal, err error) {
	round := func(d *decimal.Decimal, field string) (*decimal.Decimal, error) {
		if d == nil {
			return nil, nil
		}
		v := commission.Round(*d)
		if v.IsNegative() {
			return nil, reason(ErrValidation, "%s must not be negative.", field)
		}
		return &v, nil
	}
	if refund, err = round(in.RefundAmount, "Refund amount"); err != nil {
		return nil, nil, err
	}
	if stylist, err = round(in.StylistAmount, "Stylist amount"); err != nil {
		return nil, nil, err
	}
	if in.Type == models.ResolutionSplitRefund && (refund == nil || stylist == nil) {
		return nil, nil, reason(ErrValidation, "A split refund needs both a refund amount and a stylist amount.")
	}
	return refund, stylist, nil
}

// settle moves the money for one resolution type and sets the appointment's
// final status. Every branch accounts for the full gross amount. It returns
// the amounts actually refunded to the customer and awarded to the stylist;
// both are nil for resolutions that move no disputed money.
func (s *DisputeService) settle(ctx context.Context, w *database.Work, a *models.Appointment, kind string, refund, stylist *decimal.Decimal) (refunded, paid *decimal.Decimal, err error) {
	if kind == models.ResolutionNoAction {
		a.Status = a.PreviousStatus
		if a.Status == "" {
			a.Status = models.AppointmentPending
		}
		a.PreviousStatus = ""
		return nil, nil, nil
	}

	tx := w.Tx
	if err := s.lockParties(ctx, tx, a); err != nil {
		return nil, nil, err
	}
	now := s.now()
	switch kind {
	case models.ResolutionRefundCustomer:
		amount := a.Amount
		if refund != nil {
			amount = *refund
		}
		if err := s.unwindApproval(ctx, tx, a); err != nil {
			return nil, nil, err
		}
		if err := s.refundCustomer(ctx, tx, a, amount, "Dispute refund for "+a.BookingCode); err != nil {
			return nil, nil, err
		}
		if err := s.retain(ctx, tx, a, a.Amount.Sub(amount)); err != nil {
			return nil, nil, err
		}
		a.Status = models.AppointmentCanceled
		refunded = &amount

	case models.ResolutionSplitRefund:
		total := refund.Add(*stylist)
		if total.GreaterThan(a.Amount) {
			return nil, nil, reason(ErrRefundExceedsAmount, "The refund and stylist amounts together (%s) exceed the appointment amount of %s.", money(total), money(a.Amount))
		}
		rate, err := s.rate(ctx)
		if err != nil {
			return nil, nil, err
		}
		split, err := commission.Compute(*stylist, rate)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := s.unwindApproval(ctx, tx, a); err != nil {
			return nil, nil, err
		}
		if err := s.refundCustomer(ctx, tx, a, *refund, "Partial dispute refund for "+a.BookingCode); err != nil {
			return nil, nil, err
		}
		pouch, err := s.Ledger.OpenPouch(ctx, tx, a.ID, a.StylistID, split.Stylist, models.PouchKindSettlement)
		if err != nil {
			return nil, nil, err
		}
		if _, err := s.Ledger.ResolvePouch(ctx, tx, pouch.ID, models.PouchReleased); err != nil {
			return nil, nil, err
		}
		if err := s.bookCommission(ctx, tx, a, split, ledger.Reference(ledger.KindCommission, a.ID, "settlement")); err != nil {
			return nil, nil, err
		}
		if err := s.retain(ctx, tx, a, a.Amount.Sub(total)); err != nil {
			return nil, nil, err
		}
		a.Status = models.AppointmentCompleted
		a.CompletedAt = &now
		refunded, paid = refund, stylist

	case models.ResolutionCompleteForStylist:
		if err := s.settleForStylist(ctx, tx, a); err != nil {
			return nil, nil, err
		}
		a.Status = models.AppointmentCompleted
		a.CompletedAt = &now

	default:
		return nil, nil, reason(ErrValidation, "Unknown resolution type %q.", kind)
	}
	a.PreviousStatus = ""
	if err := s.completePayment(ctx, tx, a); err != nil {
		return nil, nil, err
	}
	return refunded, paid, nil
}

func describeResolution(kind string) string {
	switch kind {
	case models.ResolutionRefundCustomer:
		return "the customer was refunded"
	case models.ResolutionSplitRefund:
		return "the amount was split between customer and stylist"
	case models.ResolutionCompleteForStylist:
		return "the stylist was paid"
	}
	return "no money was moved"
}

// StartReview marks an open dispute as being worked on.
func (s *DisputeService) StartReview(ctx context.Context, actor Actor, id uuid.UUID) (*Result[*models.AppointmentDispute], error) {
	return s.move(ctx, actor, id, models.DisputeInProgress, "Dispute under review.", func(d *models.AppointmentDispute) error {
		switch d.Status {
		case models.DisputeOpen:
			return nil
		case models.DisputeResolved, models.DisputeClosed:
			return reason(ErrAlreadyResolved, "This dispute is already %s.", d.Status)
		}
		return reason(ErrInvalidStateTransition, "Only open disputes can be reviewed.")
	})
}

// Close archives a resolved dispute.
func (s *DisputeService) Close(ctx context.Context, actor Actor, id uuid.UUID) (*Result[*models.AppointmentDispute], error) {
	return s.move(ctx, actor, id, models.DisputeClosed, "Dispute closed.", func(d *models.AppointmentDispute) error {
		if d.Status == models.DisputeResolved {
			return nil
		}
		return reason(ErrInvalidStateTransition, "Resolve the dispute before closing it.")
	})
}

func (s *DisputeService) move(ctx context.Context, actor Actor, id uuid.UUID, to, message string, guard func(*models.AppointmentDispute) error) (*Result[*models.AppointmentDispute], error) {
	if !actor.IsAdmin() {
		return nil, reason(ErrForbidden, "Only an administrator can manage disputes.")
	}
	var out *models.AppointmentDispute
	err := s.withLock(ctx, disputeKey(id), func() error {
		return s.UoW.Do(ctx, func(w *database.Work) error {
			d, err := s.Disputes.GetByIDForUpdate(ctx, w.Tx, id)
			if err != nil {
				return fmt.Errorf("dispute %s: %w", id, err)
			}
			if d.Status == to {
				return reason(ErrAlreadyProcessed, "This dispute is already %s.", to)
			}
			if err := guard(d); err != nil {
				return err
			}
			d.Status = to
			if err := s.Disputes.UpdateTx(ctx, w.Tx, d); err != nil {
				return err
			}
			out = d
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("dispute status changed", "dispute_id", id, "status", to, "actor_id", actor.ID)
	return ok(message, out), nil
}

func (s *DisputeService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.AppointmentDispute, error) {
	d, err := s.Disputes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != d.CustomerID && actor.ID != d.StylistID {
		return nil, reason(ErrForbidden, "You are not part of this dispute.")
	}
	return d, nil
}

func (s *DisputeService) ListByAppointment(ctx context.Context, actor Actor, appointmentID uuid.UUID) ([]*models.AppointmentDispute, error) {
	a, err := s.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := participantOrAdmin(actor, a); err != nil {
		return nil, err
	}
	return s.Disputes.ListByAppointment(ctx, appointmentID)
}
