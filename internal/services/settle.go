package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/commission"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
)

// Money movements shared by appointment transitions and dispute resolution.
// All of them run inside the caller's unit of work and lock the customer and
// stylist rows in UUID order first. The platform row is locked by the ledger
// only when a commission or retained amount is posted to it, which always
// happens after the party locks are held.

func (e *Engine) lockParties(ctx context.Context, tx pgx.Tx, a *models.Appointment) error {
	return e.Ledger.LockUsers(ctx, tx, a.CustomerID, a.StylistID)
}

func (e *Engine) rate(ctx context.Context) (decimal.Decimal, error) {
	rate, err := e.Rates.CommissionRate(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("commission rate: %w", err)
	}
	return rate, nil
}

// openApproval splits the gross amount, escrows the stylist share in the
// approval pouch and books the platform commission.
func (e *Engine) openApproval(ctx context.Context, tx pgx.Tx, a *models.Appointment, rate decimal.Decimal) (*models.Pouch, error) {
	split, err := commission.Compute(a.Amount, rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	pouch, err := e.Ledger.OpenPouch(ctx, tx, a.ID, a.StylistID, split.Stylist, models.PouchKindApproval)
	if err != nil {
		return nil, err
	}
	if err := e.bookCommission(ctx, tx, a, split, ledger.Reference(ledger.KindCommission, a.ID)); err != nil {
		return nil, err
	}
	return pouch, nil
}

func (e *Engine) bookCommission(ctx context.Context, tx pgx.Tx, a *models.Appointment, split commission.Split, ref string) error {
	if !split.Platform.IsPositive() {
		return nil
	}
	_, err := e.Ledger.Credit(ctx, tx, ledger.Entry{
		UserID:        models.SystemPlatformUserID,
		AppointmentID: &a.ID,
		Amount:        split.Platform,
		Type:          models.TransactionOther,
		Status:        models.TransactionCompleted,
		Reference:     ref,
		Description:   fmt.Sprintf("Commission %s%% of %s for %s", split.Rate, money(split.Gross), a.BookingCode),
	})
	return err
}

// settleForStylist pays the stylist their share: the approval pouch is
// released (opened first if the appointment was never approved) and the
// payment is marked completed.
func (e *Engine) settleForStylist(ctx context.Context, tx pgx.Tx, a *models.Appointment) error {
	pouch, err := e.Ledger.FindPouch(ctx, tx, a.ID, models.PouchKindApproval)
	if errors.Is(err, models.ErrNotFound) {
		rate, rerr := e.rate(ctx)
		if rerr != nil {
			return rerr
		}
		pouch, err = e.openApproval(ctx, tx, a, rate)
	}
	if err != nil {
		return err
	}
	switch pouch.Status {
	case models.PouchHolding:
		if _, err := e.Ledger.ResolvePouch(ctx, tx, pouch.ID, models.PouchReleased); err != nil {
			return err
		}
	case models.PouchRefunded:
		return reason(ErrInvalidStateTransition, "The stylist's share for this appointment was already refunded.")
	}
	return e.completePayment(ctx, tx, a)
}

// unwindApproval undoes an approval: holding pouches are refunded and the
// commission is reversed out of the platform balance.
func (e *Engine) unwindApproval(ctx context.Context, tx pgx.Tx, a *models.Appointment) error {
	holding, err := e.Ledger.HoldingPouches(ctx, tx, a.ID)
	if err != nil {
		return err
	}
	for _, p := range holding {
		if _, err := e.Ledger.ResolvePouch(ctx, tx, p.ID, models.PouchRefunded); err != nil {
			return err
		}
	}

	ref := ledger.Reference(ledger.KindCommission, a.ID)
	fee, err := e.Ledger.FindTransaction(ctx, tx, ref)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if fee.Status != models.TransactionCompleted {
		return nil
	}
	if _, err := e.Ledger.SetTransactionStatus(ctx, tx, ref, models.TransactionReversed); err != nil {
		return err
	}
	if _, err := e.Ledger.AdjustBalance(ctx, tx, models.SystemPlatformUserID, fee.Amount.Neg()); err != nil {
		return fmt.Errorf("%w: commission %s reversed but platform balance not adjusted: %v", ledger.ErrConsistency, ref, err)
	}
	return nil
}

// refundCustomer credits amount back to the customer's wallet.
func (e *Engine) refundCustomer(ctx context.Context, tx pgx.Tx, a *models.Appointment, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return nil
	}
	_, err := e.Ledger.Credit(ctx, tx, ledger.Entry{
		UserID:        a.CustomerID,
		AppointmentID: &a.ID,
		Amount:        amount,
		Type:          models.TransactionRefund,
		Status:        models.TransactionCompleted,
		Reference:     ledger.Reference(models.TransactionRefund, a.ID),
		Description:   description,
	})
	return err
}

// retain books the part of the gross neither refunded nor paid out as
// platform income.
func (e *Engine) retain(ctx context.Context, tx pgx.Tx, a *models.Appointment, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	_, err := e.Ledger.Credit(ctx, tx, ledger.Entry{
		UserID:        models.SystemPlatformUserID,
		AppointmentID: &a.ID,
		Amount:        amount,
		Type:          models.TransactionOther,
		Status:        models.TransactionCompleted,
		Reference:     ledger.Reference(ledger.KindRetained, a.ID),
		Description:   "Retained after dispute for " + a.BookingCode,
	})
	return err
}

// completePayment marks the booking payment settled.
func (e *Engine) completePayment(ctx context.Context, tx pgx.Tx, a *models.Appointment) error {
	return e.setPaymentStatus(ctx, tx, a, models.TransactionCompleted)
}

func (e *Engine) setPaymentStatus(ctx context.Context, tx pgx.Tx, a *models.Appointment, status string) error {
	_, err := e.Ledger.SetTransactionStatus(ctx, tx, ledger.Reference(models.TransactionPayment, a.ID), status)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}
