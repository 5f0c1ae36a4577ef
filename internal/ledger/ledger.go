// Package ledger records money movements (transactions), keeps user balances
// in step with them and manages escrow pouches. Every method runs inside the
// caller's transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/commission"
	"github.com/stylebook/backend/internal/models"
)

// UserStore is the balance side of the ledger.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (newBalance decimal.Decimal, err error)
}

// TransactionStore persists ledger entries. CreateTx must return
// ErrDuplicateReference when the reference is taken.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	GetByReferenceTx(ctx context.Context, tx pgx.Tx, reference string) (*models.Transaction, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	ListByAppointmentTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) ([]*models.Transaction, error)
}

// PouchStore persists escrow pouches.
type PouchStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Pouch) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Pouch, error)
	GetByAppointmentForUpdate(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, kind string) (*models.Pouch, error)
	ListByAppointmentTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) ([]*models.Pouch, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, resolvedAt time.Time) error
}

// Entry describes one money movement to record.
type Entry struct {
	UserID        uuid.UUID
	AppointmentID *uuid.UUID
	Amount        decimal.Decimal
	Type          string
	Status        string
	Reference     string
	Description   string
}

type Ledger struct {
	Users        UserStore
	Transactions TransactionStore
	Pouches      PouchStore
	Now          func() time.Time
}

func New(users UserStore, transactions TransactionStore, pouches PouchStore) *Ledger {
	return &Ledger{Users: users, Transactions: transactions, Pouches: pouches, Now: time.Now}
}

// Reference builds the deterministic reference of a money event, e.g.
// Reference("commission", appointmentID) -> "commission:<id>". A replayed
// event produces the same reference and collides on the unique index.
func Reference(kind string, id uuid.UUID, qualifiers ...string) string {
	parts := append([]string{kind, id.String()}, qualifiers...)
	return strings.Join(parts, ":")
}

// RecordTransaction inserts a ledger entry without touching balances. Use Post
// when the entry moves money in or out of a balance.
func (l *Ledger) RecordTransaction(ctx context.Context, tx pgx.Tx, e Entry) (uuid.UUID, error) {
	amount := commission.Round(e.Amount)
	if !amount.IsPositive() {
		return uuid.Nil, ErrInvalidAmount
	}
	if strings.TrimSpace(e.Reference) == "" {
		return uuid.Nil, ErrMissingReference
	}
	status := e.Status
	if status == "" {
		status = models.TransactionCompleted
	}
	t := &models.Transaction{
		ID:            uuid.New(),
		UserID:        e.UserID,
		AppointmentID: e.AppointmentID,
		Amount:        amount,
		Type:          e.Type,
		Status:        status,
		Reference:     e.Reference,
		Description:   e.Description,
	}
	if err := l.Transactions.CreateTx(ctx, tx, t); err != nil {
		return uuid.Nil, err
	}
	return t.ID, nil
}

// AdjustBalance locks the user row and applies delta. A result below zero
// fails with ErrInsufficientBalance.
func (l *Ledger) AdjustBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	user, err := l.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock user %s: %w", userID, err)
	}
	delta = commission.Round(delta)
	if user.Balance.Add(delta).IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, delta.Neg(), user.Balance)
	}
	if delta.IsZero() {
		return user.Balance, nil
	}
	return l.Users.AddBalance(ctx, tx, userID, delta)
}

// Post records e and applies delta to the owner's balance as one step.
// The balance is checked before anything is written; a failure after the
// entry is recorded is reported as ErrConsistency.
func (l *Ledger) Post(ctx context.Context, tx pgx.Tx, e Entry, delta decimal.Decimal) (uuid.UUID, error) {
	user, err := l.Users.GetByIDForUpdate(ctx, tx, e.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("lock user %s: %w", e.UserID, err)
	}
	delta = commission.Round(delta)
	if user.Balance.Add(delta).IsNegative() {
		return uuid.Nil, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, delta.Neg(), user.Balance)
	}
	id, err := l.RecordTransaction(ctx, tx, e)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := l.Users.AddBalance(ctx, tx, e.UserID, delta); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s recorded but balance of %s not adjusted: %v", ErrConsistency, e.Reference, e.UserID, err)
	}
	return id, nil
}

// Credit posts e and adds its amount to the owner's balance.
func (l *Ledger) Credit(ctx context.Context, tx pgx.Tx, e Entry) (uuid.UUID, error) {
	return l.Post(ctx, tx, e, e.Amount)
}

// Debit posts e and subtracts its amount from the owner's balance.
func (l *Ledger) Debit(ctx context.Context, tx pgx.Tx, e Entry) (uuid.UUID, error) {
	return l.Post(ctx, tx, e, e.Amount.Neg())
}

// LockUsers takes row locks on all given users in a deterministic order so
// two settlements touching the same users cannot deadlock.
func (l *Ledger) LockUsers(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })
	for _, id := range ordered {
		if _, err := l.Users.GetByIDForUpdate(ctx, tx, id); err != nil {
			return fmt.Errorf("lock user %s: %w", id, err)
		}
	}
	return nil
}

var statusTransitions = map[string]map[string]bool{
	models.TransactionPending: {
		models.TransactionCompleted: true,
		models.TransactionFailed:    true,
		models.TransactionApproved:  true,
		models.TransactionDeclined:  true,
		models.TransactionReversed:  true,
	},
	models.TransactionCompleted: {models.TransactionReversed: true},
	models.TransactionApproved:  {models.TransactionReversed: true},
}

// SetTransactionStatus moves the entry with the given reference to status.
// Setting the current status again is a no-op.
func (l *Ledger) SetTransactionStatus(ctx context.Context, tx pgx.Tx, reference, status string) (*models.Transaction, error) {
	t, err := l.Transactions.GetByReferenceTx(ctx, tx, reference)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", reference, err)
	}
	if t.Status == status {
		return t, nil
	}
	if !statusTransitions[t.Status][status] {
		return nil, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransactionStatus, reference, t.Status, status)
	}
	if err := l.Transactions.UpdateStatusTx(ctx, tx, t.ID, status); err != nil {
		return nil, err
	}
	t.Status = status
	return t, nil
}

// FindTransaction returns the entry with the given reference, or
// models.ErrNotFound.
func (l *Ledger) FindTransaction(ctx context.Context, tx pgx.Tx, reference string) (*models.Transaction, error) {
	return l.Transactions.GetByReferenceTx(ctx, tx, reference)
}

// OpenPouch places amount in escrow for the stylist. An appointment holds at
// most one pouch of each kind.
func (l *Ledger) OpenPouch(ctx context.Context, tx pgx.Tx, appointmentID, stylistID uuid.UUID, amount decimal.Decimal, kind string) (*models.Pouch, error) {
	amount = commission.Round(amount)
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	existing, err := l.Pouches.GetByAppointmentForUpdate(ctx, tx, appointmentID, kind)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: %s pouch %s", ErrDuplicatePouch, kind, existing.ID)
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return nil, err
	}
	p := &models.Pouch{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		StylistID:     stylistID,
		Amount:        amount,
		Kind:          kind,
		Status:        models.PouchHolding,
		CreatedAt:     l.Now(),
	}
	if err := l.Pouches.CreateTx(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ResolvePouch closes a holding pouch. Released pays the amount into the
// stylist's balance with an earning entry; refunded only marks it terminal,
// the customer refund is a separate entry.
func (l *Ledger) ResolvePouch(ctx context.Context, tx pgx.Tx, pouchID uuid.UUID, outcome string) (*models.Pouch, error) {
	p, err := l.Pouches.GetByIDForUpdate(ctx, tx, pouchID)
	if err != nil {
		return nil, fmt.Errorf("pouch %s: %w", pouchID, err)
	}
	if p.Status != models.PouchHolding {
		return nil, fmt.Errorf("%w: pouch %s is %s", ErrAlreadyProcessed, p.ID, p.Status)
	}
	switch outcome {
	case models.PouchReleased:
		if p.Amount.IsPositive() {
			if err := l.releaseEarning(ctx, tx, p); err != nil {
				return nil, err
			}
		}
	case models.PouchRefunded:
	default:
		return nil, fmt.Errorf("unknown pouch outcome %q", outcome)
	}
	now := l.Now()
	if err := l.Pouches.UpdateStatusTx(ctx, tx, p.ID, outcome, now); err != nil {
		return nil, err
	}
	p.Status = outcome
	p.ResolvedAt = &now
	return p, nil
}

func (l *Ledger) releaseEarning(ctx context.Context, tx pgx.Tx, p *models.Pouch) error {
	ref := Reference(models.TransactionEarning, p.ID)
	_, err := l.Transactions.GetByReferenceTx(ctx, tx, ref)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}
	appointmentID := p.AppointmentID
	_, err = l.Credit(ctx, tx, Entry{
		UserID:        p.StylistID,
		AppointmentID: &appointmentID,
		Amount:        p.Amount,
		Type:          models.TransactionEarning,
		Status:        models.TransactionCompleted,
		Reference:     ref,
		Description:   "Earning released from " + p.Kind + " pouch",
	})
	return err
}

// FindPouch returns the appointment's pouch of the given kind, locked, or
// models.ErrNotFound.
func (l *Ledger) FindPouch(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, kind string) (*models.Pouch, error) {
	return l.Pouches.GetByAppointmentForUpdate(ctx, tx, appointmentID, kind)
}

// HoldingPouches returns the appointment's pouches that are still in escrow.
func (l *Ledger) HoldingPouches(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) ([]*models.Pouch, error) {
	all, err := l.Pouches.ListByAppointmentTx(ctx, tx, appointmentID)
	if err != nil {
		return nil, err
	}
	var out []*models.Pouch
	for _, p := range all {
		if p.Status == models.PouchHolding {
			out = append(out, p)
		}
	}
	return out, nil
}

// AppointmentLedger returns every entry and pouch recorded for an appointment.
func (l *Ledger) AppointmentLedger(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) ([]*models.Transaction, []*models.Pouch, error) {
	txs, err := l.Transactions.ListByAppointmentTx(ctx, tx, appointmentID)
	if err != nil {
		return nil, nil, err
	}
	pouches, err := l.Pouches.ListByAppointmentTx(ctx, tx, appointmentID)
	if err != nil {
		return nil, nil, err
	}
	return txs, pouches, nil
}
