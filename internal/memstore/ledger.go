package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *u
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
		u.ID = cp.ID
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = cp.CreatedAt
	r.s.users[cp.ID] = &cp
	return nil
}

func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Users) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	r.s.userLocks[id]++
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

// Locks is a test helper returning how many times the row of id was read
// for update.
func (r *Users) Locks(id uuid.UUID) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.userLocks[id]
}

func (r *Users) AddBalance(_ context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.addBalanceErr; err != nil {
		r.s.addBalanceErr = nil
		return decimal.Zero, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return decimal.Zero, models.ErrNotFound
	}
	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, ledger.ErrInsufficientBalance
	}
	prev := u.Balance
	u.Balance = next
	r.s.journal(tx, func() { u.Balance = prev })
	return next, nil
}

// Balance is a test helper returning the current balance of id.
func (r *Users) Balance(id uuid.UUID) decimal.Decimal {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		return u.Balance
	}
	return decimal.Zero
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

type Transactions struct{ s *Store }

func (r *Transactions) CreateTx(_ context.Context, tx pgx.Tx, t *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.transactions {
		if existing.Reference == t.Reference {
			return ledger.ErrDuplicateReference
		}
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	r.s.transactions = append(r.s.transactions, &cp)
	r.s.journal(tx, func() {
		r.s.transactions = removeLast(r.s.transactions, func(x *models.Transaction) bool { return x.ID == cp.ID })
	})
	return nil
}

func (r *Transactions) GetByReferenceTx(_ context.Context, _ pgx.Tx, reference string) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transactions {
		if t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Transactions) UpdateStatusTx(_ context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transactions {
		if t.ID == id {
			prev, prevAt := t.Status, t.UpdatedAt
			t.Status, t.UpdatedAt = status, time.Now()
			r.s.journal(tx, func() { t.Status, t.UpdatedAt = prev, prevAt })
			return nil
		}
	}
	return models.ErrNotFound
}

func (r *Transactions) ListByAppointmentTx(_ context.Context, _ pgx.Tx, appointmentID uuid.UUID) ([]*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Transaction
	for _, t := range r.s.transactions {
		if t.AppointmentID != nil && *t.AppointmentID == appointmentID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListByUser returns the newest entries first.
func (r *Transactions) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Transaction
	for i := len(r.s.transactions) - 1; i >= 0; i-- {
		t := r.s.transactions[i]
		if t.UserID != userID {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All is a test helper returning every recorded entry in insertion order.
func (r *Transactions) All() []*models.Transaction {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Transaction, 0, len(r.s.transactions))
	for _, t := range r.s.transactions {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// ---------------------------------------------------------------------------
// Pouches
// ---------------------------------------------------------------------------

type Pouches struct{ s *Store }

func (r *Pouches) CreateTx(_ context.Context, tx pgx.Tx, p *models.Pouch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.pouches {
		if existing.AppointmentID == p.AppointmentID && existing.Kind == p.Kind {
			return ledger.ErrDuplicatePouch
		}
	}
	cp := *p
	r.s.pouches = append(r.s.pouches, &cp)
	r.s.journal(tx, func() {
		r.s.pouches = removeLast(r.s.pouches, func(x *models.Pouch) bool { return x.ID == cp.ID })
	})
	return nil
}

func (r *Pouches) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Pouch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.pouches {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Pouches) GetByAppointmentForUpdate(_ context.Context, _ pgx.Tx, appointmentID uuid.UUID, kind string) (*models.Pouch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.pouches {
		if p.AppointmentID == appointmentID && p.Kind == kind {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Pouches) ListByAppointmentTx(_ context.Context, _ pgx.Tx, appointmentID uuid.UUID) ([]*models.Pouch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Pouch
	for _, p := range r.s.pouches {
		if p.AppointmentID == appointmentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *Pouches) UpdateStatusTx(_ context.Context, tx pgx.Tx, id uuid.UUID, status string, resolvedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.pouches {
		if p.ID == id {
			prev, prevAt := p.Status, p.ResolvedAt
			at := resolvedAt
			p.Status, p.ResolvedAt = status, &at
			r.s.journal(tx, func() { p.Status, p.ResolvedAt = prev, prevAt })
			return nil
		}
	}
	return models.ErrNotFound
}
