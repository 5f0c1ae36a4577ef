package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stylebook/backend/internal/models"
)

// update swaps *slot for next and journals the previous value.
func update[T any](s *Store, tx pgx.Tx, slot *T, next T) {
	prev := *slot
	*slot = next
	s.journal(tx, func() { *slot = prev })
}

// ---------------------------------------------------------------------------
// Appointments
// ---------------------------------------------------------------------------

type Appointments struct{ s *Store }

func (r *Appointments) CreateTx(_ context.Context, tx pgx.Tx, a *models.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.s.appointments = append(r.s.appointments, &cp)
	r.s.journal(tx, func() {
		r.s.appointments = removeLast(r.s.appointments, func(x *models.Appointment) bool { return x.ID == cp.ID })
	})
	return nil
}

func (r *Appointments) find(id uuid.UUID) *models.Appointment {
	for _, a := range r.s.appointments {
		if a.ID == id && a.DeletedAt == nil {
			return a
		}
	}
	return nil
}

func (r *Appointments) GetByID(_ context.Context, id uuid.UUID) (*models.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := r.find(id)
	if a == nil {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *Appointments) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Appointment, error) {
	return r.GetByID(ctx, id)
}

// UpdateTx writes the mutable columns. Amount, codes and parties never change.
func (r *Appointments) UpdateTx(_ context.Context, tx pgx.Tx, a *models.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur := r.find(a.ID)
	if cur == nil {
		return models.ErrNotFound
	}
	next := *cur
	next.Status = a.Status
	next.PreviousStatus = a.PreviousStatus
	next.ScheduledDate = a.ScheduledDate
	next.ScheduledTime = a.ScheduledTime
	next.DurationMinutes = a.DurationMinutes
	next.StylistNote = a.StylistNote
	next.ServiceNotes = a.ServiceNotes
	next.CompletedAt = a.CompletedAt
	next.DeletedAt = a.DeletedAt
	next.UpdatedAt = time.Now()
	a.UpdatedAt = next.UpdatedAt
	update(r.s, tx, cur, next)
	return nil
}

func (r *Appointments) ListByParticipant(_ context.Context, userID uuid.UUID) ([]*models.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Appointment
	for i := len(r.s.appointments) - 1; i >= 0; i-- {
		a := r.s.appointments[i]
		if a.DeletedAt == nil && (a.CustomerID == userID || a.StylistID == userID) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Disputes
// ---------------------------------------------------------------------------

type Disputes struct{ s *Store }

func (r *Disputes) CreateTx(_ context.Context, tx pgx.Tx, d *models.AppointmentDispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	cp := *d
	r.s.disputes = append(r.s.disputes, &cp)
	r.s.journal(tx, func() {
		r.s.disputes = removeLast(r.s.disputes, func(x *models.AppointmentDispute) bool { return x.ID == cp.ID })
	})
	return nil
}

func (r *Disputes) GetByID(_ context.Context, id uuid.UUID) (*models.AppointmentDispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.disputes {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Disputes) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.AppointmentDispute, error) {
	return r.GetByID(ctx, id)
}

func (r *Disputes) FindUnresolvedByAppointmentTx(_ context.Context, _ pgx.Tx, appointmentID uuid.UUID) (*models.AppointmentDispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.disputes {
		if d.AppointmentID == appointmentID && d.Unresolved() {
			cp := *d
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Disputes) UpdateTx(_ context.Context, tx pgx.Tx, d *models.AppointmentDispute) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.disputes {
		if cur.ID == d.ID {
			d.UpdatedAt = time.Now()
			update(r.s, tx, cur, *d)
			return nil
		}
	}
	return models.ErrNotFound
}

func (r *Disputes) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*models.AppointmentDispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AppointmentDispute
	for _, d := range r.s.disputes {
		if d.AppointmentID == appointmentID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Withdrawals and deposits
// ---------------------------------------------------------------------------

type Withdrawals struct{ s *Store }

func (r *Withdrawals) CreateTx(_ context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.CreatedAt = time.Now()
	cp := *w
	r.s.withdrawals = append(r.s.withdrawals, &cp)
	r.s.journal(tx, func() {
		r.s.withdrawals = removeLast(r.s.withdrawals, func(x *models.Withdrawal) bool { return x.ID == cp.ID })
	})
	return nil
}

func (r *Withdrawals) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.withdrawals {
		if w.ID == id {
			cp := *w
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Withdrawals) UpdateTx(_ context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.withdrawals {
		if cur.ID == w.ID {
			update(r.s, tx, cur, *w)
			return nil
		}
	}
	return models.ErrNotFound
}

func (r *Withdrawals) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Withdrawal
	for _, w := range r.s.withdrawals {
		if w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

type Deposits struct{ s *Store }

func (r *Deposits) CreateTx(_ context.Context, tx pgx.Tx, d *models.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.CreatedAt = time.Now()
	cp := *d
	r.s.deposits = append(r.s.deposits, &cp)
	r.s.journal(tx, func() {
		r.s.deposits = removeLast(r.s.deposits, func(x *models.Deposit) bool { return x.ID == cp.ID })
	})
	return nil
}

func (r *Deposits) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.deposits {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Deposits) UpdateTx(_ context.Context, tx pgx.Tx, d *models.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.deposits {
		if cur.ID == d.ID {
			update(r.s, tx, cur, *d)
			return nil
		}
	}
	return models.ErrNotFound
}

func (r *Deposits) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Deposit
	for _, d := range r.s.deposits {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

type Settings struct{ s *Store }

func (r *Settings) Get(_ context.Context, key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.settings[key]
	if !ok {
		return "", models.ErrNotFound
	}
	return v, nil
}

func (r *Settings) Set(_ context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}
