package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stylebook/backend/internal/models"
)

type AppointmentRepo struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) *AppointmentRepo {
	return &AppointmentRepo{pool: pool}
}

const appointmentColumns = `id, booking_code, appointment_code_hash, completion_code_hash, customer_id, stylist_id, portfolio_id, amount, funding_source, scheduled_date, scheduled_time, duration_minutes, status, previous_status, stylist_note, service_notes, completed_at, deleted_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(&a.ID, &a.BookingCode, &a.AppointmentCodeHash, &a.CompletionCodeHash, &a.CustomerID, &a.StylistID, &a.PortfolioID, &a.Amount, &a.FundingSource, &a.ScheduledDate, &a.ScheduledTime, &a.DurationMinutes, &a.Status, &a.PreviousStatus, &a.StylistNote, &a.ServiceNotes, &a.CompletedAt, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AppointmentRepo) CreateTx(ctx context.Context, tx pgx.Tx, a *models.Appointment) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, booking_code, appointment_code_hash, completion_code_hash, customer_id, stylist_id, portfolio_id, amount, funding_source, scheduled_date, scheduled_time, duration_minutes, status, service_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`, a.ID, a.BookingCode, a.AppointmentCodeHash, a.CompletionCodeHash, a.CustomerID, a.StylistID, a.PortfolioID, a.Amount, a.FundingSource, a.ScheduledDate, a.ScheduledTime, a.DurationMinutes, a.Status, a.ServiceNotes).Scan(&a.CreatedAt, &a.UpdatedAt)
	return translate(err)
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

// GetByIDForUpdate locks the appointment row. Call within a transaction.
func (r *AppointmentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE
	`, id))
}

// UpdateTx writes the mutable columns. Amount, codes and parties never change.
func (r *AppointmentRepo) UpdateTx(ctx context.Context, tx pgx.Tx, a *models.Appointment) error {
	err := tx.QueryRow(ctx, `
		UPDATE appointments SET status = $2, previous_status = $3, scheduled_date = $4, scheduled_time = $5, duration_minutes = $6, stylist_note = $7, service_notes = $8, completed_at = $9, deleted_at = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.Status, a.PreviousStatus, a.ScheduledDate, a.ScheduledTime, a.DurationMinutes, a.StylistNote, a.ServiceNotes, a.CompletedAt, a.DeletedAt).Scan(&a.UpdatedAt)
	return translate(err)
}

func (r *AppointmentRepo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*models.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE (customer_id = $1 OR stylist_id = $1) AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
