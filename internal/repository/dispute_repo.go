package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stylebook/backend/internal/models"
)

type DisputeRepo struct {
	pool *pgxpool.Pool
}

func NewDisputeRepo(pool *pgxpool.Pool) *DisputeRepo {
	return &DisputeRepo{pool: pool}
}

const disputeColumns = `id, appointment_id, customer_id, stylist_id, originator, comment, image_paths, status, priority, resolution_type, resolution_amount, stylist_amount, resolution_comment, resolved_by, resolved_at, created_at, updated_at`

func scanDispute(row pgx.Row) (*models.AppointmentDispute, error) {
	var d models.AppointmentDispute
	err := row.Scan(&d.ID, &d.AppointmentID, &d.CustomerID, &d.StylistID, &d.Originator, &d.Comment, &d.ImagePaths, &d.Status, &d.Priority, &d.ResolutionType, &d.ResolutionAmount, &d.StylistAmount, &d.ResolutionComment, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *DisputeRepo) CreateTx(ctx context.Context, tx pgx.Tx, d *models.AppointmentDispute) error {
	if d.ImagePaths == nil {
		d.ImagePaths = []string{}
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO appointment_disputes (id, appointment_id, customer_id, stylist_id, originator, comment, image_paths, status, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, d.ID, d.AppointmentID, d.CustomerID, d.StylistID, d.Originator, d.Comment, d.ImagePaths, d.Status, d.Priority).Scan(&d.CreatedAt, &d.UpdatedAt)
	return translate(err)
}

func (r *DisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AppointmentDispute, error) {
	return scanDispute(r.pool.QueryRow(ctx, `SELECT `+disputeColumns+` FROM appointment_disputes WHERE id = $1`, id))
}

func (r *DisputeRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.AppointmentDispute, error) {
	return scanDispute(tx.QueryRow(ctx, `SELECT `+disputeColumns+` FROM appointment_disputes WHERE id = $1 FOR UPDATE`, id))
}

func (r *DisputeRepo) FindUnresolvedByAppointmentTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) (*models.AppointmentDispute, error) {
	return scanDispute(tx.QueryRow(ctx, `
		SELECT `+disputeColumns+` FROM appointment_disputes
		WHERE appointment_id = $1 AND status IN ('open', 'in_progress')
	`, appointmentID))
}

func (r *DisputeRepo) UpdateTx(ctx context.Context, tx pgx.Tx, d *models.AppointmentDispute) error {
	err := tx.QueryRow(ctx, `
		UPDATE appointment_disputes SET status = $2, priority = $3, resolution_type = $4, resolution_amount = $5, stylist_amount = $6, resolution_comment = $7, resolved_by = $8, resolved_at = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, d.ID, d.Status, d.Priority, d.ResolutionType, d.ResolutionAmount, d.StylistAmount, d.ResolutionComment, d.ResolvedBy, d.ResolvedAt).Scan(&d.UpdatedAt)
	return translate(err)
}

func (r *DisputeRepo) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*models.AppointmentDispute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+disputeColumns+` FROM appointment_disputes WHERE appointment_id = $1 ORDER BY created_at DESC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AppointmentDispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
