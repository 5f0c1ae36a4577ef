package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stylebook/backend/internal/models"
)

// PouchRepo persists escrow pouches.
type PouchRepo struct {
	pool *pgxpool.Pool
}

func NewPouchRepo(pool *pgxpool.Pool) *PouchRepo {
	return &PouchRepo{pool: pool}
}

const pouchColumns = `id, appointment_id, stylist_id, amount, kind, status, created_at, resolved_at`

func scanPouch(row pgx.Row) (*models.Pouch, error) {
	var p models.Pouch
	if err := row.Scan(&p.ID, &p.AppointmentID, &p.StylistID, &p.Amount, &p.Kind, &p.Status, &p.CreatedAt, &p.ResolvedAt); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PouchRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.Pouch) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO pouches (id, appointment_id, stylist_id, amount, kind, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, p.AppointmentID, p.StylistID, p.Amount, p.Kind, p.Status).Scan(&p.CreatedAt)
	return translate(err)
}

func (r *PouchRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Pouch, error) {
	return scanPouch(tx.QueryRow(ctx, `SELECT `+pouchColumns+` FROM pouches WHERE id = $1 FOR UPDATE`, id))
}

func (r *PouchRepo) GetByAppointmentForUpdate(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, kind string) (*models.Pouch, error) {
	return scanPouch(tx.QueryRow(ctx, `
		SELECT `+pouchColumns+` FROM pouches
		WHERE appointment_id = $1 AND kind = $2 FOR UPDATE
	`, appointmentID, kind))
}

func (r *PouchRepo) ListByAppointmentTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) ([]*models.Pouch, error) {
	rows, err := tx.Query(ctx, `SELECT `+pouchColumns+` FROM pouches WHERE appointment_id = $1 ORDER BY created_at`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Pouch
	for rows.Next() {
		p, err := scanPouch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PouchRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, resolvedAt time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE pouches SET status = $2, resolved_at = $3 WHERE id = $1`, id, status, resolvedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
