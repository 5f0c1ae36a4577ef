package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stylebook/backend/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, appointment_id, amount, type, status, reference, description, created_at, updated_at`

func scanTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AppointmentID, &t.Amount, &t.Type, &t.Status, &t.Reference, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// CreateTx inserts a ledger entry inside the given transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, appointment_id, amount, type, status, reference, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, t.ID, t.UserID, t.AppointmentID, t.Amount, t.Type, t.Status, t.Reference, t.Description).Scan(&t.CreatedAt, &t.UpdatedAt)
	return translate(err)
}

func (r *TransactionRepo) GetByReferenceTx(ctx context.Context, tx pgx.Tx, reference string) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE reference = $1 FOR UPDATE
	`, reference).Scan(&t.ID, &t.UserID, &t.AppointmentID, &t.Amount, &t.Type, &t.Status, &t.Reference, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TransactionRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	tag, err := tx.Exec(ctx, `UPDATE transactions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *TransactionRepo) ListByAppointmentTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE appointment_id = $1 ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// ListByUser returns the newest entries first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}
