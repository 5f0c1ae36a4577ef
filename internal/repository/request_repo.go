package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stylebook/backend/internal/models"
)

// Withdrawals and deposits share one column layout.
const requestColumns = `id, user_id, amount, payment_method_id, status, note, processed_by, processed_at, created_at`

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.PaymentMethodID, &w.Status, &w.Note, &w.ProcessedBy, &w.ProcessedAt, &w.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, payment_method_id, status, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, w.ID, w.UserID, w.Amount, w.PaymentMethodID, w.Status, w.Note).Scan(&w.CreatedAt)
	return translate(err)
}

func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error) {
	return scanWithdrawal(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
}

func (r *WithdrawalRepo) UpdateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	_, err := tx.Exec(ctx, `
		UPDATE withdrawals SET status = $2, note = $3, processed_by = $4, processed_at = $5 WHERE id = $1
	`, w.ID, w.Status, w.Note, w.ProcessedBy, w.ProcessedAt)
	return translate(err)
}

func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

type DepositRepo struct {
	pool *pgxpool.Pool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

func scanDeposit(row pgx.Row) (*models.Deposit, error) {
	var d models.Deposit
	if err := row.Scan(&d.ID, &d.UserID, &d.Amount, &d.PaymentMethodID, &d.Status, &d.Note, &d.ProcessedBy, &d.ProcessedAt, &d.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *DepositRepo) CreateTx(ctx context.Context, tx pgx.Tx, d *models.Deposit) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO deposits (id, user_id, amount, payment_method_id, status, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, d.ID, d.UserID, d.Amount, d.PaymentMethodID, d.Status, d.Note).Scan(&d.CreatedAt)
	return translate(err)
}

func (r *DepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deposit, error) {
	return scanDeposit(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM deposits WHERE id = $1 FOR UPDATE`, id))
}

func (r *DepositRepo) UpdateTx(ctx context.Context, tx pgx.Tx, d *models.Deposit) error {
	_, err := tx.Exec(ctx, `
		UPDATE deposits SET status = $2, note = $3, processed_by = $4, processed_at = $5 WHERE id = $1
	`, d.ID, d.Status, d.Note, d.ProcessedBy, d.ProcessedAt)
	return translate(err)
}

func (r *DepositRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Deposit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM deposits WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
