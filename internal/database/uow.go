package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stylebook/backend/internal/lock"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// Work is the handle a unit of work body receives.
type Work struct {
	Tx    pgx.Tx
	hooks []hook
}

// AfterCommit queues fn to run once the transaction has committed. It never
// runs when the body fails or the commit does.
func (w *Work) AfterCommit(name string, fn func(ctx context.Context) error) {
	w.hooks = append(w.hooks, hook{name: name, fn: fn})
}

// UnitOfWork runs a body inside one database transaction.
type UnitOfWork struct {
	DB          TxBeginner
	LockTimeout time.Duration
	Logger      *slog.Logger
}

func NewUnitOfWork(db TxBeginner, lockTimeout time.Duration, logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{DB: db, LockTimeout: lockTimeout, Logger: logger}
}

// Do begins a transaction, runs body and commits. Any error from body rolls
// everything back. Row lock waits longer than LockTimeout fail with
// lock.ErrBusy. After-commit hooks run last; their failures are logged only.
func (u *UnitOfWork) Do(ctx context.Context, body func(w *Work) error) error {
	tx, err := u.DB.Begin(ctx)
	if err != nil {
		return translate(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if u.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	w := &Work{Tx: tx}
	if err := body(w); err != nil {
		return translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range w.hooks {
		if err := h.fn(hookCtx); err != nil {
			u.logger().Error("after-commit hook failed", "hook", h.name, "error", err)
		}
	}
	return nil
}

func (u *UnitOfWork) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

func translate(err error) error {
	if HasCode(err, CodeLockNotAvailable) {
		return fmt.Errorf("%w: %v", lock.ErrBusy, err)
	}
	return err
}
