// Package memstore is a test helper: an in-memory implementation of every
// persistence interface backing the services, router and ledger tests.
// Production binaries must not import it; cmd/ wires the repository package.
// Transactions are serialized: Begin blocks until the previous transaction
// commits or rolls back, and Rollback undoes every write made through the
// transaction.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/semaphore"

	"github.com/stylebook/backend/internal/models"
)

type Store struct {
	txSem *semaphore.Weighted

	mu           sync.Mutex
	users        map[uuid.UUID]*models.User
	userLocks    map[uuid.UUID]int
	transactions []*models.Transaction
	pouches      []*models.Pouch
	appointments []*models.Appointment
	disputes     []*models.AppointmentDispute
	withdrawals  []*models.Withdrawal
	deposits     []*models.Deposit
	settings     map[string]string

	addBalanceErr error

	Users        *Users
	Transactions *Transactions
	Pouches      *Pouches
	Appointments *Appointments
	Disputes     *Disputes
	Withdrawals  *Withdrawals
	Deposits     *Deposits
	Settings     *Settings
}

func New() *Store {
	s := &Store{
		txSem:     semaphore.NewWeighted(1),
		users:     make(map[uuid.UUID]*models.User),
		userLocks: make(map[uuid.UUID]int),
		settings:  make(map[string]string),
	}
	s.Users = &Users{s}
	s.Transactions = &Transactions{s}
	s.Pouches = &Pouches{s}
	s.Appointments = &Appointments{s}
	s.Disputes = &Disputes{s}
	s.Withdrawals = &Withdrawals{s}
	s.Deposits = &Deposits{s}
	s.Settings = &Settings{s}
	return s
}

// Begin starts a transaction, waiting for any other open one to finish.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := s.txSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &memTx{s: s}, nil
}

// FailNextAddBalance makes the next balance update return err.
func (s *Store) FailNextAddBalance(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addBalanceErr = err
}

// journal registers undo to run if tx rolls back. Callers hold s.mu.
func (s *Store) journal(tx pgx.Tx, undo func()) {
	if mt, ok := tx.(*memTx); ok && !mt.done {
		mt.undo = append(mt.undo, undo)
	}
}

// removeLast deletes the last element of list matching id.
func removeLast[T any](list []T, match func(T) bool) []T {
	for i := len(list) - 1; i >= 0; i-- {
		if match(list[i]) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// --- memTx satisfies pgx.Tx; only Commit/Rollback do anything. ---

type memTx struct {
	s    *Store
	undo []func()
	done bool
}

func (t *memTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.s.txSem.Release(1)
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	t.done = true
	t.undo = nil
	t.s.txSem.Release(1)
	return nil
}

func (t *memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *memTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
