package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/commission"
	"github.com/stylebook/backend/internal/database"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/notify"
)

type WithdrawalRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Withdrawal, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Withdrawal, error)
}

type DepositRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, d *models.Deposit) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deposit, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, d *models.Deposit) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Deposit, error)
}

type TransactionLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)
}

// PayoutService moves money between wallets and the outside world:
// withdrawals out, deposits in. Both are confirmed by an admin.
type PayoutService struct {
	*Engine
	Withdrawals  WithdrawalRepo
	Deposits     DepositRepo
	Transactions TransactionLister
}

func NewPayoutService(engine *Engine, withdrawals WithdrawalRepo, deposits DepositRepo, txs TransactionLister) *PayoutService {
	return &PayoutService{Engine: engine, Withdrawals: withdrawals, Deposits: deposits, Transactions: txs}
}

type RequestInput struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id"`
	Note            string          `json:"note" validate:"max=1000"`
}

func (in RequestInput) amount() (decimal.Decimal, error) {
	if err := validateInput(in); err != nil {
		return decimal.Zero, err
	}
	amount := commission.Round(in.Amount)
	if !amount.IsPositive() {
		return decimal.Zero, reason(ErrValidation, "Amount must be greater than zero.")
	}
	return amount, nil
}

type DecisionInput struct {
	Note string `json:"note" validate:"max=1000"`
}

// ---------------------------------------------------------------------------
// Withdrawals
// ---------------------------------------------------------------------------

// RequestWithdrawal debits the wallet at once so the funds cannot be spent
// twice while the request waits for an admin.
func (s *PayoutService) RequestWithdrawal(ctx context.Context, actor Actor, in RequestInput) (*Result[*models.Withdrawal], error) {
	amount, err := in.amount()
	if err != nil {
		return nil, err
	}
	wd := &models.Withdrawal{
		ID:              uuid.New(),
		UserID:          actor.ID,
		Amount:          amount,
		PaymentMethodID: in.PaymentMethodID,
		Status:          models.RequestPending,
		Note:            in.Note,
	}
	err = s.UoW.Do(ctx, func(w *database.Work) error {
		_, err := s.Ledger.Debit(ctx, w.Tx, ledger.Entry{
			UserID:      actor.ID,
			Amount:      amount,
			Type:        models.TransactionWithdraw,
			Status:      models.TransactionPending,
			Reference:   ledger.Reference(models.TransactionWithdraw, wd.ID),
			Description: "Withdrawal request",
		})
		if err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				return reason(ErrInsufficientBalance, "Your balance is too low to withdraw %s.", money(amount))
			}
			return err
		}
		return s.Withdrawals.CreateTx(ctx, w.Tx, wd)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("withdrawal requested", "withdrawal_id", wd.ID, "user_id", actor.ID, "amount", money(amount))
	return ok("Withdrawal requested.", wd), nil
}

func (s *PayoutService) ApproveWithdrawal(ctx context.Context, actor Actor, id uuid.UUID, in DecisionInput) (*Result[*models.Withdrawal], error) {
	return s.decideWithdrawal(ctx, actor, id, in, models.RequestApproved, func(ctx context.Context, tx pgx.Tx, wd *models.Withdrawal) error {
		_, err := s.Ledger.SetTransactionStatus(ctx, tx, ledger.Reference(models.TransactionWithdraw, wd.ID), models.TransactionCompleted)
		return err
	})
}

// RejectWithdrawal declines the request and returns the held amount.
func (s *PayoutService) RejectWithdrawal(ctx context.Context, actor Actor, id uuid.UUID, in DecisionInput) (*Result[*models.Withdrawal], error) {
	return s.decideWithdrawal(ctx, actor, id, in, models.RequestDeclined, func(ctx context.Context, tx pgx.Tx, wd *models.Withdrawal) error {
		if _, err := s.Ledger.SetTransactionStatus(ctx, tx, ledger.Reference(models.TransactionWithdraw, wd.ID), models.TransactionDeclined); err != nil {
			return err
		}
		_, err := s.Ledger.Credit(ctx, tx, ledger.Entry{
			UserID:      wd.UserID,
			Amount:      wd.Amount,
			Type:        models.TransactionRefund,
			Status:      models.TransactionCompleted,
			Reference:   ledger.Reference(models.TransactionRefund, wd.ID),
			Description: "Withdrawal declined",
		})
		return err
	})
}

func (s *PayoutService) decideWithdrawal(ctx context.Context, actor Actor, id uuid.UUID, in DecisionInput, to string, apply func(context.Context, pgx.Tx, *models.Withdrawal) error) (*Result[*models.Withdrawal], error) {
	if !actor.IsAdmin() {
		return nil, reason(ErrForbidden, "Only an administrator can process withdrawals.")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var out *models.Withdrawal
	err := s.withLock(ctx, withdrawalKey(id), func() error {
		return s.UoW.Do(ctx, func(w *database.Work) error {
			wd, err := s.Withdrawals.GetByIDForUpdate(ctx, w.Tx, id)
			if err != nil {
				return fmt.Errorf("withdrawal %s: %w", id, err)
			}
			if wd.Status != models.RequestPending {
				return reason(ErrAlreadyProcessed, "This withdrawal is already %s.", wd.Status)
			}
			if err := s.Ledger.LockUsers(ctx, w.Tx, wd.UserID); err != nil {
				return err
			}
			if err := apply(ctx, w.Tx, wd); err != nil {
				return err
			}
			now := s.now()
			wd.Status = to
			wd.ProcessedBy = &actor.ID
			wd.ProcessedAt = &now
			if in.Note != "" {
				wd.Note = in.Note
			}
			if err := s.Withdrawals.UpdateTx(ctx, w.Tx, wd); err != nil {
				return err
			}
			s.announceRequest(w, wd.UserID, "/wallet/withdrawals", "Withdrawal", notify.TemplateWithdrawalProcessed, wd.Amount, to)
			out = wd
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("withdrawal processed", "withdrawal_id", id, "status", to, "actor_id", actor.ID)
	return ok("Withdrawal "+to+".", out), nil
}

// ---------------------------------------------------------------------------
// Deposits
// ---------------------------------------------------------------------------

// RequestDeposit records a top-up. No money moves until an admin approves it.
func (s *PayoutService) RequestDeposit(ctx context.Context, actor Actor, in RequestInput) (*Result[*models.Deposit], error) {
	amount, err := in.amount()
	if err != nil {
		return nil, err
	}
	d := &models.Deposit{
		ID:              uuid.New(),
		UserID:          actor.ID,
		Amount:          amount,
		PaymentMethodID: in.PaymentMethodID,
		Status:          models.RequestPending,
		Note:            in.Note,
	}
	err = s.UoW.Do(ctx, func(w *database.Work) error {
		return s.Deposits.CreateTx(ctx, w.Tx, d)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("deposit requested", "deposit_id", d.ID, "user_id", actor.ID, "amount", money(amount))
	return ok("Deposit requested.", d), nil
}

// ApproveDeposit credits the wallet.
func (s *PayoutService) ApproveDeposit(ctx context.Context, actor Actor, id uuid.UUID, in DecisionInput) (*Result[*models.Deposit], error) {
	return s.decideDeposit(ctx, actor, id, in, models.RequestApproved, func(ctx context.Context, tx pgx.Tx, d *models.Deposit) error {
		_, err := s.Ledger.Credit(ctx, tx, ledger.Entry{
			UserID:      d.UserID,
			Amount:      d.Amount,
			Type:        models.TransactionPayment,
			Status:      models.TransactionCompleted,
			Reference:   ledger.Reference("deposit", d.ID),
			Description: "Wallet deposit",
		})
		return err
	})
}

func (s *PayoutService) RejectDeposit(ctx context.Context, actor Actor, id uuid.UUID, in DecisionInput) (*Result[*models.Deposit], error) {
	return s.decideDeposit(ctx, actor, id, in, models.RequestDeclined, nil)
}

func (s *PayoutService) decideDeposit(ctx context.Context, actor Actor, id uuid.UUID, in DecisionInput, to string, apply func(context.Context, pgx.Tx, *models.Deposit) error) (*Result[*models.Deposit], error) {
	if !actor.IsAdmin() {
		return nil, reason(ErrForbidden, "Only an administrator can process deposits.")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var out *models.Deposit
	err := s.withLock(ctx, depositKey(id), func() error {
		return s.UoW.Do(ctx, func(w *database.Work) error {
			d, err := s.Deposits.GetByIDForUpdate(ctx, w.Tx, id)
			if err != nil {
				return fmt.Errorf("deposit %s: %w", id, err)
			}
			if d.Status != models.RequestPending {
				return reason(ErrAlreadyProcessed, "This deposit is already %s.", d.Status)
			}
			if apply != nil {
				if err := apply(ctx, w.Tx, d); err != nil {
					return err
				}
			}
			now := s.now()
			d.Status = to
			d.ProcessedBy = &actor.ID
			d.ProcessedAt = &now
			if in.Note != "" {
				d.Note = in.Note
			}
			if err := s.Deposits.UpdateTx(ctx, w.Tx, d); err != nil {
				return err
			}
			s.announceRequest(w, d.UserID, "/wallet/deposits", "Deposit", notify.TemplateDepositProcessed, d.Amount, to)
			out = d
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("deposit processed", "deposit_id", id, "status", to, "actor_id", actor.ID)
	return ok("Deposit "+to+".", out), nil
}

func (s *PayoutService) announceRequest(w *database.Work, userID uuid.UUID, path, what, template string, amount decimal.Decimal, status string) {
	s.notifyUser(w, userID, path, what+" "+status,
		fmt.Sprintf("Your %s of %s was %s.", strings.ToLower(what), money(amount), status), notify.PriorityNormal)
	s.emailUser(w, userID, template, map[string]string{"amount": money(amount), "status": status})
}

// ---------------------------------------------------------------------------
// Wallet reads
// ---------------------------------------------------------------------------

// Wallet is a user's balance with their most recent ledger entries.
type Wallet struct {
	Balance      decimal.Decimal       `json:"balance"`
	Transactions []*models.Transaction `json:"transactions"`
}

func (s *PayoutService) Wallet(ctx context.Context, actor Actor, limit int) (*Wallet, error) {
	u, err := s.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txs, err := s.Transactions.ListByUser(ctx, actor.ID, limit)
	if err != nil {
		return nil, err
	}
	return &Wallet{Balance: u.Balance, Transactions: txs}, nil
}

func (s *PayoutService) ListWithdrawals(ctx context.Context, actor Actor) ([]*models.Withdrawal, error) {
	return s.Withdrawals.ListByUser(ctx, actor.ID)
}

func (s *PayoutService) ListDeposits(ctx context.Context, actor Actor) ([]*models.Deposit, error) {
	return s.Deposits.ListByUser(ctx, actor.ID)
}
