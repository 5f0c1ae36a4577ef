package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/services"
)

type PayoutActions interface {
	RequestWithdrawal(ctx context.Context, actor services.Actor, in services.RequestInput) (*services.Result[*models.Withdrawal], error)
	ApproveWithdrawal(ctx context.Context, actor services.Actor, id uuid.UUID, in services.DecisionInput) (*services.Result[*models.Withdrawal], error)
	RejectWithdrawal(ctx context.Context, actor services.Actor, id uuid.UUID, in services.DecisionInput) (*services.Result[*models.Withdrawal], error)
	RequestDeposit(ctx context.Context, actor services.Actor, in services.RequestInput) (*services.Result[*models.Deposit], error)
	ApproveDeposit(ctx context.Context, actor services.Actor, id uuid.UUID, in services.DecisionInput) (*services.Result[*models.Deposit], error)
	RejectDeposit(ctx context.Context, actor services.Actor, id uuid.UUID, in services.DecisionInput) (*services.Result[*models.Deposit], error)
	Wallet(ctx context.Context, actor services.Actor, limit int) (*services.Wallet, error)
	ListWithdrawals(ctx context.Context, actor services.Actor) ([]*models.Withdrawal, error)
	ListDeposits(ctx context.Context, actor services.Actor) ([]*models.Deposit, error)
}

// PayoutHandler serves the wallet, withdrawal and deposit endpoints.
type PayoutHandler struct {
	Service PayoutActions
	Schemas *Schemas
	Logger  *slog.Logger
}

// Wallet handles GET /api/v1/wallet?limit=N.
func (h *PayoutHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid limit.")
			return
		}
		limit = n
	}
	wallet, err := h.Service.Wallet(r.Context(), a, limit)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if wallet.Transactions == nil {
		wallet.Transactions = []*models.Transaction{}
	}
	writeOK(w, http.StatusOK, "", wallet)
}

func (h *PayoutHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestMoney(h, w, r, h.Service.RequestWithdrawal)
}

func (h *PayoutHandler) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	requestMoney(h, w, r, h.Service.RequestDeposit)
}

func (h *PayoutHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, h.Service.ApproveWithdrawal)
}

func (h *PayoutHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, h.Service.RejectWithdrawal)
}

func (h *PayoutHandler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, h.Service.ApproveDeposit)
}

func (h *PayoutHandler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	decide(h, w, r, h.Service.RejectDeposit)
}

func (h *PayoutHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.Service.ListWithdrawals)
}

func (h *PayoutHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.Service.ListDeposits)
}

func requestMoney[T any](h *PayoutHandler, w http.ResponseWriter, r *http.Request, fn func(context.Context, services.Actor, services.RequestInput) (*services.Result[T], error)) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in services.RequestInput
	if !decode(w, r, h.Schemas, SchemaMoneyRequest, &in) {
		return
	}
	res, err := fn(r.Context(), a, in)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func decide[T any](h *PayoutHandler, w http.ResponseWriter, r *http.Request, fn func(context.Context, services.Actor, uuid.UUID, services.DecisionInput) (*services.Result[T], error)) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.DecisionInput
	if !decode(w, r, h.Schemas, SchemaNote, &in) {
		return
	}
	res, err := fn(r.Context(), a, id, in)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func list[T any](h *PayoutHandler, w http.ResponseWriter, r *http.Request, fn func(context.Context, services.Actor) ([]T, error)) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := fn(r.Context(), a)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeOK(w, http.StatusOK, "", items)
}
