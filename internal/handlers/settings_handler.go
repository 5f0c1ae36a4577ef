package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

type CommissionSettings interface {
	CommissionRate(ctx context.Context) (decimal.Decimal, error)
	SetCommissionRate(ctx context.Context, raw string) (decimal.Decimal, error)
}

// SettingsHandler serves the admin commission rate endpoints.
type SettingsHandler struct {
	Settings CommissionSettings
	Schemas  *Schemas
	Logger   *slog.Logger
}

type rateRequest struct {
	Rate json.Number `json:"rate"`
}

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

func (h *SettingsHandler) GetCommissionRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.Settings.CommissionRate(r.Context())
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", rateResponse{Rate: rate})
}

func (h *SettingsHandler) SetCommissionRate(w http.ResponseWriter, r *http.Request) {
	var in rateRequest
	if !decode(w, r, h.Schemas, SchemaCommissionRate, &in) {
		return
	}
	rate, err := h.Settings.SetCommissionRate(r.Context(), in.Rate.String())
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	h.Logger.Info("commission rate changed", "rate", rate.String())
	writeOK(w, http.StatusOK, "Commission rate updated.", rateResponse{Rate: rate})
}
