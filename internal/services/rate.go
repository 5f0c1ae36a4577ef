package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/models"
)

// CommissionRateKey is the settings row that overrides the configured rate.
const CommissionRateKey = "commission_rate"

// RateProvider supplies the commission rate, in percent, for one transition.
type RateProvider interface {
	CommissionRate(ctx context.Context) (decimal.Decimal, error)
}

type SettingsRepo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SettingsRate reads the rate from the settings table and falls back to
// Default when the row is missing or unusable.
type SettingsRate struct {
	Settings SettingsRepo
	Default  decimal.Decimal
	Logger   *slog.Logger
}

func (r *SettingsRate) CommissionRate(ctx context.Context) (decimal.Decimal, error) {
	raw, err := r.Settings.Get(ctx, CommissionRateKey)
	if errors.Is(err, models.ErrNotFound) {
		return r.Default, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read commission rate: %w", err)
	}
	rate, err := ParseRate(raw)
	if err != nil {
		r.Logger.Warn("ignoring invalid commission_rate setting", "value", raw, "error", err)
		return r.Default, nil
	}
	return rate, nil
}

// SetCommissionRate validates and stores a new rate.
func (r *SettingsRate) SetCommissionRate(ctx context.Context, raw string) (decimal.Decimal, error) {
	rate, err := ParseRate(raw)
	if err != nil {
		return decimal.Zero, reason(ErrValidation, "Commission rate must be a number between 0 and 100.")
	}
	if err := r.Settings.Set(ctx, CommissionRateKey, rate.String()); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

// ParseRate parses a percentage in [0, 100].
func ParseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("rate %s out of range", rate)
	}
	return rate, nil
}

// FixedRate always returns Rate.
type FixedRate struct {
	Rate decimal.Decimal
}

func (f FixedRate) CommissionRate(context.Context) (decimal.Decimal, error) { return f.Rate, nil }
