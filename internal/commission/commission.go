// Package commission splits a gross booking amount between the platform and
// the stylist.
package commission

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places every money amount is rounded to.
const Places = 2

var (
	ErrNegativeAmount = errors.New("commission: gross amount must not be negative")
	ErrRateOutOfRange = errors.New("commission: rate must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// Split is the result of applying a commission rate to a gross amount.
// Platform + Stylist always equals Gross.
type Split struct {
	Gross    decimal.Decimal
	Rate     decimal.Decimal
	Platform decimal.Decimal
	Stylist  decimal.Decimal
}

// Compute returns the platform and stylist shares of gross at ratePercent.
// The platform share is rounded half-up to cents and the stylist gets the
// remainder, so the two shares never drift from gross.
func Compute(gross, ratePercent decimal.Decimal) (Split, error) {
	if gross.IsNegative() {
		return Split{}, ErrNegativeAmount
	}
	if ratePercent.IsNegative() || ratePercent.GreaterThan(hundred) {
		return Split{}, ErrRateOutOfRange
	}
	gross = Round(gross)
	platform := Round(gross.Mul(ratePercent).Div(hundred))
	return Split{
		Gross:    gross,
		Rate:     ratePercent,
		Platform: platform,
		Stylist:  gross.Sub(platform),
	}, nil
}

// Round rounds d to cents. decimal.Round rounds half away from zero, which
// is half-up for the positive amounts the ledger stores.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}
