package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/models"
)

// Summary totals the settled entries of one appointment.
type Summary struct {
	Paid       decimal.Decimal `json:"paid"`
	Commission decimal.Decimal `json:"commission"`
	Earnings   decimal.Decimal `json:"earnings"`
	Refunds    decimal.Decimal `json:"refunds"`
	Retained   decimal.Decimal `json:"retained"`
	Holding    decimal.Decimal `json:"holding"`
}

// Distributed is what left the platform's escrow for this appointment.
func (s Summary) Distributed() decimal.Decimal {
	return s.Commission.Add(s.Earnings).Add(s.Refunds).Add(s.Retained)
}

// Balanced reports whether every unit paid in has been distributed. It only
// holds for settled appointments.
func (s Summary) Balanced(gross decimal.Decimal) bool {
	return s.Distributed().Equal(gross) && s.Holding.IsZero()
}

// Platform-side "other" entries are split by reference prefix: commission
// versus funds retained after a dispute.
const (
	KindCommission = "commission"
	KindRetained   = "retained"
)

// Summarize folds the entries and pouches of one appointment. Pending,
// reversed and failed entries do not count.
func Summarize(txs []*models.Transaction, pouches []*models.Pouch) Summary {
	s := Summary{
		Paid: decimal.Zero, Commission: decimal.Zero, Earnings: decimal.Zero,
		Refunds: decimal.Zero, Retained: decimal.Zero, Holding: decimal.Zero,
	}
	for _, t := range txs {
		if t.Type == models.TransactionPayment && t.Status != models.TransactionReversed && t.Status != models.TransactionFailed {
			s.Paid = s.Paid.Add(t.Amount)
			continue
		}
		if !t.Settled() {
			continue
		}
		switch t.Type {
		case models.TransactionEarning:
			s.Earnings = s.Earnings.Add(t.Amount)
		case models.TransactionRefund:
			s.Refunds = s.Refunds.Add(t.Amount)
		case models.TransactionOther:
			if hasPrefix(t.Reference, KindRetained) {
				s.Retained = s.Retained.Add(t.Amount)
			} else {
				s.Commission = s.Commission.Add(t.Amount)
			}
		}
	}
	for _, p := range pouches {
		if p.Status == models.PouchHolding {
			s.Holding = s.Holding.Add(p.Amount)
		}
	}
	return s
}

func hasPrefix(ref, kind string) bool {
	return len(ref) > len(kind) && ref[:len(kind)] == kind && ref[len(kind)] == ':'
}
