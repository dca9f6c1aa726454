package finance

import (
	"encoding/json"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Default split applied when a payment carries no explicit allocation:
// 30% stays in hand, 70% goes to the bank.
var (
	defaultHandRatio = decimal.NewFromFloat(0.3)
	defaultBankRatio = decimal.NewFromFloat(0.7)
)

// cashAllocation is the per-payment JSON blob shape. All four fields are
// optional; absent fields decode to zero.
type cashAllocation struct {
	ContributionToHand decimal.Decimal `json:"contributionToHand"`
	ContributionToBank decimal.Decimal `json:"contributionToBank"`
	InterestToHand     decimal.Decimal `json:"interestToHand"`
	InterestToBank     decimal.Decimal `json:"interestToBank"`
}

// AllocateCash aggregates the per-member payment records of a period into
// (cash in hand, cash in bank) totals. A payment with a well-formed
// cashAllocation JSON contributes its four named amounts; anything else,
// including malformed JSON, falls back to the default 30/70 split of the
// payment's total. The malformed-JSON soft-fail is deliberate: a bad blob
// must never block a period close.
func AllocateCash(payments map[string]domain.PaymentRecord) (hand, bank decimal.Decimal) {
	hand, bank = decimal.Zero, decimal.Zero
	for _, p := range payments {
		h, b, ok := allocateOne(p)
		if !ok {
			h = p.TotalPaid.Mul(defaultHandRatio)
			b = p.TotalPaid.Mul(defaultBankRatio)
		}
		hand = hand.Add(h)
		bank = bank.Add(b)
	}
	return hand, bank
}

func allocateOne(p domain.PaymentRecord) (hand, bank decimal.Decimal, ok bool) {
	if p.CashAllocation == nil || *p.CashAllocation == "" {
		return decimal.Zero, decimal.Zero, false
	}
	var alloc cashAllocation
	if err := json.Unmarshal([]byte(*p.CashAllocation), &alloc); err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	hand = alloc.ContributionToHand.Add(alloc.InterestToHand)
	bank = alloc.ContributionToBank.Add(alloc.InterestToBank)
	return hand, bank, true
}
