package finance

import (
	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FineAmount computes the late fine for a contribution that is daysLate
// days overdue against the given expected amount and rule.
//
// A nil or disabled rule, or daysLate <= 0, yields zero. For TIER_BASED
// rules the first tier containing daysLate wins; percentage tiers apply
// their percent to the expected amount once, while flat tiers multiply
// the tier amount by the total days late. That asymmetry is long-standing
// charging behavior and is pinned by tests; do not "fix" it here.
func FineAmount(daysLate int, expected decimal.Decimal, rule *domain.LateFineRule) decimal.Decimal {
	if daysLate <= 0 || rule == nil || !rule.Enabled {
		return decimal.Zero
	}

	days := decimal.NewFromInt(int64(daysLate))

	switch rule.RuleType {
	case domain.DailyFixed:
		return rule.DailyAmount.Mul(days)
	case domain.DailyPercentage:
		return rule.DailyPercentage.Div(hundred).Mul(expected).Mul(days)
	case domain.TierBased:
		for _, tier := range rule.Tiers {
			if !tier.Contains(daysLate) {
				continue
			}
			if tier.IsPercentage {
				return tier.Amount.Div(hundred).Mul(expected)
			}
			return tier.Amount.Mul(days)
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}
