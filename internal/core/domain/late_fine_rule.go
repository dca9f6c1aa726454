package domain

import "github.com/shopspring/decimal"

// FineRuleType distinguishes the supported late fine rule shapes.
type FineRuleType string

const (
	DailyFixed      FineRuleType = "DAILY_FIXED"
	DailyPercentage FineRuleType = "DAILY_PERCENTAGE"
	TierBased       FineRuleType = "TIER_BASED"
)

// LateFineRuleTier is one day-range bracket of a TIER_BASED rule.
// Ranges are authored non-overlapping and ordered; EndDay nil means open-ended.
type LateFineRuleTier struct {
	TierID       string          `json:"tierID"`
	RuleID       string          `json:"ruleID"`
	StartDay     int             `json:"startDay"`
	EndDay       *int            `json:"endDay,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"isPercentage"`
	Position     int             `json:"position"`
}

// Contains reports whether daysLate falls inside this tier's day range.
func (t LateFineRuleTier) Contains(daysLate int) bool {
	if daysLate < t.StartDay {
		return false
	}
	return t.EndDay == nil || daysLate <= *t.EndDay
}

// LateFineRule configures how late fines are charged for a group.
// By convention at most one rule per group is enabled at a time.
type LateFineRule struct {
	RuleID   string       `json:"ruleID"`
	GroupID  string       `json:"groupID"`
	RuleType FineRuleType `json:"ruleType"`
	Enabled  bool         `json:"enabled"`

	// DAILY_FIXED
	DailyAmount decimal.Decimal `json:"dailyAmount"`
	// DAILY_PERCENTAGE, percent of the due amount per day late
	DailyPercentage decimal.Decimal `json:"dailyPercentage"`
	// TIER_BASED
	Tiers []LateFineRuleTier `json:"tiers,omitempty"`

	AuditFields
}
