package dto

import (
	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Name                  string          `json:"name" binding:"required"`
	Description           string          `json:"description,omitempty"`
	LeaderMemberID        string          `json:"leaderMemberID" binding:"required"`
	Frequency             string          `json:"frequency" binding:"required,collectionfrequency"`
	CollectionDayOfMonth  *int            `json:"collectionDayOfMonth,omitempty" binding:"omitempty,min=1,max=31"`
	CollectionDayOfWeek   *int            `json:"collectionDayOfWeek,omitempty" binding:"omitempty,min=0,max=6"`
	CollectionWeekOfMonth *int            `json:"collectionWeekOfMonth,omitempty" binding:"omitempty,min=1,max=5"`
	MonthlyContribution   decimal.Decimal `json:"monthlyContribution" binding:"required"`
	InterestRatePercent   decimal.Decimal `json:"interestRatePercent"`
	LoanInsuranceEnabled  bool            `json:"loanInsuranceEnabled"`
	GroupSocialEnabled    bool            `json:"groupSocialEnabled"`
}

// UpdateGroupRequest carries optional group updates; nil fields are untouched.
type UpdateGroupRequest struct {
	Name                  *string          `json:"name,omitempty"`
	Description           *string          `json:"description,omitempty"`
	LeaderMemberID        *string          `json:"leaderMemberID,omitempty"`
	Frequency             *string          `json:"frequency,omitempty" binding:"omitempty,collectionfrequency"`
	CollectionDayOfMonth  *int             `json:"collectionDayOfMonth,omitempty" binding:"omitempty,min=1,max=31"`
	CollectionDayOfWeek   *int             `json:"collectionDayOfWeek,omitempty" binding:"omitempty,min=0,max=6"`
	CollectionWeekOfMonth *int             `json:"collectionWeekOfMonth,omitempty" binding:"omitempty,min=1,max=5"`
	MonthlyContribution   *decimal.Decimal `json:"monthlyContribution,omitempty"`
	InterestRatePercent   *decimal.Decimal `json:"interestRatePercent,omitempty"`
	LoanInsuranceEnabled  *bool            `json:"loanInsuranceEnabled,omitempty"`
	GroupSocialEnabled    *bool            `json:"groupSocialEnabled,omitempty"`
}

// GroupResponse is the API shape of a group.
type GroupResponse struct {
	GroupID               string          `json:"groupID"`
	Name                  string          `json:"name"`
	Description           string          `json:"description,omitempty"`
	LeaderMemberID        string          `json:"leaderMemberID"`
	Frequency             string          `json:"frequency"`
	CollectionDayOfMonth  *int            `json:"collectionDayOfMonth,omitempty"`
	CollectionDayOfWeek   *int            `json:"collectionDayOfWeek,omitempty"`
	CollectionWeekOfMonth *int            `json:"collectionWeekOfMonth,omitempty"`
	MonthlyContribution   decimal.Decimal `json:"monthlyContribution"`
	InterestRatePercent   decimal.Decimal `json:"interestRatePercent"`
	CashInHand            decimal.Decimal `json:"cashInHand"`
	CashInBank            decimal.Decimal `json:"cashInBank"`
	LoanInsuranceEnabled  bool            `json:"loanInsuranceEnabled"`
	GroupSocialEnabled    bool            `json:"groupSocialEnabled"`
}

// GroupSummaryResponse is the read-only standing report for a group.
type GroupSummaryResponse struct {
	GroupID         string          `json:"groupID"`
	CashInHand      decimal.Decimal `json:"cashInHand"`
	CashInBank      decimal.Decimal `json:"cashInBank"`
	TotalLoanAssets decimal.Decimal `json:"totalLoanAssets"`
	GroupStanding   decimal.Decimal `json:"groupStanding"`
}

// ToGroupResponse maps a domain group to its API shape.
func ToGroupResponse(g *domain.Group) GroupResponse {
	return GroupResponse{
		GroupID:               g.GroupID,
		Name:                  g.Name,
		Description:           g.Description,
		LeaderMemberID:        g.LeaderMemberID,
		Frequency:             string(g.Frequency),
		CollectionDayOfMonth:  g.CollectionDayOfMonth,
		CollectionDayOfWeek:   g.CollectionDayOfWeek,
		CollectionWeekOfMonth: g.CollectionWeekOfMonth,
		MonthlyContribution:   g.MonthlyContribution,
		InterestRatePercent:   g.InterestRatePercent,
		CashInHand:            g.CashInHand,
		CashInBank:            g.CashInBank,
		LoanInsuranceEnabled:  g.LoanInsuranceEnabled,
		GroupSocialEnabled:    g.GroupSocialEnabled,
	}
}

// FineRuleTierRequest is one tier of a TIER_BASED rule payload.
type FineRuleTierRequest struct {
	StartDay     int             `json:"startDay" binding:"min=1"`
	EndDay       *int            `json:"endDay,omitempty"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	IsPercentage bool            `json:"isPercentage"`
}

// ReplaceFineRuleRequest replaces the group's enabled fine rule.
type ReplaceFineRuleRequest struct {
	RuleType        string                `json:"ruleType" binding:"required,oneof=DAILY_FIXED DAILY_PERCENTAGE TIER_BASED"`
	Enabled         bool                  `json:"enabled"`
	DailyAmount     decimal.Decimal       `json:"dailyAmount"`
	DailyPercentage decimal.Decimal       `json:"dailyPercentage"`
	Tiers           []FineRuleTierRequest `json:"tiers,omitempty"`
}

// FineRuleResponse is the API shape of a late fine rule.
type FineRuleResponse struct {
	RuleID          string                 `json:"ruleID"`
	GroupID         string                 `json:"groupID"`
	RuleType        string                 `json:"ruleType"`
	Enabled         bool                   `json:"enabled"`
	DailyAmount     decimal.Decimal        `json:"dailyAmount"`
	DailyPercentage decimal.Decimal        `json:"dailyPercentage"`
	Tiers           []FineRuleTierResponse `json:"tiers,omitempty"`
}

// FineRuleTierResponse is the API shape of one rule tier.
type FineRuleTierResponse struct {
	StartDay     int             `json:"startDay"`
	EndDay       *int            `json:"endDay,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	IsPercentage bool            `json:"isPercentage"`
}

// ToFineRuleResponse maps a domain fine rule to its API shape.
func ToFineRuleResponse(r *domain.LateFineRule) FineRuleResponse {
	resp := FineRuleResponse{
		RuleID:          r.RuleID,
		GroupID:         r.GroupID,
		RuleType:        string(r.RuleType),
		Enabled:         r.Enabled,
		DailyAmount:     r.DailyAmount,
		DailyPercentage: r.DailyPercentage,
	}
	for _, t := range r.Tiers {
		resp.Tiers = append(resp.Tiers, FineRuleTierResponse{
			StartDay:     t.StartDay,
			EndDay:       t.EndDay,
			Amount:       t.Amount,
			IsPercentage: t.IsPercentage,
		})
	}
	return resp
}
