package domain

import "github.com/shopspring/decimal"

// Member is a person participating in one or more groups.
// CurrentLoanAmount is a legacy member-level loan balance kept for
// compatibility with old data; see the loan asset aggregator.
type Member struct {
	MemberID          string          `json:"memberID"`
	UserID            *string         `json:"userID,omitempty"` // login account, if any
	Name              string          `json:"name"`
	Phone             string          `json:"phone,omitempty"`
	CurrentLoanAmount decimal.Decimal `json:"currentLoanAmount"`
	AuditFields
}

// MemberGroupMembership links a member to a group and carries the per-group
// loan balance and share amount bookkeeping.
type MemberGroupMembership struct {
	MembershipID      string          `json:"membershipID"`
	GroupID           string          `json:"groupID"`
	MemberID          string          `json:"memberID"`
	CurrentLoanAmount decimal.Decimal `json:"currentLoanAmount"`
	ShareAmount       decimal.Decimal `json:"shareAmount"`
	IsActive          bool            `json:"isActive"`
	AuditFields
}
