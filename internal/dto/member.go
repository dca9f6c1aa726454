package dto

import (
	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateMemberRequest is the payload for creating a member record.
type CreateMemberRequest struct {
	Name   string  `json:"name" binding:"required"`
	Phone  string  `json:"phone,omitempty"`
	UserID *string `json:"userID,omitempty"`
}

// AddGroupMemberRequest adds an existing member to a group.
type AddGroupMemberRequest struct {
	MemberID    string          `json:"memberID" binding:"required"`
	ShareAmount decimal.Decimal `json:"shareAmount"`
}

// MemberResponse is the API shape of a member.
type MemberResponse struct {
	MemberID          string          `json:"memberID"`
	Name              string          `json:"name"`
	Phone             string          `json:"phone,omitempty"`
	CurrentLoanAmount decimal.Decimal `json:"currentLoanAmount"`
}

// GroupMemberResponse is a roster entry: the member plus membership bookkeeping.
type GroupMemberResponse struct {
	MemberResponse
	MembershipID      string          `json:"membershipID"`
	GroupLoanAmount   decimal.Decimal `json:"groupLoanAmount"`
	ShareAmount       decimal.Decimal `json:"shareAmount"`
	IsActive          bool            `json:"isActive"`
}

// ToMemberResponse maps a domain member to its API shape.
func ToMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		MemberID:          m.MemberID,
		Name:              m.Name,
		Phone:             m.Phone,
		CurrentLoanAmount: m.CurrentLoanAmount,
	}
}
