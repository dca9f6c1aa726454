package dto

import (
	"time"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateLoanRequest is the payload for issuing a loan to a group member.
type CreateLoanRequest struct {
	MemberID            string          `json:"memberID" binding:"required"`
	PrincipalAmount     decimal.Decimal `json:"principalAmount" binding:"required"`
	InterestRatePercent decimal.Decimal `json:"interestRatePercent"`
	IssuedDate          *time.Time      `json:"issuedDate,omitempty"`
}

// RecordRepaymentRequest records a repayment against a loan.
type RecordRepaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// LoanResponse is the API shape of a loan.
type LoanResponse struct {
	LoanID              string          `json:"loanID"`
	GroupID             string          `json:"groupID"`
	MemberID            string          `json:"memberID"`
	Status              string          `json:"status"`
	PrincipalAmount     decimal.Decimal `json:"principalAmount"`
	CurrentBalance      decimal.Decimal `json:"currentBalance"`
	InterestRatePercent decimal.Decimal `json:"interestRatePercent"`
	IssuedDate          time.Time       `json:"issuedDate"`
}

// ToLoanResponse maps a domain loan to its API shape.
func ToLoanResponse(l *domain.Loan) LoanResponse {
	return LoanResponse{
		LoanID:              l.LoanID,
		GroupID:             l.GroupID,
		MemberID:            l.MemberID,
		Status:              string(l.Status),
		PrincipalAmount:     l.PrincipalAmount,
		CurrentBalance:      l.CurrentBalance,
		InterestRatePercent: l.InterestRatePercent,
		IssuedDate:          l.IssuedDate,
	}
}
