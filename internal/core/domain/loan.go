package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus tracks a loan through its lifecycle.
type LoanStatus string

const (
	LoanActive LoanStatus = "ACTIVE"
	LoanClosed LoanStatus = "CLOSED"
)

// Loan is a loan issued by a group to one of its members.
type Loan struct {
	LoanID              string          `json:"loanID"`
	GroupID             string          `json:"groupID"`
	MemberID            string          `json:"memberID"`
	Status              LoanStatus      `json:"status"`
	PrincipalAmount     decimal.Decimal `json:"principalAmount"`
	CurrentBalance      decimal.Decimal `json:"currentBalance"`
	InterestRatePercent decimal.Decimal `json:"interestRatePercent"`
	IssuedDate          time.Time       `json:"issuedDate"`
	AuditFields
}
