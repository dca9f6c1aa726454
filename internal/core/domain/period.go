package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodRecord is one accounting period for a group. A freshly created
// ("auto-created") period has all aggregate fields nil; the period closing
// procedure populates them, which is what marks the record closed. The
// state is inferred from the data rather than stored as an explicit enum.
type PeriodRecord struct {
	PeriodID       string    `json:"periodID"`
	GroupID        string    `json:"groupID"`
	SequenceNumber int       `json:"sequenceNumber"` // monotonic per group
	MeetingDate    time.Time `json:"meetingDate"`

	// Aggregates, nil until the period is closed.
	TotalCollection   *decimal.Decimal `json:"totalCollection,omitempty"`
	TotalLoanInterest *decimal.Decimal `json:"totalLoanInterest,omitempty"`
	TotalLateFine     *decimal.Decimal `json:"totalLateFine,omitempty"`
	NewContribution   *decimal.Decimal `json:"newContribution,omitempty"`

	CashInHandAtEnd     *decimal.Decimal `json:"cashInHandAtEnd,omitempty"`
	CashInBankAtEnd     *decimal.Decimal `json:"cashInBankAtEnd,omitempty"`
	GroupStandingAtEnd  *decimal.Decimal `json:"groupStandingAtEnd,omitempty"`
	StartingStanding    decimal.Decimal  `json:"startingStanding"`
	StartingCashInHand  decimal.Decimal  `json:"startingCashInHand"`
	StartingCashInBank  decimal.Decimal  `json:"startingCashInBank"`
	MembersPresentCount *int             `json:"membersPresentCount,omitempty"`

	AuditFields
}

// IsClosed reports whether the closing procedure has written this period's
// aggregates. A nil or zero total collection means the period is still open.
func (p PeriodRecord) IsClosed() bool {
	return p.TotalCollection != nil && p.TotalCollection.IsPositive()
}

// PeriodClosing carries the closing figures written to a period record in
// the main close transaction.
type PeriodClosing struct {
	PeriodID            string
	TotalCollection     decimal.Decimal
	TotalLoanInterest   decimal.Decimal
	TotalLateFine       decimal.Decimal
	NewContribution     decimal.Decimal
	CashInHandAtEnd     decimal.Decimal
	CashInBankAtEnd     decimal.Decimal
	GroupStandingAtEnd  decimal.Decimal
	MembersPresentCount int
	UpdatedBy           string
	UpdatedAt           time.Time
}

// ContributionStatus tracks a member contribution row through its lifecycle.
type ContributionStatus string

const (
	ContributionPending ContributionStatus = "PENDING"
	ContributionPartial ContributionStatus = "PARTIAL"
	ContributionPaid    ContributionStatus = "PAID"
	ContributionOverdue ContributionStatus = "OVERDUE"
	ContributionLate    ContributionStatus = "LATE"
)

// MemberContribution is one member's ledger row within a period: what was
// due, what was paid, and the late fine bookkeeping the close procedure
// recalculates server-side.
type MemberContribution struct {
	ContributionID string `json:"contributionID"`
	PeriodID       string `json:"periodID"`
	MemberID       string `json:"memberID"`

	DueContribution  decimal.Decimal `json:"dueContribution"`
	DueLoanInterest  decimal.Decimal `json:"dueLoanInterest"`
	DueLoanInsurance decimal.Decimal `json:"dueLoanInsurance"`
	DueGroupSocial   decimal.Decimal `json:"dueGroupSocial"`

	PaidContribution decimal.Decimal `json:"paidContribution"`
	PaidLoanInterest decimal.Decimal `json:"paidLoanInterest"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`

	LateFineAmount   decimal.Decimal    `json:"lateFineAmount"`
	DaysLate         int                `json:"daysLate"`
	RemainingBalance decimal.Decimal    `json:"remainingBalance"`
	Status           ContributionStatus `json:"status"`
	DueDate          time.Time          `json:"dueDate"`

	// CashAllocation optionally holds the raw JSON split of this payment
	// between cash in hand and bank. Nil means the default split applies.
	CashAllocation *string `json:"cashAllocation,omitempty"`

	AuditFields
}

// ContributionCorrection is a server-side fix to a member contribution's
// late fine figures, applied in small batches during period close.
type ContributionCorrection struct {
	ContributionID string
	LateFineAmount decimal.Decimal
	DaysLate       int
	UpdatedBy      string
	UpdatedAt      time.Time
}

// PaymentRecord is a member's actual payment for the period being closed,
// as submitted by the client alongside the contribution snapshots.
type PaymentRecord struct {
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	InterestPaid     decimal.Decimal `json:"interestPaid"`
	ContributionPaid decimal.Decimal `json:"contributionPaid"`
	CashAllocation   *string         `json:"cashAllocation,omitempty"`
}
