package dto

import (
	"time"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PeriodResponse is the API shape of a periodic record.
type PeriodResponse struct {
	PeriodID            string           `json:"periodID"`
	GroupID             string           `json:"groupID"`
	SequenceNumber      int              `json:"sequenceNumber"`
	MeetingDate         time.Time        `json:"meetingDate"`
	Closed              bool             `json:"closed"`
	TotalCollection     *decimal.Decimal `json:"totalCollection,omitempty"`
	TotalLoanInterest   *decimal.Decimal `json:"totalLoanInterest,omitempty"`
	TotalLateFine       *decimal.Decimal `json:"totalLateFine,omitempty"`
	NewContribution     *decimal.Decimal `json:"newContribution,omitempty"`
	CashInHandAtEnd     *decimal.Decimal `json:"cashInHandAtEnd,omitempty"`
	CashInBankAtEnd     *decimal.Decimal `json:"cashInBankAtEnd,omitempty"`
	GroupStandingAtEnd  *decimal.Decimal `json:"groupStandingAtEnd,omitempty"`
	StartingStanding    decimal.Decimal  `json:"startingStanding"`
	MembersPresentCount *int             `json:"membersPresentCount,omitempty"`
}

// ToPeriodResponse maps a domain period record to its API shape.
func ToPeriodResponse(p *domain.PeriodRecord) PeriodResponse {
	return PeriodResponse{
		PeriodID:            p.PeriodID,
		GroupID:             p.GroupID,
		SequenceNumber:      p.SequenceNumber,
		MeetingDate:         p.MeetingDate,
		Closed:              p.IsClosed(),
		TotalCollection:     p.TotalCollection,
		TotalLoanInterest:   p.TotalLoanInterest,
		TotalLateFine:       p.TotalLateFine,
		NewContribution:     p.NewContribution,
		CashInHandAtEnd:     p.CashInHandAtEnd,
		CashInBankAtEnd:     p.CashInBankAtEnd,
		GroupStandingAtEnd:  p.GroupStandingAtEnd,
		StartingStanding:    p.StartingStanding,
		MembersPresentCount: p.MembersPresentCount,
	}
}

// ContributionResponse is the API shape of a member contribution row.
type ContributionResponse struct {
	ContributionID   string          `json:"contributionID"`
	PeriodID         string          `json:"periodID"`
	MemberID         string          `json:"memberID"`
	DueContribution  decimal.Decimal `json:"dueContribution"`
	DueLoanInterest  decimal.Decimal `json:"dueLoanInterest"`
	DueLoanInsurance decimal.Decimal `json:"dueLoanInsurance"`
	DueGroupSocial   decimal.Decimal `json:"dueGroupSocial"`
	PaidContribution decimal.Decimal `json:"paidContribution"`
	PaidLoanInterest decimal.Decimal `json:"paidLoanInterest"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	LateFineAmount   decimal.Decimal `json:"lateFineAmount"`
	DaysLate         int             `json:"daysLate"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	Status           string          `json:"status"`
	DueDate          time.Time       `json:"dueDate"`
}

// ToContributionResponse maps a domain contribution to its API shape.
func ToContributionResponse(c *domain.MemberContribution) ContributionResponse {
	return ContributionResponse{
		ContributionID:   c.ContributionID,
		PeriodID:         c.PeriodID,
		MemberID:         c.MemberID,
		DueContribution:  c.DueContribution,
		DueLoanInterest:  c.DueLoanInterest,
		DueLoanInsurance: c.DueLoanInsurance,
		DueGroupSocial:   c.DueGroupSocial,
		PaidContribution: c.PaidContribution,
		PaidLoanInterest: c.PaidLoanInterest,
		TotalPaid:        c.TotalPaid,
		LateFineAmount:   c.LateFineAmount,
		DaysLate:         c.DaysLate,
		RemainingBalance: c.RemainingBalance,
		Status:           string(c.Status),
		DueDate:          c.DueDate,
	}
}

// CurrentPeriodResponse is the open period together with its contribution rows.
type CurrentPeriodResponse struct {
	Period        PeriodResponse         `json:"period"`
	Contributions []ContributionResponse `json:"contributions"`
}

// RecordPaymentRequest records a member's payment against a contribution row.
type RecordPaymentRequest struct {
	ContributionPaid decimal.Decimal `json:"contributionPaid"`
	InterestPaid     decimal.Decimal `json:"interestPaid"`
	LateFinePaid     decimal.Decimal `json:"lateFinePaid"`
	CashAllocation   *string         `json:"cashAllocation,omitempty"`
}
