package dto

import (
	"github.com/shopspring/decimal"
)

// CloseContributionSnapshot is one member's contribution row as the client
// saw it when submitting the close. Late fine figures in the snapshot are
// advisory only: the server recomputes them and overwrites on mismatch.
type CloseContributionSnapshot struct {
	ContributionID   string          `json:"contributionID" binding:"required"`
	MemberID         string          `json:"memberID" binding:"required"`
	DueContribution  decimal.Decimal `json:"dueContribution"`
	PaidLoanInterest decimal.Decimal `json:"paidLoanInterest"`
	LateFineAmount   decimal.Decimal `json:"lateFineAmount"`
	DaysLate         int             `json:"daysLate"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
}

// ActualContribution is what a member actually handed over in the period
// being closed, keyed by member ID in the close request.
type ActualContribution struct {
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	ContributionPaid decimal.Decimal `json:"contributionPaid"`
	InterestPaid     decimal.Decimal `json:"interestPaid"`
	CashAllocation   *string         `json:"cashAllocation,omitempty"`
}

// ClosePeriodRequest is the body of the period close endpoint.
type ClosePeriodRequest struct {
	MemberContributions []CloseContributionSnapshot   `json:"memberContributions" binding:"required,min=1,dive"`
	ActualContributions map[string]ActualContribution `json:"actualContributions" binding:"required"`
}

// PeriodTransition describes the rollover performed by a successful close.
type PeriodTransition struct {
	ClosedPeriodID    string `json:"closedPeriodID"`
	NextPeriodID      string `json:"nextPeriodID,omitempty"`
	NextPeriodCreated bool   `json:"nextPeriodCreated"`
	RowsSeeded        int    `json:"rowsSeeded"`
}

// ClosePeriodResponse is the body of the period close endpoint. A repeated
// close of a just-closed period answers with the same shape, AlreadyClosed
// set and HTTP 409 at the boundary.
type ClosePeriodResponse struct {
	Success             bool             `json:"success"`
	AlreadyClosed       bool             `json:"alreadyClosed"`
	Message             string           `json:"message"`
	Record              PeriodResponse   `json:"record"`
	NewPeriod           *PeriodResponse  `json:"newPeriod,omitempty"`
	CurrentPeriod       *PeriodResponse  `json:"currentPeriod,omitempty"`
	IsAutoCreatedPeriod bool             `json:"isAutoCreatedPeriod"`
	Transition          PeriodTransition `json:"transition"`
}
