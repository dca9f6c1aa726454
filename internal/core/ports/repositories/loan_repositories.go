package repositories

import (
	"context"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LoanReader defines read operations for loan data.
type LoanReader interface {
	FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	ListLoansByGroup(ctx context.Context, groupID string) ([]domain.Loan, error)
}

// LoanWriter defines write operations for loan data.
type LoanWriter interface {
	SaveLoan(ctx context.Context, loan domain.Loan) error

	// ApplyRepayment reduces a loan's current balance and mirrors the
	// change onto the membership's loan bookkeeping.
	ApplyRepayment(ctx context.Context, loanID string, amount decimal.Decimal, updatedBy string) error
}

// LoanBalanceReader exposes the three redundant loan-balance sums the
// loan asset aggregator reconciles. The redundancy is inherited from old
// data migrations; see the aggregator for the priority order.
type LoanBalanceReader interface {
	// SumActiveLoanBalances sums currentBalance over the group's ACTIVE loans.
	SumActiveLoanBalances(ctx context.Context, groupID string) (decimal.Decimal, error)

	// SumMembershipLoanAmounts sums currentLoanAmount over the group's memberships.
	SumMembershipLoanAmounts(ctx context.Context, groupID string) (decimal.Decimal, error)

	// SumMemberLoanAmounts sums currentLoanAmount over members that hold
	// any membership in the group.
	SumMemberLoanAmounts(ctx context.Context, groupID string) (decimal.Decimal, error)
}

// LoanRepositoryFacade combines all loan-related repository interfaces.
type LoanRepositoryFacade interface {
	LoanReader
	LoanWriter
	LoanBalanceReader
}
