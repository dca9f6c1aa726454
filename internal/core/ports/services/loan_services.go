package services

import (
	"context"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/shopspring/decimal"
)

// LoanReaderSvc defines read operations for loan data.
type LoanReaderSvc interface {
	ListLoans(ctx context.Context, groupID string) ([]dto.LoanResponse, error)

	// TotalLoanAssets reconciles the group's outstanding loan principal
	// across the redundant bookkeeping sources.
	TotalLoanAssets(ctx context.Context, groupID string) (decimal.Decimal, error)
}

// LoanWriterSvc defines write operations for loan data.
type LoanWriterSvc interface {
	// CreateLoan issues a loan to a group member; leader-only.
	CreateLoan(ctx context.Context, groupID string, req dto.CreateLoanRequest, requestingUserID string) (*domain.Loan, error)

	// RecordRepayment applies a repayment to a loan; leader-only.
	RecordRepayment(ctx context.Context, groupID, loanID string, req dto.RecordRepaymentRequest, requestingUserID string) (*domain.Loan, error)
}

// LoanSvcFacade combines all loan-related service interfaces.
type LoanSvcFacade interface {
	LoanReaderSvc
	LoanWriterSvc
}
