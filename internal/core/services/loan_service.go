package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahayog/shg_management_app/internal/apperrors"
	"github.com/sahayog/shg_management_app/internal/core/domain"
	portsrepo "github.com/sahayog/shg_management_app/internal/core/ports/repositories"
	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/middleware"
)

// loanService provides loan issuing, repayment and the loan asset aggregate.
type loanService struct {
	loanRepo  portsrepo.LoanRepositoryFacade
	groupAuth portssvc.GroupAuthorizerSvc
}

// NewLoanService creates a new LoanService.
func NewLoanService(loanRepo portsrepo.LoanRepositoryFacade, groupAuth portssvc.GroupAuthorizerSvc) portssvc.LoanSvcFacade {
	return &loanService{
		loanRepo:  loanRepo,
		groupAuth: groupAuth,
	}
}

var _ portssvc.LoanSvcFacade = (*loanService)(nil)

// ListLoans returns the group's loans.
func (s *loanService) ListLoans(ctx context.Context, groupID string) ([]dto.LoanResponse, error) {
	loans, err := s.loanRepo.ListLoansByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	resp := make([]dto.LoanResponse, 0, len(loans))
	for i := range loans {
		resp = append(resp, dto.ToLoanResponse(&loans[i]))
	}
	return resp, nil
}

// TotalLoanAssets reconciles the group's outstanding loan principal.
func (s *loanService) TotalLoanAssets(ctx context.Context, groupID string) (decimal.Decimal, error) {
	return ComputeTotalLoanAssets(ctx, s.loanRepo, groupID)
}

// ComputeTotalLoanAssets reconciles the three redundant loan-balance sums
// the data model carries. Membership bookkeeping is the most trustworthy
// source, the loan table comes second and the legacy per-member field last;
// the first strictly positive sum wins, otherwise zero. Shared as a
// package-level helper so the period close transaction can reuse it against
// a transaction-bound reader.
func ComputeTotalLoanAssets(ctx context.Context, r portsrepo.LoanBalanceReader, groupID string) (decimal.Decimal, error) {
	membershipSum, err := r.SumMembershipLoanAmounts(ctx, groupID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum membership loan amounts: %w", err)
	}
	if membershipSum.IsPositive() {
		return membershipSum, nil
	}

	loanSum, err := r.SumActiveLoanBalances(ctx, groupID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum active loan balances: %w", err)
	}
	if loanSum.IsPositive() {
		return loanSum, nil
	}

	memberSum, err := r.SumMemberLoanAmounts(ctx, groupID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum member loan amounts: %w", err)
	}
	if memberSum.IsPositive() {
		return memberSum, nil
	}
	return decimal.Zero, nil
}

// CreateLoan issues a loan to a group member; leader-only.
func (s *loanService) CreateLoan(ctx context.Context, groupID string, req dto.CreateLoanRequest, requestingUserID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	group, err := s.groupAuth.AuthorizeLeader(ctx, groupID, requestingUserID)
	if err != nil {
		return nil, err
	}

	if req.PrincipalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: principal amount must be positive", apperrors.ErrValidation)
	}

	rate := req.InterestRatePercent
	if rate.IsZero() {
		rate = group.InterestRatePercent
	}

	now := time.Now().UTC()
	issued := now
	if req.IssuedDate != nil {
		issued = *req.IssuedDate
	}

	loan := domain.Loan{
		LoanID:              uuid.NewString(),
		GroupID:             groupID,
		MemberID:            req.MemberID,
		Status:              domain.LoanActive,
		PrincipalAmount:     req.PrincipalAmount,
		CurrentBalance:      req.PrincipalAmount,
		InterestRatePercent: rate,
		IssuedDate:          issued,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requestingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: requestingUserID,
		},
	}

	if err := s.loanRepo.SaveLoan(ctx, loan); err != nil {
		logger.Error("Failed to save loan", slog.String("error", err.Error()), slog.String("group_id", groupID))
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	logger.Info("Loan created",
		slog.String("loan_id", loan.LoanID),
		slog.String("group_id", groupID),
		slog.String("member_id", req.MemberID),
		slog.String("principal", req.PrincipalAmount.String()))
	return &loan, nil
}

// RecordRepayment applies a repayment to a loan; leader-only.
func (s *loanService) RecordRepayment(ctx context.Context, groupID, loanID string, req dto.RecordRepaymentRequest, requestingUserID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.groupAuth.AuthorizeLeader(ctx, groupID, requestingUserID); err != nil {
		return nil, err
	}

	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.GroupID != groupID {
		return nil, fmt.Errorf("%w: loan %s does not belong to group %s", apperrors.ErrNotFound, loanID, groupID)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: repayment amount must be positive", apperrors.ErrValidation)
	}
	if req.Amount.GreaterThan(loan.CurrentBalance) {
		return nil, fmt.Errorf("%w: repayment %s exceeds outstanding balance %s", apperrors.ErrValidation, req.Amount, loan.CurrentBalance)
	}

	if err := s.loanRepo.ApplyRepayment(ctx, loanID, req.Amount, requestingUserID); err != nil {
		logger.Error("Failed to apply repayment", slog.String("error", err.Error()), slog.String("loan_id", loanID))
		return nil, fmt.Errorf("failed to apply repayment: %w", err)
	}

	updated, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload loan: %w", err)
	}

	logger.Info("Loan repayment recorded",
		slog.String("loan_id", loanID),
		slog.String("amount", req.Amount.String()),
		slog.String("remaining", updated.CurrentBalance.String()))
	return updated, nil
}
