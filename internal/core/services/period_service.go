package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sahayog/shg_management_app/internal/apperrors"
	"github.com/sahayog/shg_management_app/internal/core/domain"
	portsrepo "github.com/sahayog/shg_management_app/internal/core/ports/repositories"
	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/middleware"
)

// periodService provides period listing, the current-period view and
// per-member payment recording. The closing procedure lives in its own
// service.
type periodService struct {
	periodRepo portsrepo.PeriodRepositoryFacade
	groupAuth  portssvc.GroupAuthorizerSvc
}

// NewPeriodService creates a new PeriodService.
func NewPeriodService(periodRepo portsrepo.PeriodRepositoryFacade, groupAuth portssvc.GroupAuthorizerSvc) portssvc.PeriodSvcFacade {
	return &periodService{
		periodRepo: periodRepo,
		groupAuth:  groupAuth,
	}
}

var _ portssvc.PeriodSvcFacade = (*periodService)(nil)

// ListPeriods returns the group's periods, newest first.
func (s *periodService) ListPeriods(ctx context.Context, groupID string) ([]dto.PeriodResponse, error) {
	periods, err := s.periodRepo.ListPeriodsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	resp := make([]dto.PeriodResponse, 0, len(periods))
	for i := range periods {
		resp = append(resp, dto.ToPeriodResponse(&periods[i]))
	}
	return resp, nil
}

// GetCurrentPeriod returns the group's oldest open period together with its
// contribution rows. It never creates a period; rollover belongs to the
// closing procedure.
func (s *periodService) GetCurrentPeriod(ctx context.Context, groupID string) (*dto.CurrentPeriodResponse, error) {
	open, err := s.periodRepo.FindOpenPeriods(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to find open periods: %w", err)
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("%w: group %s has no open period", apperrors.ErrNotFound, groupID)
	}
	current := open[0]

	contributions, err := s.periodRepo.FindContributionsByPeriod(ctx, current.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contributions: %w", err)
	}

	resp := &dto.CurrentPeriodResponse{
		Period:        dto.ToPeriodResponse(&current),
		Contributions: make([]dto.ContributionResponse, 0, len(contributions)),
	}
	for i := range contributions {
		resp.Contributions = append(resp.Contributions, dto.ToContributionResponse(&contributions[i]))
	}
	return resp, nil
}

// RecordPayment records a member's payment against the open period's
// contribution row; leader-only.
func (s *periodService) RecordPayment(ctx context.Context, groupID, periodID, memberID string, req dto.RecordPaymentRequest, requestingUserID string) (*dto.ContributionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.groupAuth.AuthorizeLeader(ctx, groupID, requestingUserID); err != nil {
		return nil, err
	}

	period, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period.GroupID != groupID {
		return nil, fmt.Errorf("%w: period %s does not belong to group %s", apperrors.ErrNotFound, periodID, groupID)
	}
	if period.IsClosed() {
		return nil, fmt.Errorf("%w: period %s is already closed", apperrors.ErrConflict, periodID)
	}

	if req.ContributionPaid.IsNegative() || req.InterestPaid.IsNegative() || req.LateFinePaid.IsNegative() {
		return nil, fmt.Errorf("%w: payment amounts must not be negative", apperrors.ErrValidation)
	}

	contributions, err := s.periodRepo.FindContributionsByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contributions: %w", err)
	}
	var row *domain.MemberContribution
	for i := range contributions {
		if contributions[i].MemberID == memberID {
			row = &contributions[i]
			break
		}
	}
	if row == nil {
		return nil, fmt.Errorf("%w: member %s has no contribution row in period %s", apperrors.ErrNotFound, memberID, periodID)
	}

	row.PaidContribution = row.PaidContribution.Add(req.ContributionPaid)
	row.PaidLoanInterest = row.PaidLoanInterest.Add(req.InterestPaid)
	row.TotalPaid = row.TotalPaid.Add(req.ContributionPaid).Add(req.InterestPaid).Add(req.LateFinePaid)
	if req.CashAllocation != nil {
		row.CashAllocation = req.CashAllocation
	}

	row.RemainingBalance = row.DueContribution.Sub(row.PaidContribution)
	if row.RemainingBalance.IsNegative() {
		row.RemainingBalance = decimal.Zero
	}
	switch {
	case row.RemainingBalance.IsZero():
		row.Status = domain.ContributionPaid
	case row.PaidContribution.IsPositive():
		row.Status = domain.ContributionPartial
	default:
		row.Status = domain.ContributionPending
	}
	row.LastUpdatedAt = time.Now().UTC()
	row.LastUpdatedBy = requestingUserID

	if err := s.periodRepo.UpdateContributionPayment(ctx, *row); err != nil {
		logger.Error("Failed to update contribution payment", slog.String("error", err.Error()), slog.String("contribution_id", row.ContributionID))
		return nil, fmt.Errorf("failed to update contribution payment: %w", err)
	}

	logger.Info("Payment recorded",
		slog.String("period_id", periodID),
		slog.String("member_id", memberID),
		slog.String("total_paid", row.TotalPaid.String()))
	resp := dto.ToContributionResponse(row)
	return &resp, nil
}
