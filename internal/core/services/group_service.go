package services

import (
	"context"
	"errors"
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

// groupService provides group CRUD, fine rule management, the standing
// summary and leader authorization.
type groupService struct {
	groupRepo  portsrepo.GroupRepositoryFacade
	memberRepo portsrepo.MemberRepositoryFacade
	loanRepo   portsrepo.LoanBalanceReader
}

// NewGroupService creates a new GroupService.
func NewGroupService(groupRepo portsrepo.GroupRepositoryFacade, memberRepo portsrepo.MemberRepositoryFacade, loanRepo portsrepo.LoanBalanceReader) portssvc.GroupSvcFacade {
	return &groupService{
		groupRepo:  groupRepo,
		memberRepo: memberRepo,
		loanRepo:   loanRepo,
	}
}

var _ portssvc.GroupSvcFacade = (*groupService)(nil)

// GetGroupByID retrieves a group by ID.
func (s *groupService) GetGroupByID(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.groupRepo.FindGroupByID(ctx, groupID)
}

// ListGroups returns the groups the requesting user's member belongs to.
func (s *groupService) ListGroups(ctx context.Context, requestingUserID string) ([]domain.Group, error) {
	member, err := s.memberRepo.FindMemberByUserID(ctx, requestingUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// A login without a member record simply belongs to no groups.
			return []domain.Group{}, nil
		}
		return nil, fmt.Errorf("failed to resolve member for user: %w", err)
	}
	return s.groupRepo.ListGroups(ctx, member.MemberID)
}

// GetGroupSummary returns the standing report for a group. Standing is
// cash in hand + cash in bank + outstanding loan assets.
func (s *groupService) GetGroupSummary(ctx context.Context, groupID string) (*dto.GroupSummaryResponse, error) {
	group, err := s.groupRepo.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	loanAssets, err := ComputeTotalLoanAssets(ctx, s.loanRepo, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute loan assets: %w", err)
	}

	return &dto.GroupSummaryResponse{
		GroupID:         group.GroupID,
		CashInHand:      group.CashInHand,
		CashInBank:      group.CashInBank,
		TotalLoanAssets: loanAssets,
		GroupStanding:   group.CashInHand.Add(group.CashInBank).Add(loanAssets),
	}, nil
}

// CreateGroup creates a group and its leader's membership.
func (s *groupService) CreateGroup(ctx context.Context, req dto.CreateGroupRequest, creatorUserID string) (*domain.Group, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.memberRepo.FindMemberByID(ctx, req.LeaderMemberID); err != nil {
		return nil, fmt.Errorf("failed to find leader member %s: %w", req.LeaderMemberID, err)
	}

	now := time.Now().UTC()
	group := domain.Group{
		GroupID:               uuid.NewString(),
		Name:                  req.Name,
		Description:           req.Description,
		LeaderMemberID:        req.LeaderMemberID,
		Frequency:             domain.CollectionFrequency(req.Frequency),
		CollectionDayOfMonth:  req.CollectionDayOfMonth,
		CollectionDayOfWeek:   req.CollectionDayOfWeek,
		CollectionWeekOfMonth: req.CollectionWeekOfMonth,
		MonthlyContribution:   req.MonthlyContribution,
		InterestRatePercent:   req.InterestRatePercent,
		CashInHand:            decimal.Zero,
		CashInBank:            decimal.Zero,
		LoanInsuranceEnabled:  req.LoanInsuranceEnabled,
		GroupSocialEnabled:    req.GroupSocialEnabled,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.groupRepo.SaveGroup(ctx, group); err != nil {
		logger.Error("Failed to save group", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save group: %w", err)
	}

	// The leader is always a member of their own group.
	membership := domain.MemberGroupMembership{
		MembershipID:      uuid.NewString(),
		GroupID:           group.GroupID,
		MemberID:          req.LeaderMemberID,
		CurrentLoanAmount: decimal.Zero,
		ShareAmount:       decimal.Zero,
		IsActive:          true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if err := s.memberRepo.SaveMembership(ctx, membership); err != nil {
		logger.Error("Failed to save leader membership", slog.String("error", err.Error()), slog.String("group_id", group.GroupID))
		return nil, fmt.Errorf("failed to save leader membership: %w", err)
	}

	logger.Info("Group created", slog.String("group_id", group.GroupID), slog.String("name", group.Name))
	return &group, nil
}

// UpdateGroup applies partial updates to a group; leader-only.
func (s *groupService) UpdateGroup(ctx context.Context, groupID string, req dto.UpdateGroupRequest, requestingUserID string) (*domain.Group, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	group, err := s.AuthorizeLeader(ctx, groupID, requestingUserID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if req.LeaderMemberID != nil {
		if _, err := s.memberRepo.FindMemberByID(ctx, *req.LeaderMemberID); err != nil {
			return nil, fmt.Errorf("failed to find new leader member %s: %w", *req.LeaderMemberID, err)
		}
		group.LeaderMemberID = *req.LeaderMemberID
	}
	if req.Frequency != nil {
		group.Frequency = domain.CollectionFrequency(*req.Frequency)
	}
	if req.CollectionDayOfMonth != nil {
		group.CollectionDayOfMonth = req.CollectionDayOfMonth
	}
	if req.CollectionDayOfWeek != nil {
		group.CollectionDayOfWeek = req.CollectionDayOfWeek
	}
	if req.CollectionWeekOfMonth != nil {
		group.CollectionWeekOfMonth = req.CollectionWeekOfMonth
	}
	if req.MonthlyContribution != nil {
		group.MonthlyContribution = *req.MonthlyContribution
	}
	if req.InterestRatePercent != nil {
		group.InterestRatePercent = *req.InterestRatePercent
	}
	if req.LoanInsuranceEnabled != nil {
		group.LoanInsuranceEnabled = *req.LoanInsuranceEnabled
	}
	if req.GroupSocialEnabled != nil {
		group.GroupSocialEnabled = *req.GroupSocialEnabled
	}
	group.LastUpdatedAt = time.Now().UTC()
	group.LastUpdatedBy = requestingUserID

	if err := s.groupRepo.UpdateGroup(ctx, *group); err != nil {
		logger.Error("Failed to update group", slog.String("error", err.Error()), slog.String("group_id", groupID))
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	logger.Info("Group updated", slog.String("group_id", groupID))
	return group, nil
}

// DeleteGroup removes a group and everything it owns; leader-only.
func (s *groupService) DeleteGroup(ctx context.Context, groupID string, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.AuthorizeLeader(ctx, groupID, requestingUserID); err != nil {
		return err
	}

	if err := s.groupRepo.DeleteGroup(ctx, groupID); err != nil {
		logger.Error("Failed to delete group", slog.String("error", err.Error()), slog.String("group_id", groupID))
		return fmt.Errorf("failed to delete group: %w", err)
	}

	logger.Info("Group deleted", slog.String("group_id", groupID))
	return nil
}

// ListFineRules returns the group's fine rules, enabled and disabled.
func (s *groupService) ListFineRules(ctx context.Context, groupID string) ([]dto.FineRuleResponse, error) {
	rules, err := s.groupRepo.ListFineRules(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fine rules: %w", err)
	}
	resp := make([]dto.FineRuleResponse, 0, len(rules))
	for i := range rules {
		resp = append(resp, dto.ToFineRuleResponse(&rules[i]))
	}
	return resp, nil
}

// ReplaceFineRule replaces the group's enabled fine rule; leader-only.
func (s *groupService) ReplaceFineRule(ctx context.Context, groupID string, req dto.ReplaceFineRuleRequest, requestingUserID string) (*dto.FineRuleResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.AuthorizeLeader(ctx, groupID, requestingUserID); err != nil {
		return nil, err
	}

	if err := validateFineRuleRequest(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rule := domain.LateFineRule{
		RuleID:          uuid.NewString(),
		GroupID:         groupID,
		RuleType:        domain.FineRuleType(req.RuleType),
		Enabled:         req.Enabled,
		DailyAmount:     req.DailyAmount,
		DailyPercentage: req.DailyPercentage,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requestingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: requestingUserID,
		},
	}
	for i, t := range req.Tiers {
		rule.Tiers = append(rule.Tiers, domain.LateFineRuleTier{
			TierID:       uuid.NewString(),
			RuleID:       rule.RuleID,
			StartDay:     t.StartDay,
			EndDay:       t.EndDay,
			Amount:       t.Amount,
			IsPercentage: t.IsPercentage,
			Position:     i,
		})
	}

	if err := s.groupRepo.ReplaceFineRule(ctx, rule); err != nil {
		logger.Error("Failed to replace fine rule", slog.String("error", err.Error()), slog.String("group_id", groupID))
		return nil, fmt.Errorf("failed to replace fine rule: %w", err)
	}

	logger.Info("Fine rule replaced", slog.String("group_id", groupID), slog.String("rule_type", req.RuleType))
	resp := dto.ToFineRuleResponse(&rule)
	return &resp, nil
}

// validateFineRuleRequest enforces the cross-field constraints the binding
// tags cannot express.
func validateFineRuleRequest(req dto.ReplaceFineRuleRequest) error {
	switch domain.FineRuleType(req.RuleType) {
	case domain.DailyFixed:
		if req.DailyAmount.IsNegative() {
			return fmt.Errorf("%w: dailyAmount must not be negative", apperrors.ErrValidation)
		}
	case domain.DailyPercentage:
		if req.DailyPercentage.IsNegative() {
			return fmt.Errorf("%w: dailyPercentage must not be negative", apperrors.ErrValidation)
		}
	case domain.TierBased:
		if len(req.Tiers) == 0 {
			return fmt.Errorf("%w: TIER_BASED rule requires at least one tier", apperrors.ErrValidation)
		}
		for i, t := range req.Tiers {
			if t.EndDay != nil && *t.EndDay < t.StartDay {
				return fmt.Errorf("%w: tier %d has endDay before startDay", apperrors.ErrValidation, i)
			}
		}
	}
	return nil
}

// AuthorizeLeader verifies the requesting user's member record is the
// group's leader.
func (s *groupService) AuthorizeLeader(ctx context.Context, groupID string, requestingUserID string) (*domain.Group, error) {
	group, err := s.groupRepo.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	member, err := s.memberRepo.FindMemberByUserID(ctx, requestingUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user has no member record", apperrors.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to resolve member for user: %w", err)
	}

	if member.MemberID != group.LeaderMemberID {
		return nil, fmt.Errorf("%w: only the group leader may perform this action", apperrors.ErrForbidden)
	}
	return group, nil
}
