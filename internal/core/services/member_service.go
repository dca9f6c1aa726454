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

// memberService provides member and membership operations.
type memberService struct {
	memberRepo portsrepo.MemberRepositoryFacade
	groupAuth  portssvc.GroupAuthorizerSvc
}

// NewMemberService creates a new MemberService.
func NewMemberService(memberRepo portsrepo.MemberRepositoryFacade, groupAuth portssvc.GroupAuthorizerSvc) portssvc.MemberSvcFacade {
	return &memberService{
		memberRepo: memberRepo,
		groupAuth:  groupAuth,
	}
}

var _ portssvc.MemberSvcFacade = (*memberService)(nil)

// GetMemberByID retrieves a member by ID.
func (s *memberService) GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	return s.memberRepo.FindMemberByID(ctx, memberID)
}

// GetMemberForUser resolves the member record linked to a login account.
func (s *memberService) GetMemberForUser(ctx context.Context, userID string) (*domain.Member, error) {
	return s.memberRepo.FindMemberByUserID(ctx, userID)
}

// ListGroupMembers returns the roster of a group: members joined with
// their membership bookkeeping.
func (s *memberService) ListGroupMembers(ctx context.Context, groupID string) ([]dto.GroupMemberResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	memberships, err := s.memberRepo.ListMembershipsByGroup(ctx, groupID)
	if err != nil {
		logger.Error("Failed to list memberships", slog.String("error", err.Error()), slog.String("group_id", groupID))
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}

	roster := make([]dto.GroupMemberResponse, 0, len(memberships))
	for _, m := range memberships {
		member, err := s.memberRepo.FindMemberByID(ctx, m.MemberID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logger.Warn("Membership references missing member", slog.String("member_id", m.MemberID))
				continue
			}
			return nil, fmt.Errorf("failed to load member %s: %w", m.MemberID, err)
		}
		roster = append(roster, dto.GroupMemberResponse{
			MemberResponse:  dto.ToMemberResponse(member),
			MembershipID:    m.MembershipID,
			GroupLoanAmount: m.CurrentLoanAmount,
			ShareAmount:     m.ShareAmount,
			IsActive:        m.IsActive,
		})
	}
	return roster, nil
}

// CreateMember creates a member record.
func (s *memberService) CreateMember(ctx context.Context, req dto.CreateMemberRequest, creatorUserID string) (*domain.Member, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	member := domain.Member{
		MemberID:          uuid.NewString(),
		UserID:            req.UserID,
		Name:              req.Name,
		Phone:             req.Phone,
		CurrentLoanAmount: decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.memberRepo.SaveMember(ctx, member); err != nil {
		logger.Error("Failed to save member", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save member: %w", err)
	}

	logger.Info("Member created", slog.String("member_id", member.MemberID))
	return &member, nil
}

// AddMemberToGroup creates a membership row. Only the group leader may
// change the roster.
func (s *memberService) AddMemberToGroup(ctx context.Context, groupID string, req dto.AddGroupMemberRequest, requestingUserID string) (*domain.MemberGroupMembership, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.groupAuth.AuthorizeLeader(ctx, groupID, requestingUserID); err != nil {
		logger.Warn("Authorization failed for AddMemberToGroup", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return nil, err
	}

	if _, err := s.memberRepo.FindMemberByID(ctx, req.MemberID); err != nil {
		return nil, fmt.Errorf("failed to find member %s: %w", req.MemberID, err)
	}

	now := time.Now().UTC()
	membership := domain.MemberGroupMembership{
		MembershipID:      uuid.NewString(),
		GroupID:           groupID,
		MemberID:          req.MemberID,
		CurrentLoanAmount: decimal.Zero,
		ShareAmount:       req.ShareAmount,
		IsActive:          true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     requestingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: requestingUserID,
		},
	}

	if err := s.memberRepo.SaveMembership(ctx, membership); err != nil {
		logger.Error("Failed to save membership", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save membership: %w", err)
	}

	logger.Info("Member added to group", slog.String("group_id", groupID), slog.String("member_id", req.MemberID))
	return &membership, nil
}
