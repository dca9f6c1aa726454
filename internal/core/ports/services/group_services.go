package services

import (
	"context"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/sahayog/shg_management_app/internal/dto"
)

// GroupReaderSvc defines read operations for group data.
type GroupReaderSvc interface {
	GetGroupByID(ctx context.Context, groupID string) (*domain.Group, error)

	// ListGroups returns the groups the requesting user's member belongs to.
	ListGroups(ctx context.Context, requestingUserID string) ([]domain.Group, error)

	// GetGroupSummary returns the standing report for a group.
	GetGroupSummary(ctx context.Context, groupID string) (*dto.GroupSummaryResponse, error)
}

// GroupWriterSvc defines write operations for group data.
type GroupWriterSvc interface {
	CreateGroup(ctx context.Context, req dto.CreateGroupRequest, creatorUserID string) (*domain.Group, error)

	// UpdateGroup applies partial updates; leader-only.
	UpdateGroup(ctx context.Context, groupID string, req dto.UpdateGroupRequest, requestingUserID string) (*domain.Group, error)

	// DeleteGroup removes a group and everything it owns; leader-only.
	DeleteGroup(ctx context.Context, groupID string, requestingUserID string) error
}

// FineRuleSvc manages a group's late fine rules.
type FineRuleSvc interface {
	ListFineRules(ctx context.Context, groupID string) ([]dto.FineRuleResponse, error)

	// ReplaceFineRule replaces the group's enabled rule; leader-only.
	ReplaceFineRule(ctx context.Context, groupID string, req dto.ReplaceFineRuleRequest, requestingUserID string) (*dto.FineRuleResponse, error)
}

// GroupAuthorizerSvc checks the caller's standing within a group.
type GroupAuthorizerSvc interface {
	// AuthorizeLeader verifies the requesting user's member is the group's
	// leader. Returns apperrors.ErrForbidden otherwise, apperrors.ErrNotFound
	// when the group does not exist.
	AuthorizeLeader(ctx context.Context, groupID string, requestingUserID string) (*domain.Group, error)
}

// GroupSvcFacade combines all group-related service interfaces.
type GroupSvcFacade interface {
	GroupReaderSvc
	GroupWriterSvc
	FineRuleSvc
	GroupAuthorizerSvc
}
