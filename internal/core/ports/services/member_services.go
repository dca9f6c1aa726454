package services

import (
	"context"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/sahayog/shg_management_app/internal/dto"
)

// MemberReaderSvc defines read operations for member data.
type MemberReaderSvc interface {
	GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error)

	// GetMemberForUser resolves the member record linked to a login account.
	GetMemberForUser(ctx context.Context, userID string) (*domain.Member, error)

	// ListGroupMembers returns the roster of a group.
	ListGroupMembers(ctx context.Context, groupID string) ([]dto.GroupMemberResponse, error)
}

// MemberWriterSvc defines write operations for member data.
type MemberWriterSvc interface {
	CreateMember(ctx context.Context, req dto.CreateMemberRequest, creatorUserID string) (*domain.Member, error)

	// AddMemberToGroup creates a membership; leader-only.
	AddMemberToGroup(ctx context.Context, groupID string, req dto.AddGroupMemberRequest, requestingUserID string) (*domain.MemberGroupMembership, error)
}

// MemberSvcFacade combines all member-related service interfaces.
type MemberSvcFacade interface {
	MemberReaderSvc
	MemberWriterSvc
}
