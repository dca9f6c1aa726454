package repositories

import (
	"context"

	"github.com/sahayog/shg_management_app/internal/core/domain"
)

// MemberReader defines read operations for member data.
type MemberReader interface {
	FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error)

	// FindMemberByUserID resolves the member record linked to a login
	// account. Returns apperrors.ErrNotFound when the user has no member.
	FindMemberByUserID(ctx context.Context, userID string) (*domain.Member, error)
}

// MemberWriter defines write operations for member data.
type MemberWriter interface {
	SaveMember(ctx context.Context, member domain.Member) error

	SaveMembership(ctx context.Context, membership domain.MemberGroupMembership) error
}

// MembershipReader defines read operations for group memberships.
type MembershipReader interface {
	// ListMembershipsByGroup returns the group's active memberships.
	ListMembershipsByGroup(ctx context.Context, groupID string) ([]domain.MemberGroupMembership, error)
}

// MemberRepositoryFacade combines all member-related repository interfaces.
type MemberRepositoryFacade interface {
	MemberReader
	MemberWriter
	MembershipReader
}
