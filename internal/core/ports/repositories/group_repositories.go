package repositories

import (
	"context"
	"time"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// GroupReader defines read operations for group data.
type GroupReader interface {
	// FindGroupByID retrieves a group by its unique identifier.
	FindGroupByID(ctx context.Context, groupID string) (*domain.Group, error)

	// ListGroups retrieves groups the given member belongs to.
	ListGroups(ctx context.Context, memberID string) ([]domain.Group, error)
}

// GroupWriter defines write operations for group data.
type GroupWriter interface {
	SaveGroup(ctx context.Context, group domain.Group) error

	UpdateGroup(ctx context.Context, group domain.Group) error

	// DeleteGroup removes a group; periods, contributions, memberships,
	// fine rules and loans cascade at the database level.
	DeleteGroup(ctx context.Context, groupID string) error
}

// GroupBalanceWriter updates a group's persisted cash balances. Separated
// out because the period close transaction needs exactly this and nothing
// else from the group aggregate.
type GroupBalanceWriter interface {
	UpdateGroupBalances(ctx context.Context, groupID string, cashInHand, cashInBank decimal.Decimal, updatedBy string, updatedAt time.Time) error
}

// FineRuleReader defines read operations for late fine rules.
type FineRuleReader interface {
	// FindEnabledFineRule returns the group's enabled rule with its tiers,
	// or apperrors.ErrNotFound when none is enabled.
	FindEnabledFineRule(ctx context.Context, groupID string) (*domain.LateFineRule, error)

	ListFineRules(ctx context.Context, groupID string) ([]domain.LateFineRule, error)
}

// FineRuleWriter defines write operations for late fine rules.
type FineRuleWriter interface {
	// ReplaceFineRule saves a rule and its tiers, disabling any previously
	// enabled rule for the group in the same transaction.
	ReplaceFineRule(ctx context.Context, rule domain.LateFineRule) error
}

// GroupRepositoryFacade combines all group-related repository interfaces.
type GroupRepositoryFacade interface {
	GroupReader
	GroupWriter
	GroupBalanceWriter
	FineRuleReader
	FineRuleWriter
}
