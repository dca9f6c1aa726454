package repositories

import (
	"context"
	"time"

	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PeriodReader defines read operations for periodic records.
type PeriodReader interface {
	FindPeriodByID(ctx context.Context, periodID string) (*domain.PeriodRecord, error)

	// ListPeriodsByGroup returns a group's periods ordered by sequence number descending.
	ListPeriodsByGroup(ctx context.Context, groupID string) ([]domain.PeriodRecord, error)

	// FindOpenPeriods returns the group's periods whose aggregates are
	// still unset (nil or zero collection), oldest first.
	FindOpenPeriods(ctx context.Context, groupID string) ([]domain.PeriodRecord, error)

	FindPeriodByGroupAndSequence(ctx context.Context, groupID string, sequenceNumber int) (*domain.PeriodRecord, error)

	// FindNewerSiblingPeriod returns a period of the same group, other than
	// excludePeriodID, with sequence >= minSequence created after the given
	// instant. Used as the concurrent-close guard.
	FindNewerSiblingPeriod(ctx context.Context, groupID string, minSequence int, createdAfter time.Time, excludePeriodID string) (*domain.PeriodRecord, error)
}

// PeriodWriter defines write operations for periodic records.
type PeriodWriter interface {
	SavePeriod(ctx context.Context, period domain.PeriodRecord) error

	// ClosePeriod writes the closing aggregates; this transition is what
	// marks a period record closed.
	ClosePeriod(ctx context.Context, closing domain.PeriodClosing) error

	// UpdateStartingBalances refreshes the carried-forward balances of a
	// still-open successor period.
	UpdateStartingBalances(ctx context.Context, periodID string, cashInHand, cashInBank, standing decimal.Decimal, updatedBy string, updatedAt time.Time) error

	// UpdateStartingStanding overwrites the recorded starting standing.
	// Only used by the sequence-1 bad-seed-data repair.
	UpdateStartingStanding(ctx context.Context, periodID string, standing decimal.Decimal) error
}

// ContributionReader defines read operations for member contribution rows.
type ContributionReader interface {
	FindContributionsByPeriod(ctx context.Context, periodID string) ([]domain.MemberContribution, error)

	CountContributionsByPeriod(ctx context.Context, periodID string) (int, error)
}

// ContributionWriter defines write operations for member contribution rows.
type ContributionWriter interface {
	// SaveContributions bulk-inserts contribution rows for a period.
	SaveContributions(ctx context.Context, contributions []domain.MemberContribution) error

	// ApplyContributionCorrections persists recalculated late fine figures.
	ApplyContributionCorrections(ctx context.Context, corrections []domain.ContributionCorrection) error

	// UpdateContributionPayment persists a member's recorded payment.
	UpdateContributionPayment(ctx context.Context, contribution domain.MemberContribution) error
}

// PeriodRepositoryFacade combines all period-related repository interfaces.
type PeriodRepositoryFacade interface {
	PeriodReader
	PeriodWriter
	ContributionReader
	ContributionWriter
}

// PeriodRepositoryWithTx extends PeriodRepositoryFacade with the bounded
// transaction runner the period closing procedure needs.
type PeriodRepositoryWithTx interface {
	PeriodRepositoryFacade
	CloseTxRunner
}
