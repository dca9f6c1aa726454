package repositories

import (
	"context"
	"time"
)

// CloseTxRepository bundles every operation the period closing procedure
// performs inside its main database transaction: period and contribution
// reads/writes, membership and loan balance reads, and the group cash
// balance update. A single transaction-bound implementation keeps the
// close atomic without the service touching pgx directly.
type CloseTxRepository interface {
	PeriodReader
	PeriodWriter
	ContributionReader
	ContributionWriter
	MembershipReader
	LoanBalanceReader
	GroupBalanceWriter
}

// CloseTxRunner runs a function within a single database transaction
// bounded by the given timeout. The transaction commits if fn returns nil
// and rolls back otherwise.
type CloseTxRunner interface {
	WithCloseTx(ctx context.Context, timeout time.Duration, fn func(tx CloseTxRepository) error) error
}
