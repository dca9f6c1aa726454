package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahayog/shg_management_app/internal/core/ports/repositories"
)

// dbtx is the querying surface shared by *pgxpool.Pool and pgx.Tx. Every
// repository runs its queries through it, which lets the same repository
// code serve both pool-backed calls and the period close transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// closeTxRepository bundles transaction-bound repositories into the single
// surface the period close procedure runs against.
type closeTxRepository struct {
	*PgxPeriodRepository
	*PgxMemberRepository
	*PgxLoanRepository
	*PgxGroupRepository
}

var _ repositories.CloseTxRepository = (*closeTxRepository)(nil)

// WithCloseTx runs fn inside a single database transaction bounded by the
// given timeout. The transaction commits if fn returns nil and rolls back
// otherwise, including on timeout.
func (r *PgxPeriodRepository) WithCloseTx(ctx context.Context, timeout time.Duration, fn func(tx repositories.CloseTxRepository) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin close transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore rollback error
	}()

	bound := &closeTxRepository{
		PgxPeriodRepository: &PgxPeriodRepository{db: tx},
		PgxMemberRepository: &PgxMemberRepository{db: tx},
		PgxLoanRepository:   &PgxLoanRepository{db: tx},
		PgxGroupRepository:  &PgxGroupRepository{db: tx},
	}
	if err := fn(bound); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit close transaction: %w", err)
	}
	return nil
}

// NewRepositoryProvider wires all pgx-backed repositories from a pool.
func NewRepositoryProvider(pool *pgxpool.Pool) repositories.RepositoryProvider {
	return repositories.RepositoryProvider{
		UserRepo:   NewPgxUserRepository(pool),
		MemberRepo: NewPgxMemberRepository(pool),
		GroupRepo:  NewPgxGroupRepository(pool),
		PeriodRepo: NewPgxPeriodRepository(pool),
		LoanRepo:   NewPgxLoanRepository(pool),
	}
}
