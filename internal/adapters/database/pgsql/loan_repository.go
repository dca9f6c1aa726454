package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sahayog/shg_management_app/internal/apperrors"
	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/sahayog/shg_management_app/internal/core/ports/repositories"
)

type PgxLoanRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPgxLoanRepository creates a new repository for loan data.
func NewPgxLoanRepository(pool *pgxpool.Pool) repositories.LoanRepositoryFacade {
	return &PgxLoanRepository{db: pool, pool: pool}
}

const loanColumns = `loan_id, group_id, member_id, status, principal_amount, current_balance,
	interest_rate_percent, issued_date, created_at, created_by, last_updated_at, last_updated_by`

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan
	err := row.Scan(
		&l.LoanID,
		&l.GroupID,
		&l.MemberID,
		&l.Status,
		&l.PrincipalAmount,
		&l.CurrentBalance,
		&l.InterestRatePercent,
		&l.IssuedDate,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindLoanByID retrieves a loan by ID.
func (r *PgxLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1;`
	l, err := scanLoan(r.db.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find loan by ID %s: %w", loanID, err)
	}
	return l, nil
}

// ListLoansByGroup retrieves a group's loans, newest first.
func (r *PgxLoanRepository) ListLoansByGroup(ctx context.Context, groupID string) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE group_id = $1 ORDER BY issued_date DESC;`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans for group %s: %w", groupID, err)
	}
	defer rows.Close()

	loans := []domain.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row for group %s: %w", groupID, err)
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loan rows for group %s: %w", groupID, err)
	}
	return loans, nil
}

// SaveLoan inserts a loan and mirrors the principal onto the membership's
// loan bookkeeping within a DB transaction.
func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore rollback error
	}()

	insert := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, insert,
		loan.LoanID,
		loan.GroupID,
		loan.MemberID,
		loan.Status,
		loan.PrincipalAmount,
		loan.CurrentBalance,
		loan.InterestRatePercent,
		loan.IssuedDate,
		loan.CreatedAt,
		loan.CreatedBy,
		loan.LastUpdatedAt,
		loan.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan %s: %w", loan.LoanID, err)
	}

	mirror := `
		UPDATE member_group_memberships SET
			current_loan_amount = current_loan_amount + $3, last_updated_at = $4, last_updated_by = $5
		WHERE group_id = $1 AND member_id = $2;
	`
	if _, err := tx.Exec(ctx, mirror, loan.GroupID, loan.MemberID, loan.PrincipalAmount, loan.LastUpdatedAt, loan.LastUpdatedBy); err != nil {
		return fmt.Errorf("failed to mirror loan %s onto membership: %w", loan.LoanID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit loan %s: %w", loan.LoanID, err)
	}
	return nil
}

// ApplyRepayment reduces a loan's balance, closes it when fully repaid and
// mirrors the change onto the membership's loan bookkeeping.
func (r *PgxLoanRepository) ApplyRepayment(ctx context.Context, loanID string, amount decimal.Decimal, updatedBy string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore rollback error
	}()

	now := time.Now().UTC()

	var groupID, memberID string
	var balance decimal.Decimal
	lock := `SELECT group_id, member_id, current_balance FROM loans WHERE loan_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lock, loanID).Scan(&groupID, &memberID, &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to lock loan %s: %w", loanID, err)
	}

	newBalance := balance.Sub(amount)
	status := domain.LoanActive
	if newBalance.LessThanOrEqual(decimal.Zero) {
		newBalance = decimal.Zero
		status = domain.LoanClosed
	}

	update := `
		UPDATE loans SET current_balance = $2, status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE loan_id = $1;
	`
	if _, err := tx.Exec(ctx, update, loanID, newBalance, status, now, updatedBy); err != nil {
		return fmt.Errorf("failed to update loan %s: %w", loanID, err)
	}

	mirror := `
		UPDATE member_group_memberships SET
			current_loan_amount = GREATEST(current_loan_amount - $3, 0),
			last_updated_at = $4, last_updated_by = $5
		WHERE group_id = $1 AND member_id = $2;
	`
	if _, err := tx.Exec(ctx, mirror, groupID, memberID, amount, now, updatedBy); err != nil {
		return fmt.Errorf("failed to mirror repayment for loan %s: %w", loanID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit repayment for loan %s: %w", loanID, err)
	}
	return nil
}

// SumActiveLoanBalances sums current_balance over the group's active loans.
func (r *PgxLoanRepository) SumActiveLoanBalances(ctx context.Context, groupID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(current_balance), 0) FROM loans WHERE group_id = $1 AND status = 'ACTIVE';`
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum active loan balances for group %s: %w", groupID, err)
	}
	return sum, nil
}

// SumMembershipLoanAmounts sums current_loan_amount over the group's memberships.
func (r *PgxLoanRepository) SumMembershipLoanAmounts(ctx context.Context, groupID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(current_loan_amount), 0) FROM member_group_memberships WHERE group_id = $1 AND is_active;`
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum membership loan amounts for group %s: %w", groupID, err)
	}
	return sum, nil
}

// SumMemberLoanAmounts sums the legacy member-level loan balances over
// members holding any membership in the group.
func (r *PgxLoanRepository) SumMemberLoanAmounts(ctx context.Context, groupID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
		SELECT COALESCE(SUM(m.current_loan_amount), 0)
		FROM members m
		WHERE EXISTS (
			SELECT 1 FROM member_group_memberships g
			WHERE g.member_id = m.member_id AND g.group_id = $1
		);
	`
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum member loan amounts for group %s: %w", groupID, err)
	}
	return sum, nil
}
