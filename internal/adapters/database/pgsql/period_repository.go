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

type PgxPeriodRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPgxPeriodRepository creates a new repository for periodic records and
// member contributions.
func NewPgxPeriodRepository(pool *pgxpool.Pool) repositories.PeriodRepositoryWithTx {
	return &PgxPeriodRepository{db: pool, pool: pool}
}

const periodColumns = `period_id, group_id, sequence_number, meeting_date,
	total_collection, total_loan_interest, total_late_fine, new_contribution,
	cash_in_hand_at_end, cash_in_bank_at_end, group_standing_at_end,
	starting_standing, starting_cash_in_hand, starting_cash_in_bank, members_present_count,
	created_at, created_by, last_updated_at, last_updated_by`

func scanPeriod(row pgx.Row) (*domain.PeriodRecord, error) {
	var p domain.PeriodRecord
	err := row.Scan(
		&p.PeriodID,
		&p.GroupID,
		&p.SequenceNumber,
		&p.MeetingDate,
		&p.TotalCollection,
		&p.TotalLoanInterest,
		&p.TotalLateFine,
		&p.NewContribution,
		&p.CashInHandAtEnd,
		&p.CashInBankAtEnd,
		&p.GroupStandingAtEnd,
		&p.StartingStanding,
		&p.StartingCashInHand,
		&p.StartingCashInBank,
		&p.MembersPresentCount,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgxPeriodRepository) queryPeriods(ctx context.Context, query string, args ...any) ([]domain.PeriodRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	periods := []domain.PeriodRecord{}
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period row: %w", err)
		}
		periods = append(periods, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating period rows: %w", err)
	}
	return periods, nil
}

// FindPeriodByID retrieves a periodic record by its ID.
func (r *PgxPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.PeriodRecord, error) {
	query := `SELECT ` + periodColumns + ` FROM group_periodic_records WHERE period_id = $1;`
	p, err := scanPeriod(r.db.QueryRow(ctx, query, periodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find period by ID %s: %w", periodID, err)
	}
	return p, nil
}

// ListPeriodsByGroup returns a group's periods ordered by sequence descending.
func (r *PgxPeriodRepository) ListPeriodsByGroup(ctx context.Context, groupID string) ([]domain.PeriodRecord, error) {
	query := `SELECT ` + periodColumns + ` FROM group_periodic_records WHERE group_id = $1 ORDER BY sequence_number DESC;`
	return r.queryPeriods(ctx, query, groupID)
}

// FindOpenPeriods returns the group's open periods, oldest first. Open means
// the closing aggregates have not been written: total_collection is null or
// not positive.
func (r *PgxPeriodRepository) FindOpenPeriods(ctx context.Context, groupID string) ([]domain.PeriodRecord, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM group_periodic_records
		WHERE group_id = $1 AND (total_collection IS NULL OR total_collection <= 0)
		ORDER BY sequence_number;
	`
	return r.queryPeriods(ctx, query, groupID)
}

// FindPeriodByGroupAndSequence retrieves the period with the given sequence
// number within a group.
func (r *PgxPeriodRepository) FindPeriodByGroupAndSequence(ctx context.Context, groupID string, sequenceNumber int) (*domain.PeriodRecord, error) {
	query := `SELECT ` + periodColumns + ` FROM group_periodic_records WHERE group_id = $1 AND sequence_number = $2;`
	p, err := scanPeriod(r.db.QueryRow(ctx, query, groupID, sequenceNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find period %d for group %s: %w", sequenceNumber, groupID, err)
	}
	return p, nil
}

// FindNewerSiblingPeriod returns a period of the same group, other than
// excludePeriodID, with sequence >= minSequence created after the given
// instant.
func (r *PgxPeriodRepository) FindNewerSiblingPeriod(ctx context.Context, groupID string, minSequence int, createdAfter time.Time, excludePeriodID string) (*domain.PeriodRecord, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM group_periodic_records
		WHERE group_id = $1 AND sequence_number >= $2 AND created_at > $3 AND period_id <> $4
		ORDER BY created_at DESC
		LIMIT 1;
	`
	p, err := scanPeriod(r.db.QueryRow(ctx, query, groupID, minSequence, createdAfter, excludePeriodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sibling period for group %s: %w", groupID, err)
	}
	return p, nil
}

// SavePeriod inserts a periodic record.
func (r *PgxPeriodRepository) SavePeriod(ctx context.Context, period domain.PeriodRecord) error {
	query := `
		INSERT INTO group_periodic_records (` + periodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err := r.db.Exec(ctx, query,
		period.PeriodID,
		period.GroupID,
		period.SequenceNumber,
		period.MeetingDate,
		period.TotalCollection,
		period.TotalLoanInterest,
		period.TotalLateFine,
		period.NewContribution,
		period.CashInHandAtEnd,
		period.CashInBankAtEnd,
		period.GroupStandingAtEnd,
		period.StartingStanding,
		period.StartingCashInHand,
		period.StartingCashInBank,
		period.MembersPresentCount,
		period.CreatedAt,
		period.CreatedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert period %s: %w", period.PeriodID, err)
	}
	return nil
}

// ClosePeriod writes the closing aggregates onto a period record.
func (r *PgxPeriodRepository) ClosePeriod(ctx context.Context, closing domain.PeriodClosing) error {
	query := `
		UPDATE group_periodic_records SET
			total_collection = $2, total_loan_interest = $3, total_late_fine = $4, new_contribution = $5,
			cash_in_hand_at_end = $6, cash_in_bank_at_end = $7, group_standing_at_end = $8,
			members_present_count = $9, last_updated_at = $10, last_updated_by = $11
		WHERE period_id = $1;
	`
	tag, err := r.db.Exec(ctx, query,
		closing.PeriodID,
		closing.TotalCollection,
		closing.TotalLoanInterest,
		closing.TotalLateFine,
		closing.NewContribution,
		closing.CashInHandAtEnd,
		closing.CashInBankAtEnd,
		closing.GroupStandingAtEnd,
		closing.MembersPresentCount,
		closing.UpdatedAt,
		closing.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to close period %s: %w", closing.PeriodID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateStartingBalances refreshes the carried-forward balances of a
// still-open successor period.
func (r *PgxPeriodRepository) UpdateStartingBalances(ctx context.Context, periodID string, cashInHand, cashInBank, standing decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE group_periodic_records SET
			starting_cash_in_hand = $2, starting_cash_in_bank = $3, starting_standing = $4,
			last_updated_at = $5, last_updated_by = $6
		WHERE period_id = $1;
	`
	tag, err := r.db.Exec(ctx, query, periodID, cashInHand, cashInBank, standing, updatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update starting balances for period %s: %w", periodID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateStartingStanding overwrites the recorded starting standing.
func (r *PgxPeriodRepository) UpdateStartingStanding(ctx context.Context, periodID string, standing decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE group_periodic_records SET starting_standing = $2 WHERE period_id = $1;`, periodID, standing)
	if err != nil {
		return fmt.Errorf("failed to update starting standing for period %s: %w", periodID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

const contributionColumns = `contribution_id, period_id, member_id,
	due_contribution, due_loan_interest, due_loan_insurance, due_group_social,
	paid_contribution, paid_loan_interest, total_paid,
	late_fine_amount, days_late, remaining_balance, status, due_date, cash_allocation,
	created_at, created_by, last_updated_at, last_updated_by`

// FindContributionsByPeriod retrieves the contribution rows of a period.
func (r *PgxPeriodRepository) FindContributionsByPeriod(ctx context.Context, periodID string) ([]domain.MemberContribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM member_contributions WHERE period_id = $1 ORDER BY created_at;`
	rows, err := r.db.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions for period %s: %w", periodID, err)
	}
	defer rows.Close()

	contributions := []domain.MemberContribution{}
	for rows.Next() {
		var c domain.MemberContribution
		if err := rows.Scan(
			&c.ContributionID,
			&c.PeriodID,
			&c.MemberID,
			&c.DueContribution,
			&c.DueLoanInterest,
			&c.DueLoanInsurance,
			&c.DueGroupSocial,
			&c.PaidContribution,
			&c.PaidLoanInterest,
			&c.TotalPaid,
			&c.LateFineAmount,
			&c.DaysLate,
			&c.RemainingBalance,
			&c.Status,
			&c.DueDate,
			&c.CashAllocation,
			&c.CreatedAt,
			&c.CreatedBy,
			&c.LastUpdatedAt,
			&c.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contribution row for period %s: %w", periodID, err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contribution rows for period %s: %w", periodID, err)
	}
	return contributions, nil
}

// CountContributionsByPeriod counts the contribution rows of a period.
func (r *PgxPeriodRepository) CountContributionsByPeriod(ctx context.Context, periodID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM member_contributions WHERE period_id = $1;`, periodID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contributions for period %s: %w", periodID, err)
	}
	return count, nil
}

// SaveContributions bulk-inserts contribution rows using pgx batching.
func (r *PgxPeriodRepository) SaveContributions(ctx context.Context, contributions []domain.MemberContribution) error {
	if len(contributions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO member_contributions (` + contributionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	for _, c := range contributions {
		batch.Queue(query,
			c.ContributionID,
			c.PeriodID,
			c.MemberID,
			c.DueContribution,
			c.DueLoanInterest,
			c.DueLoanInsurance,
			c.DueGroupSocial,
			c.PaidContribution,
			c.PaidLoanInterest,
			c.TotalPaid,
			c.LateFineAmount,
			c.DaysLate,
			c.RemainingBalance,
			c.Status,
			c.DueDate,
			c.CashAllocation,
			c.CreatedAt,
			c.CreatedBy,
			c.LastUpdatedAt,
			c.LastUpdatedBy,
		)
	}
	br := r.db.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to execute contribution insert batch: %w", err)
	}
	return nil
}

// ApplyContributionCorrections persists recalculated late fine figures.
func (r *PgxPeriodRepository) ApplyContributionCorrections(ctx context.Context, corrections []domain.ContributionCorrection) error {
	if len(corrections) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		UPDATE member_contributions SET
			late_fine_amount = $2, days_late = $3, last_updated_at = $4, last_updated_by = $5
		WHERE contribution_id = $1;
	`
	for _, c := range corrections {
		batch.Queue(query, c.ContributionID, c.LateFineAmount, c.DaysLate, c.UpdatedAt, c.UpdatedBy)
	}
	br := r.db.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to execute correction batch: %w", err)
	}
	return nil
}

// UpdateContributionPayment persists a member's recorded payment.
func (r *PgxPeriodRepository) UpdateContributionPayment(ctx context.Context, contribution domain.MemberContribution) error {
	query := `
		UPDATE member_contributions SET
			paid_contribution = $2, paid_loan_interest = $3, total_paid = $4,
			remaining_balance = $5, status = $6, cash_allocation = $7,
			last_updated_at = $8, last_updated_by = $9
		WHERE contribution_id = $1;
	`
	tag, err := r.db.Exec(ctx, query,
		contribution.ContributionID,
		contribution.PaidContribution,
		contribution.PaidLoanInterest,
		contribution.TotalPaid,
		contribution.RemainingBalance,
		contribution.Status,
		contribution.CashAllocation,
		contribution.LastUpdatedAt,
		contribution.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment on contribution %s: %w", contribution.ContributionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
