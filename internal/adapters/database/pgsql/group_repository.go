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

type PgxGroupRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPgxGroupRepository creates a new repository for group and fine rule data.
func NewPgxGroupRepository(pool *pgxpool.Pool) repositories.GroupRepositoryFacade {
	return &PgxGroupRepository{db: pool, pool: pool}
}

const groupColumns = `group_id, name, description, leader_member_id, frequency,
	collection_day_of_month, collection_day_of_week, collection_week_of_month,
	monthly_contribution, interest_rate_percent, cash_in_hand, cash_in_bank,
	loan_insurance_enabled, group_social_enabled,
	created_at, created_by, last_updated_at, last_updated_by`

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	err := row.Scan(
		&g.GroupID,
		&g.Name,
		&g.Description,
		&g.LeaderMemberID,
		&g.Frequency,
		&g.CollectionDayOfMonth,
		&g.CollectionDayOfWeek,
		&g.CollectionWeekOfMonth,
		&g.MonthlyContribution,
		&g.InterestRatePercent,
		&g.CashInHand,
		&g.CashInBank,
		&g.LoanInsuranceEnabled,
		&g.GroupSocialEnabled,
		&g.CreatedAt,
		&g.CreatedBy,
		&g.LastUpdatedAt,
		&g.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindGroupByID retrieves a group by its ID.
func (r *PgxGroupRepository) FindGroupByID(ctx context.Context, groupID string) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE group_id = $1;`
	group, err := scanGroup(r.db.QueryRow(ctx, query, groupID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find group by ID %s: %w", groupID, err)
	}
	return group, nil
}

// ListGroups retrieves the groups the given member belongs to.
func (r *PgxGroupRepository) ListGroups(ctx context.Context, memberID string) ([]domain.Group, error) {
	query := `
		SELECT g.group_id, g.name, g.description, g.leader_member_id, g.frequency,
			g.collection_day_of_month, g.collection_day_of_week, g.collection_week_of_month,
			g.monthly_contribution, g.interest_rate_percent, g.cash_in_hand, g.cash_in_bank,
			g.loan_insurance_enabled, g.group_social_enabled,
			g.created_at, g.created_by, g.last_updated_at, g.last_updated_by
		FROM groups g
		JOIN member_group_memberships m ON m.group_id = g.group_id
		WHERE m.member_id = $1 AND m.is_active
		ORDER BY g.created_at;
	`
	rows, err := r.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for member %s: %w", memberID, err)
	}
	defer rows.Close()

	groups := []domain.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group rows: %w", err)
	}
	return groups, nil
}

// SaveGroup inserts a group.
func (r *PgxGroupRepository) SaveGroup(ctx context.Context, group domain.Group) error {
	query := `
		INSERT INTO groups (` + groupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err := r.db.Exec(ctx, query,
		group.GroupID,
		group.Name,
		group.Description,
		group.LeaderMemberID,
		group.Frequency,
		group.CollectionDayOfMonth,
		group.CollectionDayOfWeek,
		group.CollectionWeekOfMonth,
		group.MonthlyContribution,
		group.InterestRatePercent,
		group.CashInHand,
		group.CashInBank,
		group.LoanInsuranceEnabled,
		group.GroupSocialEnabled,
		group.CreatedAt,
		group.CreatedBy,
		group.LastUpdatedAt,
		group.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group %s: %w", group.GroupID, err)
	}
	return nil
}

// UpdateGroup updates all mutable columns of a group.
func (r *PgxGroupRepository) UpdateGroup(ctx context.Context, group domain.Group) error {
	query := `
		UPDATE groups SET
			name = $2, description = $3, leader_member_id = $4, frequency = $5,
			collection_day_of_month = $6, collection_day_of_week = $7, collection_week_of_month = $8,
			monthly_contribution = $9, interest_rate_percent = $10,
			loan_insurance_enabled = $11, group_social_enabled = $12,
			last_updated_at = $13, last_updated_by = $14
		WHERE group_id = $1;
	`
	tag, err := r.db.Exec(ctx, query,
		group.GroupID,
		group.Name,
		group.Description,
		group.LeaderMemberID,
		group.Frequency,
		group.CollectionDayOfMonth,
		group.CollectionDayOfWeek,
		group.CollectionWeekOfMonth,
		group.MonthlyContribution,
		group.InterestRatePercent,
		group.LoanInsuranceEnabled,
		group.GroupSocialEnabled,
		group.LastUpdatedAt,
		group.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update group %s: %w", group.GroupID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group; dependent rows cascade at the database level.
func (r *PgxGroupRepository) DeleteGroup(ctx context.Context, groupID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM groups WHERE group_id = $1;`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group %s: %w", groupID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateGroupBalances updates only the group's cash balances.
func (r *PgxGroupRepository) UpdateGroupBalances(ctx context.Context, groupID string, cashInHand, cashInBank decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE groups SET cash_in_hand = $2, cash_in_bank = $3, last_updated_at = $4, last_updated_by = $5
		WHERE group_id = $1;
	`
	tag, err := r.db.Exec(ctx, query, groupID, cashInHand, cashInBank, updatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update balances for group %s: %w", groupID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

const fineRuleColumns = `rule_id, group_id, rule_type, enabled, daily_amount, daily_percentage,
	created_at, created_by, last_updated_at, last_updated_by`

// FindEnabledFineRule returns the group's enabled fine rule with its tiers.
func (r *PgxGroupRepository) FindEnabledFineRule(ctx context.Context, groupID string) (*domain.LateFineRule, error) {
	query := `SELECT ` + fineRuleColumns + ` FROM late_fine_rules WHERE group_id = $1 AND enabled LIMIT 1;`
	var rule domain.LateFineRule
	err := r.db.QueryRow(ctx, query, groupID).Scan(
		&rule.RuleID,
		&rule.GroupID,
		&rule.RuleType,
		&rule.Enabled,
		&rule.DailyAmount,
		&rule.DailyPercentage,
		&rule.CreatedAt,
		&rule.CreatedBy,
		&rule.LastUpdatedAt,
		&rule.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find enabled fine rule for group %s: %w", groupID, err)
	}

	tiers, err := r.findTiers(ctx, rule.RuleID)
	if err != nil {
		return nil, err
	}
	rule.Tiers = tiers
	return &rule, nil
}

// ListFineRules returns all fine rules of a group with their tiers.
func (r *PgxGroupRepository) ListFineRules(ctx context.Context, groupID string) ([]domain.LateFineRule, error) {
	query := `SELECT ` + fineRuleColumns + ` FROM late_fine_rules WHERE group_id = $1 ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fine rules for group %s: %w", groupID, err)
	}
	defer rows.Close()

	rules := []domain.LateFineRule{}
	for rows.Next() {
		var rule domain.LateFineRule
		if err := rows.Scan(
			&rule.RuleID,
			&rule.GroupID,
			&rule.RuleType,
			&rule.Enabled,
			&rule.DailyAmount,
			&rule.DailyPercentage,
			&rule.CreatedAt,
			&rule.CreatedBy,
			&rule.LastUpdatedAt,
			&rule.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fine rule row: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fine rule rows: %w", err)
	}

	for i := range rules {
		tiers, err := r.findTiers(ctx, rules[i].RuleID)
		if err != nil {
			return nil, err
		}
		rules[i].Tiers = tiers
	}
	return rules, nil
}

func (r *PgxGroupRepository) findTiers(ctx context.Context, ruleID string) ([]domain.LateFineRuleTier, error) {
	query := `
		SELECT tier_id, rule_id, start_day, end_day, amount, is_percentage, position
		FROM late_fine_rule_tiers
		WHERE rule_id = $1
		ORDER BY position;
	`
	rows, err := r.db.Query(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiers for rule %s: %w", ruleID, err)
	}
	defer rows.Close()

	var tiers []domain.LateFineRuleTier
	for rows.Next() {
		var t domain.LateFineRuleTier
		if err := rows.Scan(&t.TierID, &t.RuleID, &t.StartDay, &t.EndDay, &t.Amount, &t.IsPercentage, &t.Position); err != nil {
			return nil, fmt.Errorf("failed to scan tier row: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tier rows: %w", err)
	}
	return tiers, nil
}

// ReplaceFineRule saves a rule with its tiers, disabling any previously
// enabled rule for the group in the same transaction.
func (r *PgxGroupRepository) ReplaceFineRule(ctx context.Context, rule domain.LateFineRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore rollback error
	}()

	if rule.Enabled {
		disable := `UPDATE late_fine_rules SET enabled = FALSE, last_updated_at = $2, last_updated_by = $3 WHERE group_id = $1 AND enabled;`
		if _, err := tx.Exec(ctx, disable, rule.GroupID, rule.LastUpdatedAt, rule.LastUpdatedBy); err != nil {
			return fmt.Errorf("failed to disable existing fine rules for group %s: %w", rule.GroupID, err)
		}
	}

	insertRule := `
		INSERT INTO late_fine_rules (` + fineRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err = tx.Exec(ctx, insertRule,
		rule.RuleID,
		rule.GroupID,
		rule.RuleType,
		rule.Enabled,
		rule.DailyAmount,
		rule.DailyPercentage,
		rule.CreatedAt,
		rule.CreatedBy,
		rule.LastUpdatedAt,
		rule.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fine rule %s: %w", rule.RuleID, err)
	}

	batch := &pgx.Batch{}
	insertTier := `
		INSERT INTO late_fine_rule_tiers (tier_id, rule_id, start_day, end_day, amount, is_percentage, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	for _, t := range rule.Tiers {
		batch.Queue(insertTier, t.TierID, t.RuleID, t.StartDay, t.EndDay, t.Amount, t.IsPercentage, t.Position)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to insert tiers for rule %s: %w", rule.RuleID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit fine rule replacement for group %s: %w", rule.GroupID, err)
	}
	return nil
}
