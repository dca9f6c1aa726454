package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahayog/shg_management_app/internal/apperrors"
	"github.com/sahayog/shg_management_app/internal/core/domain"
	"github.com/sahayog/shg_management_app/internal/core/ports/repositories"
)

type PgxMemberRepository struct {
	db dbtx
}

// NewPgxMemberRepository creates a new repository for member and membership data.
func NewPgxMemberRepository(pool *pgxpool.Pool) repositories.MemberRepositoryFacade {
	return &PgxMemberRepository{db: pool}
}

const memberColumns = `member_id, user_id, name, phone, current_loan_amount,
	created_at, created_by, last_updated_at, last_updated_by`

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.MemberID,
		&m.UserID,
		&m.Name,
		&m.Phone,
		&m.CurrentLoanAmount,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindMemberByID retrieves a member by ID.
func (r *PgxMemberRepository) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE member_id = $1;`
	m, err := scanMember(r.db.QueryRow(ctx, query, memberID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find member by ID %s: %w", memberID, err)
	}
	return m, nil
}

// FindMemberByUserID resolves the member record linked to a login account.
func (r *PgxMemberRepository) FindMemberByUserID(ctx context.Context, userID string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE user_id = $1;`
	m, err := scanMember(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find member for user %s: %w", userID, err)
	}
	return m, nil
}

// SaveMember inserts a member.
func (r *PgxMemberRepository) SaveMember(ctx context.Context, member domain.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.db.Exec(ctx, query,
		member.MemberID,
		member.UserID,
		member.Name,
		member.Phone,
		member.CurrentLoanAmount,
		member.CreatedAt,
		member.CreatedBy,
		member.LastUpdatedAt,
		member.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member %s: %w", member.MemberID, err)
	}
	return nil
}

// SaveMembership inserts a group membership.
func (r *PgxMemberRepository) SaveMembership(ctx context.Context, membership domain.MemberGroupMembership) error {
	query := `
		INSERT INTO member_group_memberships (membership_id, group_id, member_id, current_loan_amount, share_amount, is_active,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.db.Exec(ctx, query,
		membership.MembershipID,
		membership.GroupID,
		membership.MemberID,
		membership.CurrentLoanAmount,
		membership.ShareAmount,
		membership.IsActive,
		membership.CreatedAt,
		membership.CreatedBy,
		membership.LastUpdatedAt,
		membership.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert membership %s: %w", membership.MembershipID, err)
	}
	return nil
}

// ListMembershipsByGroup returns the group's active memberships.
func (r *PgxMemberRepository) ListMembershipsByGroup(ctx context.Context, groupID string) ([]domain.MemberGroupMembership, error) {
	query := `
		SELECT membership_id, group_id, member_id, current_loan_amount, share_amount, is_active,
			created_at, created_by, last_updated_at, last_updated_by
		FROM member_group_memberships
		WHERE group_id = $1 AND is_active
		ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships for group %s: %w", groupID, err)
	}
	defer rows.Close()

	memberships := []domain.MemberGroupMembership{}
	for rows.Next() {
		var m domain.MemberGroupMembership
		if err := rows.Scan(
			&m.MembershipID,
			&m.GroupID,
			&m.MemberID,
			&m.CurrentLoanAmount,
			&m.ShareAmount,
			&m.IsActive,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan membership row for group %s: %w", groupID, err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership rows for group %s: %w", groupID, err)
	}
	return memberships, nil
}
