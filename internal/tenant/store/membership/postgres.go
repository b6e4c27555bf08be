package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/platform/tx"
)

// PostgresStore persists memberships in the memberships table. A partial
// unique index on (user_id, company_id, branch_id) WHERE active enforces the
// one-active-membership rule at the database level.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const membershipColumns = `id, user_id, company_id, branch_id, role, active, created_at`

func scanMembership(row interface{ Scan(...any) error }) (models.Membership, error) {
	var (
		m                           models.Membership
		mID, userID, companyID, bID string
		role                        string
	)
	if err := row.Scan(&mID, &userID, &companyID, &bID, &role, &m.Active, &m.CreatedAt); err != nil {
		return models.Membership{}, err
	}
	var err error
	if m.ID, err = id.ParseMembershipID(mID); err != nil {
		return models.Membership{}, err
	}
	if m.UserID, err = id.ParseUserID(userID); err != nil {
		return models.Membership{}, err
	}
	if m.CompanyID, err = id.ParseCompanyID(companyID); err != nil {
		return models.Membership{}, err
	}
	if m.BranchID, err = id.ParseBranchID(bID); err != nil {
		return models.Membership{}, err
	}
	m.Role = id.Role(role)
	return m, nil
}

func (s *PostgresStore) Create(ctx context.Context, m models.Membership) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID.String(), m.UserID.String(), m.CompanyID.String(), m.BranchID.String(),
		string(m.Role), m.Active, m.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, membershipID id.MembershipID) (models.Membership, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships WHERE id = $1`,
		membershipID.String(),
	)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, sentinel.ErrNotFound
	}
	return m, err
}

func (s *PostgresStore) FindActive(ctx context.Context, userID id.UserID, companyID id.CompanyID, branchID id.BranchID) (models.Membership, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships
		WHERE user_id = $1 AND company_id = $2 AND branch_id = $3 AND active`,
		userID.String(), companyID.String(), branchID.String(),
	)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, sentinel.ErrNotFound
	}
	return m, err
}

func (s *PostgresStore) FindActiveByUser(ctx context.Context, userID id.UserID, companyID id.CompanyID) (models.Membership, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships
		WHERE user_id = $1 AND company_id = $2 AND active
		ORDER BY created_at
		LIMIT 1`,
		userID.String(), companyID.String(),
	)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, sentinel.ErrNotFound
	}
	return m, err
}

func (s *PostgresStore) ListActiveByBranch(ctx context.Context, companyID id.CompanyID, branchID id.BranchID) ([]models.Membership, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships
		WHERE company_id = $1 AND branch_id = $2 AND active
		ORDER BY created_at`,
		companyID.String(), branchID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
