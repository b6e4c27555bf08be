package record

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fichaje/internal/attendance/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/platform/tx"
)

// PostgresStore persists punch records in the records table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, type, user_id, membership_id, company_id, branch_id, at, corrective`

func scanRecord(row interface{ Scan(...any) error }) (models.Record, error) {
	var (
		r                       models.Record
		rID, uID, mID, cID, bID string
		kind                    string
	)
	if err := row.Scan(&rID, &kind, &uID, &mID, &cID, &bID, &r.At, &r.Corrective); err != nil {
		return models.Record{}, err
	}
	var err error
	if r.ID, err = id.ParseRecordID(rID); err != nil {
		return models.Record{}, err
	}
	if r.UserID, err = id.ParseUserID(uID); err != nil {
		return models.Record{}, err
	}
	if r.MembershipID, err = id.ParseMembershipID(mID); err != nil {
		return models.Record{}, err
	}
	if r.CompanyID, err = id.ParseCompanyID(cID); err != nil {
		return models.Record{}, err
	}
	if r.BranchID, err = id.ParseBranchID(bID); err != nil {
		return models.Record{}, err
	}
	r.Type = id.RecordType(kind)
	return r, nil
}

func (s *PostgresStore) Create(ctx context.Context, r models.Record) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID.String(), string(r.Type), r.UserID.String(), r.MembershipID.String(),
		r.CompanyID.String(), r.BranchID.String(), r.At, r.Corrective,
	)
	return err
}

// CreateAlternating inserts the punch only if it keeps the member's IN/OUT
// sequence alternating. A per-membership advisory lock serializes racing
// punches for the rest of the surrounding transaction, so the check and the
// insert behave as one atomic step.
func (s *PostgresStore) CreateAlternating(ctx context.Context, r models.Record) error {
	q := tx.Resolve(ctx, s.db)
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.MembershipID.String()); err != nil {
		return err
	}
	// A member with no punches counts as "out", so the first punch must
	// be an IN.
	var lastType string
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE((
			SELECT type FROM records
			WHERE membership_id = $1
			ORDER BY at DESC
			LIMIT 1
		), $2)`,
		r.MembershipID.String(), string(id.RecordOut),
	).Scan(&lastType)
	if err != nil {
		return err
	}
	if lastType == string(r.Type) {
		return sentinel.ErrConflict
	}
	return s.Create(ctx, r)
}

func (s *PostgresStore) Last(ctx context.Context, membershipID id.MembershipID) (models.Record, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE membership_id = $1
		ORDER BY at DESC
		LIMIT 1`,
		membershipID.String(),
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, sentinel.ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.RecordID) (models.Record, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM records WHERE id = $1`,
		recordID.String(),
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, sentinel.ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) AnyOfTypeSince(ctx context.Context, membershipID id.MembershipID, t id.RecordType, since time.Time) (bool, error) {
	q := tx.Resolve(ctx, s.db)
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM records
			WHERE membership_id = $1 AND type = $2 AND at >= $3
		)`,
		membershipID.String(), string(t), since,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) ListRecent(ctx context.Context, membershipID id.MembershipID, limit int) ([]models.Record, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE membership_id = $1
		ORDER BY at DESC
		LIMIT $2`,
		membershipID.String(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
