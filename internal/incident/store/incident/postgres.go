package incident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"fichaje/internal/incident/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/platform/tx"
)

// PostgresStore persists incidents in the incidents table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const incidentColumns = `id, type, origin, state, admitted, user_id, membership_id, company_id, branch_id, expected_at, occurred_at, record_id, note, created_at`

func scanIncident(row interface{ Scan(...any) error }) (models.Incident, error) {
	var (
		inc              models.Incident
		iID, uID, mID    string
		cID, bID         string
		kind, origin, st string
		recordID         sql.NullString
	)
	if err := row.Scan(&iID, &kind, &origin, &st, &inc.Admitted, &uID, &mID, &cID, &bID,
		&inc.ExpectedAt, &inc.OccurredAt, &recordID, &inc.Note, &inc.CreatedAt); err != nil {
		return models.Incident{}, err
	}
	var err error
	if inc.ID, err = id.ParseIncidentID(iID); err != nil {
		return models.Incident{}, err
	}
	if inc.UserID, err = id.ParseUserID(uID); err != nil {
		return models.Incident{}, err
	}
	if inc.MembershipID, err = id.ParseMembershipID(mID); err != nil {
		return models.Incident{}, err
	}
	if inc.CompanyID, err = id.ParseCompanyID(cID); err != nil {
		return models.Incident{}, err
	}
	if inc.BranchID, err = id.ParseBranchID(bID); err != nil {
		return models.Incident{}, err
	}
	inc.Type = models.Type(kind)
	inc.Origin = models.Origin(origin)
	inc.State = models.State(st)
	if recordID.Valid {
		rID, err := id.ParseRecordID(recordID.String)
		if err != nil {
			return models.Incident{}, err
		}
		inc.RecordID = &rID
	}
	return inc, nil
}

func incidentArgs(inc models.Incident) []any {
	var recordID any
	if inc.RecordID != nil {
		recordID = inc.RecordID.String()
	}
	return []any{
		inc.ID.String(), string(inc.Type), string(inc.Origin), string(inc.State), inc.Admitted,
		inc.UserID.String(), inc.MembershipID.String(), inc.CompanyID.String(), inc.BranchID.String(),
		inc.ExpectedAt, inc.OccurredAt, recordID, inc.Note, inc.CreatedAt,
	}
}

func (s *PostgresStore) Create(ctx context.Context, inc models.Incident) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO incidents (`+incidentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		incidentArgs(inc)...,
	)
	return err
}

// CreateIfAbsent inserts the incident unless the member already has one of
// the guard types with expected_at at or after since. The single
// INSERT ... WHERE NOT EXISTS keeps the dedup check and the insert atomic, so
// two overlapping sweep runs produce at most one row.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, inc models.Incident, guard []models.Type, since time.Time) (bool, error) {
	q := tx.Resolve(ctx, s.db)
	guardNames := make([]string, len(guard))
	for i, t := range guard {
		guardNames[i] = string(t)
	}
	args := incidentArgs(inc)
	args = append(args, pq.Array(guardNames), since)
	res, err := q.ExecContext(ctx, `
		INSERT INTO incidents (`+incidentColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		WHERE NOT EXISTS (
			SELECT 1 FROM incidents
			WHERE membership_id = $7 AND type = ANY($15) AND expected_at >= $16
		)`,
		args...,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, incidentID id.IncidentID) (models.Incident, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+incidentColumns+` FROM incidents WHERE id = $1`,
		incidentID.String(),
	)
	inc, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Incident{}, sentinel.ErrNotFound
	}
	return inc, err
}

// List returns matching incidents newest first.
func (s *PostgresStore) List(ctx context.Context, f models.Filter) ([]models.Incident, error) {
	q := tx.Resolve(ctx, s.db)
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !f.CompanyID.IsNil() {
		add("company_id = $%d", f.CompanyID.String())
	}
	if !f.BranchID.IsNil() {
		add("branch_id = $%d", f.BranchID.String())
	}
	if !f.UserID.IsNil() {
		add("user_id = $%d", f.UserID.String())
	}
	if !f.MembershipID.IsNil() {
		add("membership_id = $%d", f.MembershipID.String())
	}
	if len(f.Types) > 0 {
		names := make([]string, len(f.Types))
		for i, t := range f.Types {
			names[i] = string(t)
		}
		add("type = ANY($%d)", pq.Array(names))
	}
	if !f.From.IsZero() {
		add("occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at <= $%d", f.To)
	}
	if f.PendingOnly {
		conds = append(conds, "state = 'PENDING'")
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY occurred_at DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIncidents(rows)
}

func (s *PostgresStore) ListPendingOlderThan(ctx context.Context, t models.Type, cutoff time.Time) ([]models.Incident, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+incidentColumns+` FROM incidents
		WHERE type = $1 AND state = 'PENDING' AND expected_at <= $2
		ORDER BY occurred_at`,
		string(t), cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIncidents(rows)
}

func (s *PostgresStore) DeletePendingSince(ctx context.Context, membershipID id.MembershipID, t models.Type, since time.Time) (int, error) {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		DELETE FROM incidents
		WHERE membership_id = $1 AND type = $2 AND state = 'PENDING' AND expected_at >= $3`,
		membershipID.String(), string(t), since,
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *PostgresStore) Update(ctx context.Context, inc models.Incident) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE incidents
		SET state = $1, admitted = $2, note = $3
		WHERE id = $4`,
		string(inc.State), inc.Admitted, inc.Note, inc.ID.String(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, incidentID id.IncidentID) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM incidents WHERE id = $1`, incidentID.String())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func collectIncidents(rows *sql.Rows) ([]models.Incident, error) {
	var out []models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
