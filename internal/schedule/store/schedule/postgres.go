package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/platform/tx"
)

// PostgresStore persists schedules in the schedules table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const scheduleColumns = `id, membership_id, company_id, branch_id, status, valid_from, valid_to, created_at`

func scanSchedule(row interface{ Scan(...any) error }) (models.Schedule, error) {
	var (
		sch                models.Schedule
		sID, mID, cID, bID string
		status             string
		validTo            sql.NullTime
	)
	if err := row.Scan(&sID, &mID, &cID, &bID, &status, &sch.ValidFrom, &validTo, &sch.CreatedAt); err != nil {
		return models.Schedule{}, err
	}
	var err error
	if sch.ID, err = id.ParseScheduleID(sID); err != nil {
		return models.Schedule{}, err
	}
	if sch.MembershipID, err = id.ParseMembershipID(mID); err != nil {
		return models.Schedule{}, err
	}
	if sch.CompanyID, err = id.ParseCompanyID(cID); err != nil {
		return models.Schedule{}, err
	}
	if sch.BranchID, err = id.ParseBranchID(bID); err != nil {
		return models.Schedule{}, err
	}
	sch.Status = models.ScheduleStatus(status)
	if validTo.Valid {
		t := validTo.Time
		sch.ValidTo = &t
	}
	return sch, nil
}

func (s *PostgresStore) Create(ctx context.Context, sch models.Schedule) error {
	q := tx.Resolve(ctx, s.db)
	var validTo any
	if sch.ValidTo != nil {
		validTo = *sch.ValidTo
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sch.ID.String(), sch.MembershipID.String(), sch.CompanyID.String(), sch.BranchID.String(),
		string(sch.Status), sch.ValidFrom, validTo, sch.CreatedAt,
	)
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, scheduleID id.ScheduleID) (models.Schedule, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`,
		scheduleID.String(),
	)
	sch, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Schedule{}, sentinel.ErrNotFound
	}
	return sch, err
}

func (s *PostgresStore) FindActiveForDate(ctx context.Context, membershipID id.MembershipID, date time.Time) (models.Schedule, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE membership_id = $1 AND status = 'ACTIVE'
		  AND valid_from::date <= $2::date
		  AND (valid_to IS NULL OR $2::date < valid_to::date)
		LIMIT 1`,
		membershipID.String(), id.DateOf(date),
	)
	sch, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Schedule{}, sentinel.ErrNotFound
	}
	return sch, err
}

func (s *PostgresStore) ListActiveAt(ctx context.Context, at time.Time) ([]models.Schedule, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE status = 'ACTIVE'
		  AND valid_from::date <= $1::date
		  AND (valid_to IS NULL OR $1::date < valid_to::date)
		ORDER BY created_at`,
		id.DateOf(at),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (s *PostgresStore) ListByMembership(ctx context.Context, membershipID id.MembershipID) ([]models.Schedule, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE membership_id = $1
		ORDER BY created_at`,
		membershipID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows *sql.Rows) ([]models.Schedule, error) {
	var out []models.Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

// Confirm flips a draft to ACTIVE and closes the member's other active
// schedules in the same statement batch. The conditional UPDATE makes the
// activation atomic: a concurrent confirm of the same draft loses the race
// and sees the invalid-state error.
func (s *PostgresStore) Confirm(ctx context.Context, scheduleID id.ScheduleID, now time.Time) (models.Schedule, error) {
	q := tx.Resolve(ctx, s.db)

	row := q.QueryRowContext(ctx, `
		UPDATE schedules SET status = 'ACTIVE'
		WHERE id = $1 AND status = 'DRAFT'
		RETURNING `+scheduleColumns,
		scheduleID.String(),
	)
	sch, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either missing or not a draft; distinguish for the caller.
		var exists bool
		if probeErr := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)`,
			scheduleID.String(),
		).Scan(&exists); probeErr != nil {
			return models.Schedule{}, probeErr
		}
		if !exists {
			return models.Schedule{}, sentinel.ErrNotFound
		}
		return models.Schedule{}, sentinel.ErrInvalidState
	}
	if err != nil {
		return models.Schedule{}, err
	}

	_, err = q.ExecContext(ctx, `
		UPDATE schedules SET status = 'CLOSED', valid_to = $1
		WHERE membership_id = $2 AND id <> $3 AND status = 'ACTIVE'`,
		now, sch.MembershipID.String(), scheduleID.String(),
	)
	if err != nil {
		return models.Schedule{}, err
	}
	return sch, nil
}
