package shift

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

// PostgresStore persists shifts in the shifts table. Start and end are stored
// as minutes since midnight.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const shiftColumns = `id, schedule_id, weekday, start_minutes, end_minutes, valid_from, valid_to`

func scanShift(row interface{ Scan(...any) error }) (models.Shift, error) {
	var (
		sh         models.Shift
		shID, scID string
		weekday    int
		start, end int
		validTo    sql.NullTime
	)
	if err := row.Scan(&shID, &scID, &weekday, &start, &end, &sh.ValidFrom, &validTo); err != nil {
		return models.Shift{}, err
	}
	var err error
	if sh.ID, err = id.ParseShiftID(shID); err != nil {
		return models.Shift{}, err
	}
	if sh.ScheduleID, err = id.ParseScheduleID(scID); err != nil {
		return models.Shift{}, err
	}
	sh.Weekday = id.Weekday(weekday)
	sh.Start = id.TimeOfDay(start)
	sh.End = id.TimeOfDay(end)
	if validTo.Valid {
		t := validTo.Time
		sh.ValidTo = &t
	}
	return sh, nil
}

func (s *PostgresStore) Create(ctx context.Context, sh models.Shift) error {
	q := tx.Resolve(ctx, s.db)
	var validTo any
	if sh.ValidTo != nil {
		validTo = *sh.ValidTo
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sh.ID.String(), sh.ScheduleID.String(), int(sh.Weekday),
		int(sh.Start), int(sh.End), sh.ValidFrom, validTo,
	)
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, shiftID id.ShiftID) (models.Shift, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts WHERE id = $1`,
		shiftID.String(),
	)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Shift{}, sentinel.ErrNotFound
	}
	return sh, err
}

func (s *PostgresStore) ListBySchedule(ctx context.Context, scheduleID id.ScheduleID) ([]models.Shift, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE schedule_id = $1
		ORDER BY weekday, start_minutes`,
		scheduleID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *PostgresStore) ListByScheduleWeekday(ctx context.Context, scheduleID id.ScheduleID, weekday id.Weekday) ([]models.Shift, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE schedule_id = $1 AND weekday = $2
		ORDER BY start_minutes`,
		scheduleID.String(), int(weekday),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *PostgresStore) CloseValidity(ctx context.Context, shiftID id.ShiftID, until time.Time) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE shifts SET valid_to = $1 WHERE id = $2`,
		id.DateOf(until), shiftID.String(),
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

func collectShifts(rows *sql.Rows) ([]models.Shift, error) {
	var out []models.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}
