package exception

import (
	"context"
	"database/sql"
	"time"

	"fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/tx"
)

// PostgresStore persists exceptions in the schedule_exceptions table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const exceptionColumns = `id, schedule_id, date, type, start_minutes, end_minutes, created_at`

func scanException(row interface{ Scan(...any) error }) (models.Exception, error) {
	var (
		e          models.Exception
		eID, scID  string
		kind       string
		start, end sql.NullInt64
	)
	if err := row.Scan(&eID, &scID, &e.Date, &kind, &start, &end, &e.CreatedAt); err != nil {
		return models.Exception{}, err
	}
	var err error
	if e.ID, err = id.ParseExceptionID(eID); err != nil {
		return models.Exception{}, err
	}
	if e.ScheduleID, err = id.ParseScheduleID(scID); err != nil {
		return models.Exception{}, err
	}
	e.Type = models.ExceptionType(kind)
	if start.Valid {
		t := id.TimeOfDay(start.Int64)
		e.Start = &t
	}
	if end.Valid {
		t := id.TimeOfDay(end.Int64)
		e.End = &t
	}
	return e, nil
}

func exceptionArgs(e models.Exception) []any {
	var start, end any
	if e.Start != nil {
		start = int(*e.Start)
	}
	if e.End != nil {
		end = int(*e.End)
	}
	return []any{
		e.ID.String(), e.ScheduleID.String(), id.DateOf(e.Date),
		string(e.Type), start, end, e.CreatedAt,
	}
}

func (s *PostgresStore) Create(ctx context.Context, e models.Exception) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO schedule_exceptions (`+exceptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		exceptionArgs(e)...,
	)
	return err
}

// CreateVacationIfAbsent inserts a VACATION exception for the date unless one
// already exists. The single INSERT ... WHERE NOT EXISTS statement keeps the
// check and insert atomic under concurrent vacation requests.
func (s *PostgresStore) CreateVacationIfAbsent(ctx context.Context, e models.Exception) (bool, error) {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		INSERT INTO schedule_exceptions (`+exceptionColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM schedule_exceptions
			WHERE schedule_id = $2 AND date = $3 AND type = 'VACATION'
		)`,
		exceptionArgs(e)...,
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

func (s *PostgresStore) ListForDate(ctx context.Context, scheduleID id.ScheduleID, date time.Time) ([]models.Exception, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+exceptionColumns+` FROM schedule_exceptions
		WHERE schedule_id = $1 AND date = $2
		ORDER BY created_at`,
		scheduleID.String(), id.DateOf(date),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExceptions(rows)
}

func (s *PostgresStore) ListForRange(ctx context.Context, scheduleID id.ScheduleID, from, to time.Time) ([]models.Exception, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+exceptionColumns+` FROM schedule_exceptions
		WHERE schedule_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, created_at`,
		scheduleID.String(), id.DateOf(from), id.DateOf(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExceptions(rows)
}

func (s *PostgresStore) DeleteVacations(ctx context.Context, scheduleID id.ScheduleID, from, to time.Time) (int, error) {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		DELETE FROM schedule_exceptions
		WHERE schedule_id = $1 AND type = 'VACATION' AND date >= $2 AND date <= $3`,
		scheduleID.String(), id.DateOf(from), id.DateOf(to),
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

func collectExceptions(rows *sql.Rows) ([]models.Exception, error) {
	var out []models.Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
