package postgres

import (
	"context"
	"database/sql"
)

// Schema is the full DDL of the attendance tables. Integration tests apply
// it to fresh containers; deployments manage it through their own migration
// tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS memberships (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL,
	company_id UUID NOT NULL,
	branch_id  UUID NOT NULL,
	role       TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS memberships_one_active
	ON memberships (user_id, company_id, branch_id) WHERE active;

CREATE TABLE IF NOT EXISTS schedules (
	id            UUID PRIMARY KEY,
	membership_id UUID NOT NULL REFERENCES memberships (id),
	company_id    UUID NOT NULL,
	branch_id     UUID NOT NULL,
	status        TEXT NOT NULL,
	valid_from    TIMESTAMPTZ NOT NULL,
	valid_to      TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS schedules_membership_status
	ON schedules (membership_id, status);

CREATE TABLE IF NOT EXISTS shifts (
	id            UUID PRIMARY KEY,
	schedule_id   UUID NOT NULL REFERENCES schedules (id),
	weekday       INT NOT NULL CHECK (weekday BETWEEN 1 AND 7),
	start_minutes INT NOT NULL,
	end_minutes   INT NOT NULL CHECK (end_minutes > start_minutes),
	valid_from    TIMESTAMPTZ NOT NULL,
	valid_to      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS shifts_schedule_weekday
	ON shifts (schedule_id, weekday);

CREATE TABLE IF NOT EXISTS schedule_exceptions (
	id            UUID PRIMARY KEY,
	schedule_id   UUID NOT NULL REFERENCES schedules (id),
	date          DATE NOT NULL,
	type          TEXT NOT NULL,
	start_minutes INT,
	end_minutes   INT,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS schedule_exceptions_schedule_date
	ON schedule_exceptions (schedule_id, date);

CREATE TABLE IF NOT EXISTS records (
	id            UUID PRIMARY KEY,
	type          TEXT NOT NULL CHECK (type IN ('IN', 'OUT')),
	user_id       UUID NOT NULL,
	membership_id UUID NOT NULL REFERENCES memberships (id),
	company_id    UUID NOT NULL,
	branch_id     UUID NOT NULL,
	at            TIMESTAMPTZ NOT NULL,
	corrective    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS records_membership_at
	ON records (membership_id, at DESC);

CREATE TABLE IF NOT EXISTS incidents (
	id            UUID PRIMARY KEY,
	type          TEXT NOT NULL,
	origin        TEXT NOT NULL,
	state         TEXT NOT NULL,
	admitted      BOOLEAN NOT NULL DEFAULT FALSE,
	user_id       UUID NOT NULL,
	membership_id UUID NOT NULL REFERENCES memberships (id),
	company_id    UUID NOT NULL,
	branch_id     UUID NOT NULL,
	expected_at   TIMESTAMPTZ NOT NULL,
	occurred_at   TIMESTAMPTZ NOT NULL,
	record_id     UUID,
	note          TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS incidents_membership_type_expected
	ON incidents (membership_id, type, expected_at);

CREATE INDEX IF NOT EXISTS incidents_company_occurred
	ON incidents (company_id, occurred_at);
`

// ApplySchema creates the attendance tables if they don't exist.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
