package postgres

import (
	"context"
	"fmt"
)

// Schema bootstrap. Full migration tooling is handled by the surrounding
// deployment; this only creates what the attendance pipeline itself owns.
//
// seq on face_embeddings is assigned once on first registration and survives
// overwrites, so reference set snapshots keep a stable insertion order for
// the matcher tie-break. The unique constraint on attendance_records is the
// authoritative duplicate-attendance guard; the application-level pre-check
// only exists for the friendly early rejection.
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS face_embeddings (
	identity   BIGINT PRIMARY KEY,
	seq        BIGSERIAL,
	name       TEXT NOT NULL DEFAULT '',
	embedding  vector NOT NULL,
	backend    TEXT NOT NULL,
	dim        INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS courses (
	id          BIGSERIAL PRIMARY KEY,
	code        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id         BIGSERIAL PRIMARY KEY,
	identity   BIGINT NOT NULL,
	course_id  BIGINT NOT NULL,
	day        DATE NOT NULL,
	ts         TIMESTAMPTZ NOT NULL,
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	proof_key  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'present',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT attendance_once_per_day UNIQUE (identity, course_id, day)
);
`

// Schema returns the bootstrap SQL for printing or external application.
func Schema() string {
	return schemaSQL
}

// CreateSchema creates the tables owned by the attendance pipeline.
func (p *Pool) CreateSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
