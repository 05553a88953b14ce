package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fahry-ali/hadirku-deploy/internal/database"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// AttendanceRepository provides PostgreSQL-backed attendance record storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// RecordExists checks for an existing record for (identity, course, day).
func (r *AttendanceRepository) RecordExists(ctx context.Context, identity, courseID int64, day string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance_records WHERE identity = $1 AND course_id = $2 AND day = $3)",
		identity, courseID, day,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check record exists: %w", err)
	}
	return exists, nil
}

// InsertRecord persists a new attendance record. The unique constraint on
// (identity, course, day) is authoritative for duplicate suppression; a
// violation surfaces as database.ErrDuplicate so concurrent double-submits
// never produce two records or a fatal error.
func (r *AttendanceRepository) InsertRecord(ctx context.Context, rec *database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (identity, course_id, day, ts, latitude, longitude, proof_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.Identity,
		rec.CourseID,
		rec.Day,
		rec.Timestamp,
		rec.Latitude,
		rec.Longitude,
		rec.ProofKey,
		rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return database.ErrDuplicate
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// ListByIdentity returns an identity's attendance records, newest first.
func (r *AttendanceRepository) ListByIdentity(ctx context.Context, identity int64) ([]database.AttendanceRecord, error) {
	query := `
		SELECT id, identity, course_id, day::text, ts, latitude, longitude, proof_key, status, created_at
		FROM attendance_records
		WHERE identity = $1
		ORDER BY ts DESC
	`

	rows, err := r.pool.Query(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Identity,
			&rec.CourseID,
			&rec.Day,
			&rec.Timestamp,
			&rec.Latitude,
			&rec.Longitude,
			&rec.ProofKey,
			&rec.Status,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}
