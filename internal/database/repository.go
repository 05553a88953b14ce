package database

import (
	"context"
	"errors"

	"github.com/fahry-ali/hadirku-deploy/internal/matcher"
)

// ErrDuplicate is returned by InsertRecord when the (identity, course, day)
// unique constraint rejects the insert. Callers treat it as a duplicate
// attendance, never as a fatal storage error.
var ErrDuplicate = errors.New("attendance record already exists")

// EmbeddingReader provides read-only access to stored face embeddings.
type EmbeddingReader interface {
	// LoadReferenceSet returns a fresh snapshot of every stored embedding in
	// insertion order. Called once per attendance attempt, never cached.
	LoadReferenceSet(ctx context.Context) (matcher.ReferenceSet, error)
	// HasEmbedding checks whether an identity has a registered face.
	HasEmbedding(ctx context.Context, identity int64) (bool, error)
}

// EmbeddingWriter provides write access to stored face embeddings.
type EmbeddingWriter interface {
	EmbeddingReader

	// SaveEmbedding stores the embedding for an identity, overwriting any
	// previous one. No history is retained.
	SaveEmbedding(ctx context.Context, emb StoredEmbedding) error
}

// AttendanceReader provides read-only access to attendance records.
type AttendanceReader interface {
	// RecordExists checks for an existing record for (identity, course, day).
	RecordExists(ctx context.Context, identity, courseID int64, day string) (bool, error)
	// ListByIdentity returns an identity's records, newest first.
	ListByIdentity(ctx context.Context, identity int64) ([]AttendanceRecord, error)
}

// AttendanceWriter provides write access to attendance records.
type AttendanceWriter interface {
	AttendanceReader

	// InsertRecord persists a new record and fills in its ID.
	// Returns ErrDuplicate when the unique constraint on
	// (identity, course, day) rejects the insert.
	InsertRecord(ctx context.Context, rec *AttendanceRecord) error
}

// CourseReader lists courses for UI population.
type CourseReader interface {
	ListCourses(ctx context.Context) ([]Course, error)
}
