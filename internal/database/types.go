package database

import (
	"time"
)

// StoredEmbedding is the live face embedding for one identity. At most one
// embedding exists per identity; re-registration overwrites it.
type StoredEmbedding struct {
	Identity  int64
	Name      string // display name, the only detail mismatch rejections may reveal
	Vector    []float32
	Backend   string // encoder backend version tag
	Dim       int
	CreatedAt time.Time
}

// AttendanceRecord is one admitted attendance. Immutable after creation.
type AttendanceRecord struct {
	ID        int64
	Identity  int64
	CourseID  int64
	Day       string // calendar day (YYYY-MM-DD) in the deployment timezone
	Timestamp time.Time
	Latitude  *float64
	Longitude *float64
	ProofKey  string // blob store key of the accepted frame
	Status    string
	CreatedAt time.Time
}

// StatusPresent is the status written for every admitted record.
const StatusPresent = "present"

// Course is a minimal course row for UI population. Course CRUD lives in an
// external collaborator; this side only reads.
type Course struct {
	ID          int64
	Code        string
	Name        string
	Description string
}
