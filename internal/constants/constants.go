// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum camera frame upload size in bytes (10MB)
	MaxUploadSize = 10 << 20
)

// Attendance constants
const (
	// DayFormat is the civil date layout used for the once-per-day key
	DayFormat = "2006-01-02"

	// DefaultHistoryLimit is the maximum number of attendance records
	// returned by the history endpoint
	DefaultHistoryLimit = 100
)
