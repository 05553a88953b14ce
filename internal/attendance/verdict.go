package attendance

import "github.com/fahry-ali/hadirku-deploy/internal/database"

// Reason is a stable rejection code. Every rejection a caller can recover
// from maps to exactly one reason and one human-readable message.
type Reason string

const (
	ReasonBadImage            Reason = "bad_image"
	ReasonNoFaceDetected      Reason = "no_face_detected"
	ReasonMultipleFaces       Reason = "multiple_faces_detected"
	ReasonFaceNotRecognized   Reason = "face_not_recognized"
	ReasonEmptyReferenceSet   Reason = "empty_reference_set"
	ReasonIdentityMismatch    Reason = "identity_mismatch"
	ReasonDuplicateAttendance Reason = "duplicate_attendance"
	ReasonStorageError        Reason = "storage_error"
	ReasonTimeout             Reason = "timeout"
)

var reasonMessages = map[Reason]string{
	ReasonBadImage:            "The submitted frame could not be read as an image.",
	ReasonNoFaceDetected:      "No face was detected in the frame.",
	ReasonMultipleFaces:       "More than one face was detected. Registration needs exactly one face.",
	ReasonFaceNotRecognized:   "The face was not recognized.",
	ReasonEmptyReferenceSet:   "No faces are registered yet. There is nothing to compare against.",
	ReasonIdentityMismatch:    "The detected face belongs to a different registered person.",
	ReasonDuplicateAttendance: "Attendance for this course has already been recorded today.",
	ReasonStorageError:        "Attendance could not be saved. Please try again.",
	ReasonTimeout:             "Face processing took too long. Please try again.",
}

// Message returns the user-facing text for a rejection reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Attendance attempt rejected."
}

// Verdict is the structured outcome of one attendance attempt.
// MatchedName is only populated for identity mismatches and carries the
// display name of the matched person, never embeddings or scores.
type Verdict struct {
	Admitted    bool
	Reason      Reason
	MatchedName string
	Record      *database.AttendanceRecord
}

// rejected builds a rejection verdict.
func rejected(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

// RegistrationResult is the structured outcome of one registration attempt.
type RegistrationResult struct {
	Stored  bool
	Reason  Reason
	Backend string
	Dim     int
}

func registrationRejected(reason Reason) RegistrationResult {
	return RegistrationResult{Reason: reason}
}
