// Package handlers implements the HTTP API on top of the attendance
// controller and the read-side repositories.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fahry-ali/hadirku-deploy/internal/attendance"
	"github.com/fahry-ali/hadirku-deploy/internal/constants"
)

// readFrame extracts the camera frame from the multipart "image" field.
func readFrame(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("image field is required")
	}
	defer file.Close()

	frame, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
	if err != nil {
		return nil, errors.New("failed to read image")
	}
	return frame, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// reasonStatus maps a rejection reason to its stable HTTP status code.
func reasonStatus(reason attendance.Reason) int {
	switch reason {
	case attendance.ReasonBadImage:
		return http.StatusBadRequest
	case attendance.ReasonNoFaceDetected,
		attendance.ReasonMultipleFaces,
		attendance.ReasonFaceNotRecognized,
		attendance.ReasonEmptyReferenceSet:
		return http.StatusUnprocessableEntity
	case attendance.ReasonIdentityMismatch:
		return http.StatusForbidden
	case attendance.ReasonDuplicateAttendance:
		return http.StatusConflict
	case attendance.ReasonTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondRejection sends the structured rejection body. Rejections carry one
// human message and the machine reason; matchedName is included only for
// identity mismatches, never scores or embeddings.
func respondRejection(w http.ResponseWriter, reason attendance.Reason, matchedName string) {
	body := map[string]string{
		"error":  reason.Message(),
		"reason": string(reason),
	}
	if matchedName != "" {
		body["matched_name"] = matchedName
	}
	respondJSON(w, reasonStatus(reason), body)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
