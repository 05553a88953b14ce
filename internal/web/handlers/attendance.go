package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/fahry-ali/hadirku-deploy/internal/attendance"
	"github.com/fahry-ali/hadirku-deploy/internal/constants"
	"github.com/fahry-ali/hadirku-deploy/internal/database"
	"github.com/fahry-ali/hadirku-deploy/internal/web/middleware"
)

// AttendanceHandler handles attendance attempts and history.
type AttendanceHandler struct {
	controller *attendance.Controller
	records    database.AttendanceReader
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(controller *attendance.Controller, records database.AttendanceReader) *AttendanceHandler {
	return &AttendanceHandler{
		controller: controller,
		records:    records,
	}
}

// recordResponse is the wire shape of one attendance record.
type recordResponse struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Day       string    `json:"day"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Status    string    `json:"status"`
}

func toRecordResponse(rec *database.AttendanceRecord) recordResponse {
	return recordResponse{
		ID:        rec.ID,
		CourseID:  rec.CourseID,
		Day:       rec.Day,
		Timestamp: rec.Timestamp,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Status:    rec.Status,
	}
}

// parseCoordinate parses an optional form coordinate. Values pass through
// unvalidated; they are evidence, not an admission criterion.
func parseCoordinate(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Submit handles POST /attendance: one camera frame, one course, one verdict.
func (h *AttendanceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	frame, err := readFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	courseID, err := strconv.ParseInt(r.FormValue("course_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "course_id is required")
		return
	}

	lat, err := parseCoordinate(r.FormValue("latitude"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid latitude")
		return
	}
	lng, err := parseCoordinate(r.FormValue("longitude"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid longitude")
		return
	}

	verdict, err := h.controller.SubmitAttendance(r.Context(), id.ID, courseID, frame, lat, lng)
	if err != nil {
		log.Printf("attendance attempt failed for identity %d course %d: %v", id.ID, courseID, err)
		respondError(w, http.StatusInternalServerError, "attendance attempt failed")
		return
	}
	if !verdict.Admitted {
		respondRejection(w, verdict.Reason, verdict.MatchedName)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"admitted": true,
		"record":   toRecordResponse(verdict.Record),
	})
}

// History handles GET /attendance/history: the caller's own records, newest
// first.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	records, err := h.records.ListByIdentity(r.Context(), id.ID)
	if err != nil {
		log.Printf("attendance history lookup failed for identity %d: %v", id.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to load attendance history")
		return
	}
	if len(records) > constants.DefaultHistoryLimit {
		records = records[:constants.DefaultHistoryLimit]
	}

	out := make([]recordResponse, 0, len(records))
	for i := range records {
		out = append(out, toRecordResponse(&records[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": out,
	})
}
