package handlers

import (
	"log"
	"net/http"

	"github.com/fahry-ali/hadirku-deploy/internal/database"
)

// CoursesHandler serves the course list for UI population. Course management
// itself lives in an external system; this side only reads.
type CoursesHandler struct {
	courses database.CourseReader
}

// NewCoursesHandler creates a new courses handler.
func NewCoursesHandler(courses database.CourseReader) *CoursesHandler {
	return &CoursesHandler{courses: courses}
}

type courseResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListToday handles GET /courses/today.
func (h *CoursesHandler) ListToday(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		log.Printf("course list lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load courses")
		return
	}

	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, courseResponse{
			ID:          c.ID,
			Code:        c.Code,
			Name:        c.Name,
			Description: c.Description,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"courses": out,
	})
}
