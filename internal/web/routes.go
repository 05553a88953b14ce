package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fahry-ali/hadirku-deploy/internal/web/handlers"
	"github.com/fahry-ali/hadirku-deploy/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	faceHandler := handlers.NewFaceHandler(s.deps.Controller, s.deps.Embeddings)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Controller, s.deps.Records)
	coursesHandler := handlers.NewCoursesHandler(s.deps.Courses)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// All attendance routes act on the caller's own identity
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(s.deps.Resolver))

			// Face
			r.Post("/face/register", faceHandler.Register)
			r.Get("/face/status", faceHandler.Status)

			// Attendance
			r.Post("/attendance", attendanceHandler.Submit)
			r.Get("/attendance/history", attendanceHandler.History)

			// Courses
			r.Get("/courses/today", coursesHandler.ListToday)
		})
	})
}
