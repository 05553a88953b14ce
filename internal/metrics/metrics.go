// Package metrics exposes Prometheus instrumentation for the attendance pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceVerdicts counts attendance attempts by outcome. The label is
	// "admitted" or the rejection reason code.
	AttendanceVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hadirku_attendance_verdicts_total",
		Help: "Attendance attempts by verdict outcome.",
	}, []string{"outcome"})

	// RegistrationVerdicts counts face registration attempts by outcome.
	RegistrationVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hadirku_registration_verdicts_total",
		Help: "Face registration attempts by verdict outcome.",
	}, []string{"outcome"})

	// EncodeDuration observes the latency of encoder backend calls.
	EncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hadirku_encode_duration_seconds",
		Help:    "Latency of face encoder backend calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})
)
