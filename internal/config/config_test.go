package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("ENCODER_BACKEND")
	os.Unsetenv("FACE_MATCH_CUTOFF")
	os.Unsetenv("ATTENDANCE_TIMEZONE")

	cfg := Load()

	if cfg.Encoder.Backend != "mesh" {
		t.Errorf("expected default backend 'mesh', got '%s'", cfg.Encoder.Backend)
	}
	if cfg.Attendance.Timezone != "Asia/Jakarta" {
		t.Errorf("expected default timezone 'Asia/Jakarta', got '%s'", cfg.Attendance.Timezone)
	}
	if cfg.Attendance.MaxImageWidth != 640 {
		t.Errorf("expected default max image width 640, got %d", cfg.Attendance.MaxImageWidth)
	}
	if cfg.Blob.Driver != "fs" {
		t.Errorf("expected default blob driver 'fs', got '%s'", cfg.Blob.Driver)
	}
}

func TestLoad_EmbeddedBackendProfiles(t *testing.T) {
	os.Unsetenv("FACE_MATCH_CUTOFF")
	cfg := Load()

	descriptor, ok := cfg.Backends.Backends["descriptor"]
	if !ok {
		t.Fatal("expected embedded descriptor backend profile")
	}
	if descriptor.Dim != 128 {
		t.Errorf("expected descriptor dim 128, got %d", descriptor.Dim)
	}
	if descriptor.Metric != "euclidean" {
		t.Errorf("expected descriptor metric 'euclidean', got '%s'", descriptor.Metric)
	}
	if descriptor.Cutoff != 0.5 {
		t.Errorf("expected descriptor cutoff 0.5, got %f", descriptor.Cutoff)
	}

	mesh, ok := cfg.Backends.Backends["mesh"]
	if !ok {
		t.Fatal("expected embedded mesh backend profile")
	}
	if mesh.Metric != "cosine" {
		t.Errorf("expected mesh metric 'cosine', got '%s'", mesh.Metric)
	}
	if mesh.Cutoff != 0.85 {
		t.Errorf("expected mesh cutoff 0.85, got %f", mesh.Cutoff)
	}
}

func TestLoad_CutoffOverride(t *testing.T) {
	os.Setenv("ENCODER_BACKEND", "descriptor")
	os.Setenv("FACE_MATCH_CUTOFF", "0.42")
	defer os.Unsetenv("ENCODER_BACKEND")
	defer os.Unsetenv("FACE_MATCH_CUTOFF")

	cfg := Load()

	profile, err := cfg.ActiveBackend()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Cutoff != 0.42 {
		t.Errorf("expected overridden cutoff 0.42, got %f", profile.Cutoff)
	}
}

func TestActiveBackend_Unknown(t *testing.T) {
	os.Setenv("ENCODER_BACKEND", "does-not-exist")
	defer os.Unsetenv("ENCODER_BACKEND")

	cfg := Load()

	if _, err := cfg.ActiveBackend(); err == nil {
		t.Error("expected error for unknown backend")
	}
}
