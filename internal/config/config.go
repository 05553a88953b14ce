package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed backends.yaml
var backendsYAML []byte

type Config struct {
	Encoder    EncoderConfig
	Attendance AttendanceConfig
	Database   DatabaseConfig
	Blob       BlobConfig
	Backends   BackendsConfig
}

type EncoderConfig struct {
	Backend string // encoder backend name: "descriptor" or "mesh"
	URL     string // base URL of the detection/embedding service
}

type AttendanceConfig struct {
	Timezone       string        // IANA zone used to derive the attendance calendar day
	AttemptTimeout time.Duration // budget for the encode+match path of one attempt
	MaxImageWidth  int           // normalizer working width in pixels
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type BlobConfig struct {
	Driver      string // "fs" (default) or "s3"
	Dir         string // capture directory for the fs driver
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // optional, for MinIO
	S3PathStyle bool
}

type BackendsConfig struct {
	Backends map[string]BackendProfile `yaml:"backends"`
}

// BackendProfile holds the matcher pairing for one encoder backend. The
// embedded defaults can be tuned per deployment through environment variables.
type BackendProfile struct {
	Dim                    int     `yaml:"dim"`
	Metric                 string  `yaml:"metric"` // "euclidean" or "cosine"
	Cutoff                 float64 `yaml:"cutoff"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var backends BackendsConfig
	if err := yaml.Unmarshal(backendsYAML, &backends); err != nil {
		// Embedded file, this should never happen in practice
		panic("failed to unmarshal embedded backends.yaml: " + err.Error())
	}

	cfg := &Config{
		Encoder: EncoderConfig{
			Backend: envString("ENCODER_BACKEND", "mesh"),
			URL:     envString("ENCODER_URL", "http://localhost:8000"),
		},
		Attendance: AttendanceConfig{
			Timezone:       envString("ATTENDANCE_TIMEZONE", "Asia/Jakarta"),
			AttemptTimeout: time.Duration(envInt("ATTEMPT_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxImageWidth:  envInt("MAX_IMAGE_WIDTH", 640),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Blob: BlobConfig{
			Driver:      envString("BLOB_DRIVER", "fs"),
			Dir:         envString("BLOB_FS_DIR", "captures"),
			S3Bucket:    os.Getenv("BLOB_S3_BUCKET"),
			S3Region:    os.Getenv("BLOB_S3_REGION"),
			S3Endpoint:  os.Getenv("BLOB_S3_ENDPOINT"),
			S3PathStyle: os.Getenv("BLOB_S3_PATH_STYLE") == "true",
		},
		Backends: backends,
	}

	// Per-deployment cutoff override applies to whichever backend is active.
	if profile, ok := cfg.Backends.Backends[cfg.Encoder.Backend]; ok {
		profile.Cutoff = envFloat("FACE_MATCH_CUTOFF", profile.Cutoff)
		profile.MinDetectionConfidence = envFloat("MIN_DETECTION_CONFIDENCE", profile.MinDetectionConfidence)
		cfg.Backends.Backends[cfg.Encoder.Backend] = profile
	}

	return cfg
}

// ActiveBackend returns the profile for the configured encoder backend.
func (c *Config) ActiveBackend() (BackendProfile, error) {
	profile, ok := c.Backends.Backends[c.Encoder.Backend]
	if !ok {
		return BackendProfile{}, fmt.Errorf("unknown encoder backend %q", c.Encoder.Backend)
	}
	return profile, nil
}
