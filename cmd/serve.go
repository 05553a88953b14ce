package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fahry-ali/hadirku-deploy/internal/attendance"
	"github.com/fahry-ali/hadirku-deploy/internal/blob"
	"github.com/fahry-ali/hadirku-deploy/internal/config"
	"github.com/fahry-ali/hadirku-deploy/internal/database/postgres"
	"github.com/fahry-ali/hadirku-deploy/internal/encoder"
	"github.com/fahry-ali/hadirku-deploy/internal/matcher"
	"github.com/fahry-ali/hadirku-deploy/internal/web"
	"github.com/fahry-ali/hadirku-deploy/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Hadirku API server.
The server exposes face registration, attendance check-in, attendance
history and the course list over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// buildController wires the admission pipeline from configuration.
func buildController(ctx context.Context, cfg *config.Config, pool *postgres.Pool) (*attendance.Controller, error) {
	profile, err := cfg.ActiveBackend()
	if err != nil {
		return nil, err
	}
	metric, err := matcher.ParseMetric(profile.Metric)
	if err != nil {
		return nil, err
	}
	enc, err := encoder.New(cfg.Encoder.Backend, cfg.Encoder.URL, profile.Dim, profile.MinDetectionConfidence)
	if err != nil {
		return nil, err
	}
	proofs, err := blob.New(ctx, &cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("initializing proof image store: %w", err)
	}
	location, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Attendance.Timezone, err)
	}

	fmt.Printf("Encoder backend: %s (dim %d, %s metric, cutoff %g)\n",
		cfg.Encoder.Backend, profile.Dim, profile.Metric, profile.Cutoff)
	fmt.Printf("Proof image store: %s\n", proofs.Driver())

	return attendance.NewController(attendance.Options{
		Encoder:    enc,
		Metric:     metric,
		Cutoff:     profile.Cutoff,
		Embeddings: postgres.NewEmbeddingRepository(pool),
		Records:    postgres.NewAttendanceRepository(pool),
		Proofs:     proofs,
		Location:   location,
		MaxWidth:   cfg.Attendance.MaxImageWidth,
		Timeout:    cfg.Attendance.AttemptTimeout,
	}), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.CreateSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	controller, err := buildController(ctx, cfg, pool)
	if err != nil {
		return err
	}

	tokens, err := middleware.ParseStaticTokens(os.Getenv("AUTH_TOKENS"))
	if err != nil {
		return fmt.Errorf("parsing AUTH_TOKENS: %w", err)
	}
	if len(tokens) == 0 {
		fmt.Println("Warning: AUTH_TOKENS is empty, every request will be rejected")
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, web.Dependencies{
		Controller: controller,
		Embeddings: postgres.NewEmbeddingRepository(pool),
		Records:    postgres.NewAttendanceRepository(pool),
		Courses:    postgres.NewCourseRepository(pool),
		Resolver:   middleware.NewStaticResolver(tokens),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Hadirku API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
