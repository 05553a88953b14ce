package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fahry-ali/hadirku-deploy/internal/config"
	"github.com/fahry-ali/hadirku-deploy/internal/database/postgres"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print or apply the database schema",
	Long: `Print the SQL schema owned by the attendance pipeline, or apply it
directly to the database configured via DATABASE_URL.`,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().Bool("apply", false, "Apply the schema to the configured database instead of printing it")
}

func runSchema(cmd *cobra.Command, args []string) error {
	apply, err := cmd.Flags().GetBool("apply")
	if err != nil {
		return err
	}

	if !apply {
		fmt.Print(postgres.Schema())
		return nil
	}

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	if err := pool.CreateSchema(context.Background()); err != nil {
		return err
	}
	fmt.Println("Schema applied")
	return nil
}
