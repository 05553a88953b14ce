package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hadirku",
	Short: "Face-recognition attendance service for campus courses",
	Long: `Hadirku is the attendance service: students register a reference face
once, then check in to a course by submitting a camera frame. The frame is
matched against registered faces and an admitted attempt becomes exactly one
attendance record per student, course and day.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
