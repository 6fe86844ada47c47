package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"avplan/internal/config"
	"avplan/internal/logger"
)

var version = "0.1.0"

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "avplan",
	Short: "Interpret AV construction plans into pull sheets, BOMs and verification reports",
	Long: `avplan reads an AV construction plan (PDF or raster image), recognizes its
text, asks a language model to identify the devices and signal paths, and
renders a summary, cable pull sheet, reflected bill of materials and a
verification checklist.

Configuration is read from avplan.yaml and AVPLAN_* environment variables.
A .env file in the working directory is loaded first when present.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Setup(loaded.Log, nil); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, analyzeCmd, taxonomyCmd)
}

// @title avplan API
// @version 1.0
// @description Interprets AV construction plans into a summary, cable pull sheet, reflected BOM and verification report.
// @BasePath /api/v1
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		l := logger.WithComponent("cmd")
		l.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
