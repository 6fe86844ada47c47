package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"avplan/internal/service"
)

var (
	analyzeOut      string
	analyzeWorkbook bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [plan-file]",
	Short: "Analyze one plan and write its artifacts to a local directory",
	Long: `Run a single job against a plan file. Artifacts are written to the local
store under --out and the JobResult is printed to stdout as JSON.`,
	Example: `  # Analyze a drawing set
  avplan analyze "Level 2 AV.pdf" --out ./artifacts

  # Include the spreadsheet workbook
  avplan analyze riser.png --workbook`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "artifact directory (default: storage.local_dir)")
	analyzeCmd.Flags().BoolVar(&analyzeWorkbook, "workbook", false, "also render the xlsx workbook")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.Storage.Backend = "local"
	if analyzeOut != "" {
		cfg.Storage.LocalDir = analyzeOut
	}
	if analyzeWorkbook {
		cfg.Artifact.WorkbookEnabled = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := wire(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := a.jobs.Analyze(ctx, service.AnalyzeInput{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Content:     content,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
