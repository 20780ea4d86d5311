package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagescan/internal/cli"
	"github.com/jackzampolin/pagescan/version"
)

var (
	cfgFile      string
	homeDir      string
	reportFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pagescan",
	Short: "Vision-model OCR for scanned documents",
	Long: `Pagescan extracts text or tabular content from scanned documents
(images or PDFs) using a hosted multimodal model, and converts the
model's responses into deterministic CSV, Markdown, or XLSX artifacts.

The pipeline:
  - Resolves images, image URLs, or PDF pages into ordered page units
  - Issues one deterministic low-temperature extraction request per page
  - Merges per-page responses into a single artifact, accounting for
    every page even when some fail`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pagescan/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pagescan home directory (default: ~/.pagescan)",
	)
	rootCmd.PersistentFlags().StringVar(
		&reportFormat, "report", "yaml", "run report format: yaml or json",
	)

	// Set report format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cli.SetOutputFormat(reportFormat)
	}

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
