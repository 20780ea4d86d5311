package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagescan/internal/cli"
	"github.com/jackzampolin/pagescan/internal/config"
	"github.com/jackzampolin/pagescan/internal/home"
	"github.com/jackzampolin/pagescan/internal/pipeline"
	"github.com/jackzampolin/pagescan/internal/watch"
)

var (
	watchDir          string
	watchPrompt       string
	watchMode         string
	watchFormat       string
	watchModel        string
	watchTemperature  float64
	watchSchemaPolicy string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and extract new documents as they arrive",
	Long: `Watch a directory for new images or PDFs and run extraction on each.

Every file dropped into the directory triggers one extraction run with
the given prompt; the artifact is written next to the source file.
Stop with Ctrl+C.

Examples:
  pagescan watch --dir ./inbox --prompt "extract the text"
  pagescan watch --dir ./scans --mode table --prompt "line items as a table"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		err = watch.Run(ctx, watch.Config{
			Dir: watchDir,
			Template: pipeline.Request{
				Prompt:       watchPrompt,
				Mode:         watchMode,
				Format:       watchFormat,
				Model:        watchModel,
				Temperature:  watchTemperature,
				SchemaPolicy: watchSchemaPolicy,
			},
			Options: pipeline.Options{
				Config: cfg,
				Home:   h,
				Logger: logger,
			},
			Logger: logger,
			OnReport: func(report *pipeline.Report) {
				if err := cli.Output(report); err != nil {
					logger.Error("failed to print report", "error", err)
				}
			},
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory to watch (required)")
	watchCmd.Flags().StringVar(&watchPrompt, "prompt", "", "instruction for the model (required)")
	watchCmd.Flags().StringVar(&watchMode, "mode", "", "force output mode: table or text")
	watchCmd.Flags().StringVar(&watchFormat, "format", "", "artifact format: csv, md, or xlsx")
	watchCmd.Flags().StringVar(&watchModel, "model", "", "vision model to use")
	watchCmd.Flags().Float64Var(&watchTemperature, "temperature", 0, "sampling temperature (default: 0.1)")
	watchCmd.Flags().StringVar(&watchSchemaPolicy, "schema-policy", "", "table header reconciliation: first-page, union, or strict")

	cobra.CheckErr(watchCmd.MarkFlagRequired("dir"))
	cobra.CheckErr(watchCmd.MarkFlagRequired("prompt"))
}
