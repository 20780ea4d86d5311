package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagescan/internal/cli"
	"github.com/jackzampolin/pagescan/internal/config"
	"github.com/jackzampolin/pagescan/internal/home"
	"github.com/jackzampolin/pagescan/internal/pipeline"
)

var (
	extractImages       []string
	extractPDF          string
	extractPrompt       string
	extractMode         string
	extractOutput       string
	extractFormat       string
	extractModel        string
	extractTemperature  float64
	extractSchemaPolicy string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run OCR extraction over images or a PDF",
	Long: `Extract text or tabular content from scanned documents.

Inputs are local image paths, remote image URLs (--images), or a single
PDF (--pdf). Each page is sent to the vision model with your prompt;
the per-page responses are merged into one CSV, Markdown, or XLSX
artifact. Pages that fail are reported, never silently dropped.

The mode is inferred from the prompt unless --mode is given: prompts
mentioning tables, CSV, columns, or rows select table mode; everything
else selects text mode.

Examples:
  pagescan extract --images scan.png --prompt "extract the text"
  pagescan extract --images a.png b.png --prompt "invoice line items as a table"
  pagescan extract --pdf statement.pdf --mode table --prompt "all transactions" --output tx.csv
  pagescan extract --pdf report.pdf --prompt "summarize each page" --format md`,
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

		report, err := pipeline.Run(ctx, pipeline.Options{
			Config: cfg,
			Home:   h,
			Logger: logger,
		}, pipeline.Request{
			Images:       extractImages,
			PDF:          extractPDF,
			Prompt:       extractPrompt,
			Mode:         extractMode,
			Output:       extractOutput,
			Format:       extractFormat,
			Model:        extractModel,
			Temperature:  extractTemperature,
			SchemaPolicy: extractSchemaPolicy,
		})
		if err != nil {
			return err
		}

		return cli.Output(report)
	},
}

func init() {
	extractCmd.Flags().StringSliceVar(&extractImages, "images", nil, "image paths or URLs to process")
	extractCmd.Flags().StringVar(&extractPDF, "pdf", "", "PDF to process, one page at a time")
	extractCmd.Flags().StringVar(&extractPrompt, "prompt", "", "instruction for the model (required)")
	extractCmd.Flags().StringVar(&extractMode, "mode", "", "force output mode: table or text (default: inferred from prompt)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "artifact path (default: ocr_result.csv / ocr_result.md)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "artifact format: csv, md, or xlsx (default: by mode)")
	extractCmd.Flags().StringVar(&extractModel, "model", "", "vision model to use (default: from config)")
	extractCmd.Flags().Float64Var(&extractTemperature, "temperature", 0, "sampling temperature (default: 0.1)")
	extractCmd.Flags().StringVar(&extractSchemaPolicy, "schema-policy", "", "table header reconciliation: first-page, union, or strict")

	cobra.CheckErr(extractCmd.MarkFlagRequired("prompt"))
	extractCmd.MarkFlagsMutuallyExclusive("images", "pdf")
	extractCmd.MarkFlagsOneRequired("images", "pdf")
}
