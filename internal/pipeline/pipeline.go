// Package pipeline wires source resolution, mode selection, extraction,
// aggregation, and artifact writing into a single run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pagescan/internal/aggregate"
	"github.com/jackzampolin/pagescan/internal/artifact"
	"github.com/jackzampolin/pagescan/internal/config"
	"github.com/jackzampolin/pagescan/internal/extract"
	"github.com/jackzampolin/pagescan/internal/home"
	"github.com/jackzampolin/pagescan/internal/providers"
	"github.com/jackzampolin/pagescan/internal/source"
)

// Request is one extraction run's parameters.
type Request struct {
	Images       []string // Local image paths and/or http(s) URLs
	PDF          string   // Single PDF path (mutually exclusive with Images)
	Prompt       string   // Free-text instruction for the model
	Mode         string   // Explicit mode override: "table" or "text" (optional)
	Output       string   // Artifact path (optional)
	Format       string   // Artifact format override: csv, md, or xlsx (optional)
	Model        string   // Model identifier override (optional)
	Temperature  float64  // Sampling temperature override (optional)
	SchemaPolicy string   // Table header reconciliation policy (optional)
}

// Options carry run dependencies.
type Options struct {
	Config *config.Config
	Home   *home.Dir
	Logger *slog.Logger

	// Client overrides provider construction from config (tests).
	Client providers.VisionClient
}

// Report summarizes a run for the caller. It accounts for every input
// page: succeeded, failed, or omitted from the artifact.
type Report struct {
	RunID      string               `json:"run_id" yaml:"run_id"`
	Mode       extract.Mode         `json:"mode" yaml:"mode"`
	Artifact   string               `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Format     artifact.Format      `json:"format,omitempty" yaml:"format,omitempty"`
	Incomplete bool                 `json:"incomplete" yaml:"incomplete"`
	Pages      []extract.PageResult `json:"pages" yaml:"pages"`
	Duration   time.Duration        `json:"duration" yaml:"duration"`
}

// Run executes one extraction run end to end. Per-page failures are
// recorded in the report; only pre-artifact fatal failures (invalid
// input, global rasterization, auth, unwritable output) return an error.
func Run(ctx context.Context, opts Options, req Request) (*Report, error) {
	start := time.Now()

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	mode, err := extract.InferMode(req.Prompt, req.Mode)
	if err != nil {
		return nil, err
	}

	format, err := artifact.ResolveFormat(mode, req.Format)
	if err != nil {
		return nil, err
	}

	outPath := req.Output
	if outPath == "" {
		outPath = artifact.DefaultPath(format)
	}

	policyName := req.SchemaPolicy
	if policyName == "" {
		policyName = opts.Config.Defaults.SchemaPolicy
	}
	policy, err := aggregate.ParseSchemaPolicy(policyName)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log.Info("starting run", "run_id", runID, "mode", mode, "format", format)

	resolver := &source.Resolver{
		Home:   opts.Home,
		RunID:  runID,
		DPI:    opts.Config.Defaults.RasterDPI,
		Logger: log,
	}
	units, err := resolver.Resolve(ctx, source.Inputs{Images: req.Images, PDF: req.PDF})
	if err != nil {
		var inErr *source.InputError
		if errors.As(err, &inErr) {
			return nil, &extract.FatalError{Kind: extract.KindInvalidInput, Err: err}
		}
		return nil, err
	}
	if req.PDF != "" {
		defer opts.Home.RemovePagesDir(runID)
	}

	client := opts.Client
	if client == nil {
		client, err = buildClient(opts.Config, req.Model)
		if err != nil {
			return nil, err
		}
	}

	reqOpts := extract.Options{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   opts.Config.Defaults.MaxTokens,
	}
	if reqOpts.Temperature == 0 {
		reqOpts.Temperature = opts.Config.Defaults.Temperature
	}

	executor := extract.NewExecutor(client, log)
	results, err := executor.Run(ctx, units, mode, req.Prompt, reqOpts)
	if err != nil {
		return nil, err
	}

	result, err := aggregate.Aggregate(mode, results, policy)
	if err != nil {
		return nil, err
	}

	if err := artifact.Write(outPath, result, format); err != nil {
		return nil, &extract.FatalError{Kind: extract.KindWriteFailed, Err: err}
	}

	report := &Report{
		RunID:      runID,
		Mode:       mode,
		Artifact:   outPath,
		Format:     format,
		Incomplete: !result.Complete(),
		Pages:      result.Pages,
		Duration:   time.Since(start),
	}

	log.Info("run complete",
		"run_id", runID,
		"artifact", outPath,
		"pages", len(report.Pages),
		"incomplete", report.Incomplete,
		"elapsed", report.Duration)

	return report, nil
}

// buildClient constructs the configured provider, resolving ${ENV_VAR}
// references in the API key.
func buildClient(cfg *config.Config, modelOverride string) (providers.VisionClient, error) {
	name := cfg.Defaults.Provider
	pcfg, ok := cfg.GetProvider(name)
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	if !pcfg.Enabled {
		return nil, fmt.Errorf("provider %q is disabled", name)
	}

	model := pcfg.Model
	if modelOverride != "" {
		model = modelOverride
	}

	return providers.FromConfig(providers.Config{
		Type:       pcfg.Type,
		Model:      model,
		APIKey:     config.ResolveEnvVars(pcfg.APIKey),
		BaseURL:    pcfg.BaseURL,
		RateLimit:  pcfg.RateLimit,
		Timeout:    time.Duration(pcfg.TimeoutSeconds) * time.Second,
		MaxRetries: pcfg.MaxRetries,
	})
}
