// Package watch monitors a drop directory and runs the extraction
// pipeline on newly created images and PDFs.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jackzampolin/pagescan/internal/artifact"
	"github.com/jackzampolin/pagescan/internal/extract"
	"github.com/jackzampolin/pagescan/internal/pipeline"
)

// DefaultSettle is how long to wait after a create event before
// processing, so the file has a chance to finish writing.
const DefaultSettle = 2 * time.Second

// watchable extensions, lowercased.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Config configures a watch session.
type Config struct {
	Dir      string           // Directory to monitor
	Template pipeline.Request // Per-file runs copy this, filling Images/PDF/Output
	Options  pipeline.Options
	Settle   time.Duration // Defaults to DefaultSettle
	Logger   *slog.Logger

	// OnReport is called after each completed run (optional).
	OnReport func(*pipeline.Report)
}

// Run watches the directory until the context is cancelled. Each new
// image or PDF triggers one pipeline run; run failures are logged and
// watching continues.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	settle := cfg.Settle
	if settle == 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
	}

	log.Info("watching for documents", "dir", cfg.Dir)

	processed := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			path := event.Name
			if processed[path] || !isWatchable(path) {
				continue
			}
			processed[path] = true

			// Let the writer finish before reading.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(settle):
			}

			report, err := runFile(ctx, cfg, path)
			if err != nil {
				log.Error("run failed", "file", path, "error", err)
				continue
			}
			log.Info("processed document", "file", path, "artifact", report.Artifact)
			if cfg.OnReport != nil {
				cfg.OnReport(report)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", "error", err)
		}
	}
}

// runFile runs the pipeline for one dropped file, writing the artifact
// next to it.
func runFile(ctx context.Context, cfg Config, path string) (*pipeline.Report, error) {
	req := cfg.Template
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		req.PDF = path
		req.Images = nil
	} else {
		req.Images = []string{path}
		req.PDF = ""
	}

	if req.Output == "" {
		mode, err := extract.InferMode(req.Prompt, req.Mode)
		if err != nil {
			return nil, err
		}
		format, err := artifact.ResolveFormat(mode, req.Format)
		if err != nil {
			return nil, err
		}
		req.Output = strings.TrimSuffix(path, filepath.Ext(path)) + "." + string(format)
	}

	return pipeline.Run(ctx, cfg.Options, req)
}

// isWatchable reports whether the path looks like an image or PDF.
func isWatchable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || imageExts[ext]
}
