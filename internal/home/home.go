// Package home manages the pagescan home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the pagescan home directory.
	DefaultDirName = ".pagescan"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// PagesDirName is the subdirectory for rasterized PDF pages.
	PagesDirName = "pages"
)

// Dir represents the pagescan home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.pagescan).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// PagesDir returns the directory holding rasterized pages for a run.
func (d *Dir) PagesDir(runID string) string {
	return filepath.Join(d.path, PagesDirName, runID)
}

// PagePath returns the path to a specific rasterized page image.
// Page numbers are 1-indexed.
func (d *Dir) PagePath(runID string, pageNum int) string {
	return filepath.Join(d.PagesDir(runID), fmt.Sprintf("page_%04d.png", pageNum))
}

// EnsureExists creates the home directory if it doesn't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// EnsurePagesDir creates the rasterized pages directory for a run.
func (d *Dir) EnsurePagesDir(runID string) error {
	return os.MkdirAll(d.PagesDir(runID), 0o755)
}

// RemovePagesDir deletes the rasterized pages for a run.
func (d *Dir) RemovePagesDir(runID string) error {
	return os.RemoveAll(d.PagesDir(runID))
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
