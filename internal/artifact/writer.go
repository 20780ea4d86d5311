// Package artifact serializes aggregation results to disk.
package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/jackzampolin/pagescan/internal/aggregate"
	"github.com/jackzampolin/pagescan/internal/extract"
)

// Format is the on-disk artifact format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatXLSX     Format = "xlsx"
)

// ResolveFormat picks the artifact format for a mode, honoring an
// explicit flag. XLSX is only meaningful for tabular output.
func ResolveFormat(mode extract.Mode, explicit string) (Format, error) {
	if explicit == "" {
		if mode == extract.ModeTable {
			return FormatCSV, nil
		}
		return FormatMarkdown, nil
	}

	switch Format(strings.ToLower(explicit)) {
	case FormatCSV:
		if mode != extract.ModeTable {
			return "", fmt.Errorf("csv format requires table mode")
		}
		return FormatCSV, nil
	case FormatXLSX:
		if mode != extract.ModeTable {
			return "", fmt.Errorf("xlsx format requires table mode")
		}
		return FormatXLSX, nil
	case FormatMarkdown:
		if mode != extract.ModeText {
			return "", fmt.Errorf("md format requires text mode")
		}
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (must be csv, md, or xlsx)", explicit)
	}
}

// DefaultPath returns the default artifact filename for a format,
// relative to the current working directory.
func DefaultPath(format Format) string {
	return "ocr_result." + string(format)
}

// Write serializes the result to the target path. Failures here are
// never swallowed: the caller decides how to surface them.
func Write(path string, result *aggregate.Result, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(path, result.Table)
	case FormatXLSX:
		return writeXLSX(path, result.Table)
	case FormatMarkdown:
		return writeMarkdown(path, result.Sections)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeCSV writes header row first, then one line per row, escaped per
// standard CSV rules.
func writeCSV(path string, table *aggregate.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = runtime.GOOS == "windows"

	if err := w.Write(table.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// writeMarkdown writes sections in page order separated by a visible
// page-boundary marker. Failed pages get an explicit placeholder so
// the document accounts for every input page.
func writeMarkdown(path string, sections []aggregate.Section) error {
	var b strings.Builder
	for i, section := range sections {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "## Page %d (%s)\n\n", section.PageIndex+1, section.Label)
		if section.Failed {
			fmt.Fprintf(&b, "> Extraction failed for this page: %s\n", section.ErrorKind)
		} else {
			b.WriteString(strings.TrimRight(section.Markdown, "\n"))
			b.WriteString("\n")
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
