package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// rasterizerBinary is the external renderer (poppler-utils).
const rasterizerBinary = "pdftoppm"

// CheckRasterizer verifies the external PDF renderer is installed.
func CheckRasterizer() error {
	if _, err := exec.LookPath(rasterizerBinary); err != nil {
		return fmt.Errorf("%s not found in PATH (install poppler-utils): %w", rasterizerBinary, err)
	}
	return nil
}

// PageCount returns the number of physical pages in a PDF.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// resolvePDF rasterizes each page of a PDF into a PageUnit. A missing
// renderer or an unreadable PDF fails the whole run; a single page
// render failure is recorded on that unit's Err and resolution continues.
func (r *Resolver) resolvePDF(ctx context.Context, pdfPath string) ([]PageUnit, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	if _, err := os.Stat(pdfPath); err != nil {
		return nil, &InputError{Input: pdfPath, Reason: "not a readable file"}
	}
	if err := CheckRasterizer(); err != nil {
		return nil, err
	}

	pageCount, err := PageCount(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("unreadable PDF %s: %w", pdfPath, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages: %s", pdfPath)
	}

	if err := r.Home.EnsurePagesDir(r.RunID); err != nil {
		return nil, fmt.Errorf("failed to create pages directory: %w", err)
	}

	dpi := r.DPI
	if dpi == 0 {
		dpi = 300
	}

	log.Info("rasterizing PDF", "path", pdfPath, "pages", pageCount, "dpi", dpi)

	units := make([]PageUnit, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		unit := PageUnit{
			Index:  page - 1,
			Origin: OriginPDFPage,
			Label:  fmt.Sprintf("%s#page=%d", filepath.Base(pdfPath), page),
		}

		outPath := r.Home.PagePath(r.RunID, page)
		if err := renderPage(ctx, pdfPath, outPath, page, dpi); err != nil {
			log.Warn("page render failed", "page", page, "error", err)
			unit.Err = fmt.Errorf("rasterization failed for page %d: %w", page, err)
			units = append(units, unit)
			continue
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			unit.Err = fmt.Errorf("rasterization failed for page %d: %w", page, err)
			units = append(units, unit)
			continue
		}

		unit.Ref = dataURL("image/png", data)
		units = append(units, unit)
	}

	return units, nil
}

// renderPage renders a single PDF page to a PNG using pdftoppm.
func renderPage(ctx context.Context, pdfPath, outPath string, page, dpi int) error {
	tmpDir, err := os.MkdirTemp("", "pagescan-page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// Output prefix for pdftoppm
	outputPrefix := filepath.Join(tmpDir, "page")

	// -png: output PNG format
	// -f N / -l N: first/last page to render
	// -r N: resolution in DPI
	// -singlefile: don't add page number suffix
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.CommandContext(ctx, rasterizerBinary,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", rasterizerBinary, err, string(output))
	}

	// pdftoppm with -singlefile creates: <prefix>.png
	srcPath := outputPrefix + ".png"
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("%s did not create expected output: %w", rasterizerBinary, err)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}

	return nil
}
