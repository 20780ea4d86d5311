package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/pagescan/internal/config"
	"github.com/jackzampolin/pagescan/internal/extract"
	"github.com/jackzampolin/pagescan/internal/home"
	"github.com/jackzampolin/pagescan/internal/providers"
)

func testOptions(t *testing.T, client providers.VisionClient) Options {
	t.Helper()
	h, err := home.New(filepath.Join(t.TempDir(), ".pagescan"))
	if err != nil {
		t.Fatalf("failed to create home: %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("failed to ensure home: %v", err)
	}
	return Options{
		Config: config.DefaultConfig(),
		Home:   h,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Client: client,
	}
}

func writeTestImages(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	data := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatalf("failed to write image: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestRunTextMode(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Responses = map[int]string{
		0: "# Page one heading",
		1: "Second page body",
		2: "Third page body",
	}

	images := writeTestImages(t, "a.png", "b.png", "c.png")
	outPath := filepath.Join(t.TempDir(), "out.md")

	report, err := Run(context.Background(), testOptions(t, mock), Request{
		Images: images,
		Prompt: "Transcribe this page",
		Mode:   "text",
		Output: outPath,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Incomplete {
		t.Error("report marked incomplete")
	}
	if report.Mode != extract.ModeText {
		t.Errorf("mode = %s", report.Mode)
	}
	if len(report.Pages) != 3 {
		t.Fatalf("got %d page results, want 3", len(report.Pages))
	}
	for i, p := range report.Pages {
		if !p.Success {
			t.Errorf("page %d failed: %s", i, p.ErrorMessage)
		}
	}
	if mock.RequestCount() != 3 {
		t.Errorf("made %d calls, want 3", mock.RequestCount())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	text := string(data)
	for _, want := range []string{"## Page 1", "## Page 2", "## Page 3", "# Page one heading"} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(text, "Extraction failed") {
		t.Error("markdown contains a failure placeholder for a clean run")
	}
}

func TestRunTableModeWithRateLimit(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Responses = map[int]string{
		0: `{"columns": ["Name", "Amount"], "rows": [["A", "10"]]}`,
	}
	mock.Errors = map[int]error{
		1: &providers.APIError{Provider: "mock", StatusCode: 429, Message: "slow down"},
	}

	images := writeTestImages(t, "p1.png", "p2.png")
	outPath := filepath.Join(t.TempDir(), "out.csv")

	report, err := Run(context.Background(), testOptions(t, mock), Request{
		Images: images,
		Prompt: "Extract the table from this invoice",
		Output: outPath,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Mode inferred from the prompt, no explicit flag.
	if report.Mode != extract.ModeTable {
		t.Errorf("mode = %s, want table", report.Mode)
	}
	if !report.Incomplete {
		t.Error("report should be incomplete after a rate limit")
	}
	if len(report.Pages) != 2 {
		t.Fatalf("got %d page results, want 2", len(report.Pages))
	}
	if !report.Pages[0].Success {
		t.Errorf("page 0 failed: %s", report.Pages[0].ErrorMessage)
	}
	if report.Pages[1].Success || report.Pages[1].ErrorKind != extract.KindRateLimited {
		t.Errorf("page 1 = %+v, want rate_limited failure", report.Pages[1])
	}

	// The partial artifact still carries page 0's rows.
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open artifact: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header plus one row", len(records))
	}
	if records[0][0] != "Name" || records[0][1] != "Amount" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "A" || records[1][1] != "10" {
		t.Errorf("row = %v", records[1])
	}
}

func TestRunFailsFastOnInvalidInput(t *testing.T) {
	mock := providers.NewMockClient()
	outPath := filepath.Join(t.TempDir(), "out.md")

	report, err := Run(context.Background(), testOptions(t, mock), Request{
		Images: []string{"/nonexistent/page.png"},
		Prompt: "Transcribe this page",
		Mode:   "text",
		Output: outPath,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var fatal *extract.FatalError
	if !errors.As(err, &fatal) || fatal.Kind != extract.KindInvalidInput {
		t.Errorf("err = %v, want fatal invalid_input error", err)
	}
	if report != nil {
		t.Error("expected no report")
	}
	if mock.RequestCount() != 0 {
		t.Errorf("made %d calls before failing, want 0", mock.RequestCount())
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Error("artifact written despite fatal input error")
	}
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	images := writeTestImages(t, "a.png")
	_, err := Run(context.Background(), testOptions(t, providers.NewMockClient()), Request{
		Images: images,
	})
	if err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestRunAuthFailureAbortsWithoutArtifact(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Errors = map[int]error{
		0: &providers.APIError{Provider: "mock", StatusCode: 401, Message: "bad key"},
	}

	images := writeTestImages(t, "a.png", "b.png")
	outPath := filepath.Join(t.TempDir(), "out.md")

	_, err := Run(context.Background(), testOptions(t, mock), Request{
		Images: images,
		Prompt: "Transcribe this page",
		Mode:   "text",
		Output: outPath,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var fatal *extract.FatalError
	if !errors.As(err, &fatal) || fatal.Kind != extract.KindAuth {
		t.Errorf("err = %v, want fatal auth error", err)
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Error("artifact written despite auth failure")
	}
	// The second page never triggers a call.
	if mock.RequestCount() != 1 {
		t.Errorf("made %d calls, want 1", mock.RequestCount())
	}
}
