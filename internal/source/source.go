// Package source resolves heterogeneous inputs (local images, remote
// image URLs, or a PDF) into an ordered sequence of page units.
package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/pagescan/internal/home"
)

// Origin identifies where a page unit came from.
type Origin string

const (
	OriginLocalPath Origin = "local_path"
	OriginRemoteURL Origin = "remote_url"
	OriginPDFPage   Origin = "pdf_page"
)

// PageUnit is one image-bearing unit of work. Immutable once created.
// Index order is the single source of truth for output ordering.
type PageUnit struct {
	// Index is the 0-based page/image ordinal in intake order.
	Index int

	// Origin identifies the input kind.
	Origin Origin

	// Ref is the image reference sent to the model: a base64 data: URL
	// for local bytes, or the remote URL itself.
	Ref string

	// Label names the input for reports (path, URL, or "file.pdf#page=N").
	Label string

	// Err is set when rasterization failed for this page. The unit still
	// occupies its ordinal so downstream accounting stays complete.
	Err error
}

// InputError reports an input that is neither a readable local image,
// a well-formed http(s) URL, nor a resolvable PDF.
type InputError struct {
	Input  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// Inputs is the raw input set for one run. Images and PDF are mutually
// exclusive.
type Inputs struct {
	Images []string // Local image paths and/or http(s) URLs
	PDF    string   // Single PDF path
}

// Resolver turns Inputs into ordered PageUnits.
type Resolver struct {
	Home   *home.Dir
	RunID  string
	DPI    int // PDF rasterization resolution (default 300)
	Logger *slog.Logger
}

// Resolve produces the ordered PageUnit sequence for the given inputs.
// A malformed image input or a globally failed PDF aborts resolution;
// a single failed page render is carried on the unit's Err instead.
func (r *Resolver) Resolve(ctx context.Context, in Inputs) ([]PageUnit, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	if in.PDF != "" && len(in.Images) > 0 {
		return nil, fmt.Errorf("images and pdf inputs are mutually exclusive")
	}
	if in.PDF == "" && len(in.Images) == 0 {
		return nil, fmt.Errorf("at least one input must be supplied")
	}

	if in.PDF != "" {
		return r.resolvePDF(ctx, in.PDF)
	}

	units := make([]PageUnit, 0, len(in.Images))
	for i, raw := range in.Images {
		raw = strings.TrimSpace(raw)
		unit, err := resolveImage(i, raw)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	log.Debug("resolved inputs", "pages", len(units))
	return units, nil
}

// resolveImage builds a PageUnit for one image path or URL.
func resolveImage(index int, raw string) (PageUnit, error) {
	if raw == "" {
		return PageUnit{}, &InputError{Input: raw, Reason: "empty input"}
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return PageUnit{}, &InputError{Input: raw, Reason: "malformed URL"}
		}
		return PageUnit{
			Index:  index,
			Origin: OriginRemoteURL,
			Ref:    raw,
			Label:  raw,
		}, nil
	}

	ref, err := encodeLocalImage(raw)
	if err != nil {
		return PageUnit{}, err
	}
	return PageUnit{
		Index:  index,
		Origin: OriginLocalPath,
		Ref:    ref,
		Label:  raw,
	}, nil
}

// encodeLocalImage returns a data: URL for a local image file.
func encodeLocalImage(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", &InputError{Input: path, Reason: "not a readable file"}
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", &InputError{Input: path, Reason: "could not determine image MIME type from extension"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &InputError{Input: path, Reason: fmt.Sprintf("read failed: %v", err)}
	}

	return dataURL(mimeType, data), nil
}

// dataURL encodes image bytes as a base64 data: URL.
func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
