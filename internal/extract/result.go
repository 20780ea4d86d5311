// Package extract selects the extraction mode, builds deterministic
// per-page requests, and executes them against a vision provider.
package extract

import (
	"fmt"
	"time"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindRasterization     Kind = "rasterization_failed"
	KindAuth              Kind = "auth"
	KindRateLimited       Kind = "rate_limited"
	KindTransient         Kind = "transient"
	KindMalformedResponse Kind = "malformed_response"
	KindWriteFailed       Kind = "write_failed"
)

// PageResult is the outcome of one page extraction. Produced exactly
// once per page unit and never mutated after creation.
type PageResult struct {
	// Index matches the page unit's ordinal.
	Index int `json:"index" yaml:"index"`

	// Label names the source input for reports.
	Label string `json:"label" yaml:"label"`

	// Success/content
	Success bool   `json:"success" yaml:"success"`
	Text    string `json:"-" yaml:"-"` // Raw model output, uninterpreted

	// Failure info
	ErrorKind    Kind   `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// Stats
	Duration    time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	TotalTokens int           `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`
}

// Failed builds a failed PageResult.
func Failed(index int, label string, kind Kind, msg string) PageResult {
	return PageResult{
		Index:        index,
		Label:        label,
		ErrorKind:    kind,
		ErrorMessage: msg,
	}
}

// FatalError aborts a run before a usable artifact can be produced.
type FatalError struct {
	Kind Kind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
