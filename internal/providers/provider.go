package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// VisionClient is the interface for multimodal completion providers.
// One request carries exactly one image plus an instruction prompt.
type VisionClient interface {
	// Complete sends a single-image completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)

	// Name returns the provider identifier (e.g., "groq").
	Name() string

	// Rate limiting properties
	RequestsPerMinute() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// ImageRef references an image for a vision request. URL is either a
// base64 data: URL for local bytes or a plain http(s) URL passed through
// to the provider.
type ImageRef struct {
	URL string `json:"url"`
}

// CompletionRequest is a single-image extraction request.
type CompletionRequest struct {
	// Prompts
	SystemPrompt string `json:"system_prompt,omitempty"`
	Prompt       string `json:"prompt"`

	// Image payload
	Image ImageRef `json:"image"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// JSONResponse requests a JSON object response from the provider.
	JSONResponse bool `json:"json_response,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// CompletionResult is the response from a vision completion call.
type CompletionResult struct {
	// Response content
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
}

// APIError is a provider API failure with its HTTP status code, so
// callers can distinguish auth, quota, and transient failures.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsAuth reports whether the error is an authentication/authorization failure.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited reports whether the error is a rate/quota failure.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsPayloadTooLarge reports whether the request payload was rejected for size.
func (e *APIError) IsPayloadTooLarge() bool {
	return e.StatusCode == http.StatusRequestEntityTooLarge
}

// Config describes a provider instance to construct.
type Config struct {
	Type       string
	Model      string
	APIKey     string
	BaseURL    string
	RateLimit  float64 // Requests per minute
	Timeout    time.Duration
	MaxRetries int
}

// FromConfig constructs a VisionClient for the given provider config.
func FromConfig(cfg Config) (VisionClient, error) {
	switch cfg.Type {
	case GroqName:
		return NewGroqClient(GroqConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RPM:          cfg.RateLimit,
			MaxRetries:   cfg.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}
