package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	GroqName    = "groq"
	GroqBaseURL = "https://api.groq.com/openai/v1"
	GroqModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// GroqConfig holds configuration for the Groq client.
type GroqConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	// Rate limiting
	RPM        float64       // Requests per minute (default: 30)
	MaxRetries int           // Max retry attempts for transient failures (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// GroqClient implements VisionClient using the Groq chat completions API.
type GroqClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	// Rate limiting
	rpm        float64
	maxRetries int
	retryDelay time.Duration
}

// NewGroqClient creates a new Groq client.
func NewGroqClient(cfg GroqConfig) *GroqClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GroqBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = GroqModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RPM == 0 {
		cfg.RPM = 30.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &GroqClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rpm:        cfg.RPM,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *GroqClient) Name() string {
	return GroqName
}

// RequestsPerMinute returns the RPM limit for rate limiting.
func (c *GroqClient) RequestsPerMinute() float64 {
	return c.rpm
}

// MaxRetries returns the maximum retry attempts.
func (c *GroqClient) MaxRetries() int {
	return c.maxRetries
}

// RetryDelayBase returns the base delay between retries.
func (c *GroqClient) RetryDelayBase() time.Duration {
	return c.retryDelay
}

// Complete sends a single-image completion request.
func (c *GroqClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	start := time.Now()

	if c.apiKey == "" {
		return nil, &APIError{
			Provider:   GroqName,
			StatusCode: http.StatusUnauthorized,
			Message:    "missing API key",
		}
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	gReq := groqRequest{
		Model:               model,
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxTokens,
	}
	if req.SystemPrompt != "" {
		gReq.Messages = append(gReq.Messages, groqMessage{
			Role:    "system",
			Content: req.SystemPrompt,
		})
	}
	gReq.Messages = append(gReq.Messages, groqMessage{
		Role: "user",
		Content: []groqContent{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &groqImageURL{URL: req.Image.URL}},
		},
	})
	if req.JSONResponse {
		gReq.ResponseFormat = &groqResponseFormat{Type: "json_object"}
	}

	gResp, err := c.doRequest(ctx, "/chat/completions", gReq)
	if err != nil {
		return nil, err
	}

	if len(gResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response (model=%s, id=%s)", gResp.Model, gResp.ID)
	}
	content := gResp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("empty response content (model=%s, id=%s)", gResp.Model, gResp.ID)
	}

	result := &CompletionResult{
		Content:       content,
		Provider:      GroqName,
		ModelUsed:     gResp.Model,
		RequestID:     requestID,
		ExecutionTime: time.Since(start),
	}
	if gResp.Usage != nil {
		result.PromptTokens = gResp.Usage.PromptTokens
		result.CompletionTokens = gResp.Usage.CompletionTokens
		result.TotalTokens = gResp.Usage.TotalTokens
	}

	return result, nil
}

// doRequest makes an HTTP request to the Groq API.
func (c *GroqClient) doRequest(ctx context.Context, path string, body any) (*groqResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			Provider:   GroqName,
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
		var errResp groqErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
		}
		return nil, apiErr
	}

	var gResp groqResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &gResp, nil
}

// Groq API types (OpenAI-compatible chat completions)

type groqRequest struct {
	Model               string              `json:"model"`
	Messages            []groqMessage       `json:"messages"`
	Temperature         float64             `json:"temperature"`
	MaxCompletionTokens int                 `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *groqResponseFormat `json:"response_format,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string for system, []groqContent for user
}

type groqContent struct {
	Type     string        `json:"type"` // "text" or "image_url"
	Text     string        `json:"text,omitempty"`
	ImageURL *groqImageURL `json:"image_url,omitempty"`
}

type groqImageURL struct {
	URL string `json:"url"`
}

type groqResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

type groqResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []groqChoice `json:"choices"`
	Usage   *groqUsage   `json:"usage,omitempty"`
}

type groqChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type groqUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type groqErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Verify interface
var _ VisionClient = (*GroqClient)(nil)
