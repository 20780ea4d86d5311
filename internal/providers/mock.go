package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a VisionClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ResponseText string
	// Responses maps a 0-based call number to a canned response,
	// overriding ResponseText for that call.
	Responses map[int]string
	// Errors maps a 0-based call number to an error returned for that call.
	Errors map[int]error

	// Rate limiting
	RPM        float64
	Retries    int
	RetryDelay time.Duration

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
		RPM:          6000,
		Retries:      1,
		RetryDelay:   time.Millisecond,
	}
}

// Name returns the client identifier.
func (m *MockClient) Name() string {
	return MockClientName
}

// RequestsPerMinute returns the RPM limit.
func (m *MockClient) RequestsPerMinute() float64 {
	return m.RPM
}

// MaxRetries returns the retry attempt limit.
func (m *MockClient) MaxRetries() int {
	return m.Retries
}

// RetryDelayBase returns the base retry delay.
func (m *MockClient) RetryDelayBase() time.Duration {
	return m.RetryDelay
}

// RequestCount returns the number of Complete calls made.
func (m *MockClient) RequestCount() int {
	return int(m.requestCount.Load())
}

// Complete returns the scripted response for this call number.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	call := int(m.requestCount.Add(1)) - 1

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}

	if err, ok := m.Errors[call]; ok {
		return nil, err
	}

	content := m.ResponseText
	if r, ok := m.Responses[call]; ok {
		content = r
	}

	return &CompletionResult{
		Content:          content,
		Provider:         MockClientName,
		ModelUsed:        "mock-model",
		RequestID:        fmt.Sprintf("mock-%d", call),
		PromptTokens:     10,
		CompletionTokens: 20,
		TotalTokens:      30,
		ExecutionTime:    m.Latency,
	}, nil
}

// Verify interface
var _ VisionClient = (*MockClient)(nil)
