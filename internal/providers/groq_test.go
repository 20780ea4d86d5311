package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGroqClient_Complete(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		var captured groqRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}

			resp := groqResponse{
				ID:    "cmpl-1",
				Model: "meta-llama/llama-4-scout-17b-16e-instruct",
				Usage: &groqUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
			}
			var choice groqChoice
			choice.Message.Role = "assistant"
			choice.Message.Content = "# Invoice\n\nTotal: 42.00"
			resp.Choices = []groqChoice{choice}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewGroqClient(GroqConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Complete(context.Background(), &CompletionRequest{
			SystemPrompt: "You are an OCR specialist.",
			Prompt:       "extract the text",
			Image:        ImageRef{URL: "data:image/png;base64,aGVsbG8="},
			Temperature:  0.1,
			MaxTokens:    2048,
		})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}

		if result.Content != "# Invoice\n\nTotal: 42.00" {
			t.Errorf("unexpected content: %q", result.Content)
		}
		if result.TotalTokens != 150 {
			t.Errorf("TotalTokens = %d, want 150", result.TotalTokens)
		}
		if result.Provider != GroqName {
			t.Errorf("Provider = %q", result.Provider)
		}

		// Request shape: system message then user message with text + image parts.
		if len(captured.Messages) != 2 {
			t.Fatalf("got %d messages, want 2", len(captured.Messages))
		}
		if captured.Messages[0].Role != "system" {
			t.Errorf("first message role = %q, want system", captured.Messages[0].Role)
		}
		if captured.Temperature != 0.1 {
			t.Errorf("Temperature = %v, want 0.1", captured.Temperature)
		}
		if captured.MaxCompletionTokens != 2048 {
			t.Errorf("MaxCompletionTokens = %d, want 2048", captured.MaxCompletionTokens)
		}
		parts, ok := captured.Messages[1].Content.([]any)
		if !ok || len(parts) != 2 {
			t.Fatalf("user content = %#v, want 2 parts", captured.Messages[1].Content)
		}
	})

	t.Run("json response format requested in table mode", func(t *testing.T) {
		var captured groqRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&captured)
			var choice groqChoice
			choice.Message.Content = `{"columns":["A"],"rows":[]}`
			json.NewEncoder(w).Encode(groqResponse{Choices: []groqChoice{choice}})
		}))
		defer server.Close()

		client := NewGroqClient(GroqConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), &CompletionRequest{
			Prompt:       "table please",
			Image:        ImageRef{URL: "https://example.com/scan.png"},
			JSONResponse: true,
		})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
			t.Errorf("ResponseFormat = %+v, want json_object", captured.ResponseFormat)
		}
	})

	t.Run("auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		client := NewGroqClient(GroqConfig{APIKey: "bad-key", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), &CompletionRequest{
			Prompt: "p",
			Image:  ImageRef{URL: "https://example.com/scan.png"},
		})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if !apiErr.IsAuth() {
			t.Errorf("expected auth error, got status %d", apiErr.StatusCode)
		}
		if apiErr.Message != "Invalid API Key" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})

	t.Run("missing api key fails without a request", func(t *testing.T) {
		client := NewGroqClient(GroqConfig{BaseURL: "http://localhost:0"})
		_, err := client.Complete(context.Background(), &CompletionRequest{
			Prompt: "p",
			Image:  ImageRef{URL: "https://example.com/scan.png"},
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsAuth() {
			t.Fatalf("expected auth APIError, got %v", err)
		}
	})

	t.Run("rate limit failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"tokens"}}`))
		}))
		defer server.Close()

		client := NewGroqClient(GroqConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), &CompletionRequest{
			Prompt: "p",
			Image:  ImageRef{URL: "https://example.com/scan.png"},
		})

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRateLimited() {
			t.Fatalf("expected rate limit APIError, got %v", err)
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(groqResponse{ID: "cmpl-2", Model: "m"})
		}))
		defer server.Close()

		client := NewGroqClient(GroqConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Complete(context.Background(), &CompletionRequest{
			Prompt: "p",
			Image:  ImageRef{URL: "https://example.com/scan.png"},
		})
		if err == nil || !strings.Contains(err.Error(), "no choices") {
			t.Fatalf("expected empty choices error, got %v", err)
		}
	})
}
