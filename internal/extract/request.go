package extract

import (
	"github.com/jackzampolin/pagescan/internal/providers"
	"github.com/jackzampolin/pagescan/internal/source"
)

const (
	// DefaultTemperature keeps response variance low across
	// otherwise-identical pages.
	DefaultTemperature = 0.1

	// DefaultMaxTokens bounds the completion length per page.
	DefaultMaxTokens = 2048
)

const (
	tableSystemPrompt = "You are an OCR specialist. Extract tabular data from images and respond " +
		"with a JSON object containing a 'columns' array and a 'rows' array. Each " +
		"entry in 'rows' must match the length and ordering of 'columns'."

	textSystemPrompt = "You are an OCR specialist. Extract textual content from images and " +
		"respond in clear Markdown with sections, lists, and code fences when " +
		"appropriate."

	tableResponseContract = "Respond with a JSON object containing a 'columns' array and a 'rows' " +
		"array where each row has the same length and ordering as 'columns'."

	textResponseContract = "Respond with the extracted content formatted as Markdown."
)

// Request is one deterministic per-page extraction request.
type Request struct {
	PageIndex  int
	Label      string
	Completion providers.CompletionRequest
}

// Options tune request construction.
type Options struct {
	Model       string
	Temperature float64 // Defaults to DefaultTemperature when zero
	MaxTokens   int     // Defaults to DefaultMaxTokens when zero
}

// BuildRequest constructs the extraction request for one page unit.
// The response contract is appended after the user instruction so user
// intent keeps priority while format stays constrained.
func BuildRequest(unit source.PageUnit, mode Mode, prompt string, opts Options) Request {
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	systemPrompt := textSystemPrompt
	contract := textResponseContract
	jsonResponse := false
	if mode == ModeTable {
		systemPrompt = tableSystemPrompt
		contract = tableResponseContract
		jsonResponse = true
	}

	return Request{
		PageIndex: unit.Index,
		Label:     unit.Label,
		Completion: providers.CompletionRequest{
			SystemPrompt: systemPrompt,
			Prompt:       prompt + "\n\n" + contract,
			Image:        providers.ImageRef{URL: unit.Ref},
			Model:        opts.Model,
			Temperature:  temperature,
			MaxTokens:    maxTokens,
			JSONResponse: jsonResponse,
		},
	}
}
