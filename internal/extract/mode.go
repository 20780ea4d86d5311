package extract

import (
	"fmt"
	"strings"
)

// Mode is the output-shape contract applied uniformly across all pages
// of one run.
type Mode string

const (
	ModeTable Mode = "table"
	ModeText  Mode = "text"
)

// tableVocabulary are prompt terms that indicate tabular extraction.
var tableVocabulary = []string{"table", "csv", "columns", "rows", "spreadsheet", "tabular"}

// ParseMode validates an explicit mode flag.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeTable:
		return ModeTable, nil
	case ModeText:
		return ModeText, nil
	default:
		return "", fmt.Errorf("invalid mode %q (must be %q or %q)", s, ModeTable, ModeText)
	}
}

// InferMode resolves the extraction mode. An explicit flag wins;
// otherwise the prompt is scanned case-insensitively for table terms.
// Prompts matching nothing default to text.
func InferMode(prompt, explicit string) (Mode, error) {
	if explicit != "" {
		return ParseMode(explicit)
	}

	lowered := strings.ToLower(prompt)
	for _, term := range tableVocabulary {
		if strings.Contains(lowered, term) {
			return ModeTable, nil
		}
	}
	return ModeText, nil
}
