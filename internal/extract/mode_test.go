package extract

import "testing"

func TestInferMode(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		explicit string
		want     Mode
	}{
		{name: "explicit table overrides text prompt", prompt: "extract the text", explicit: "table", want: ModeTable},
		{name: "explicit text overrides table prompt", prompt: "extract the table", explicit: "text", want: ModeText},
		{name: "table keyword", prompt: "Extract the table from this receipt", want: ModeTable},
		{name: "csv keyword", prompt: "give me a CSV of the line items", want: ModeTable},
		{name: "columns and rows", prompt: "Return JSON columns and rows for this invoice", want: ModeTable},
		{name: "spreadsheet keyword", prompt: "turn this into a Spreadsheet", want: ModeTable},
		{name: "plain text prompt", prompt: "transcribe this page", want: ModeText},
		{name: "ambiguous prompt defaults to text", prompt: "what does this say", want: ModeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InferMode(tt.prompt, tt.explicit)
			if err != nil {
				t.Fatalf("InferMode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("InferMode(%q, %q) = %v, want %v", tt.prompt, tt.explicit, got, tt.want)
			}
		})
	}
}

func TestInferModeDeterministic(t *testing.T) {
	prompt := "pull the totals out of this statement"
	first, err := InferMode(prompt, "")
	if err != nil {
		t.Fatalf("InferMode() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := InferMode(prompt, "")
		if err != nil {
			t.Fatalf("InferMode() error = %v", err)
		}
		if got != first {
			t.Fatalf("InferMode not deterministic: got %v then %v", first, got)
		}
	}
}

func TestParseModeInvalid(t *testing.T) {
	if _, err := ParseMode("markdown"); err == nil {
		t.Error("expected error for invalid mode")
	}
	if _, err := InferMode("anything", "markdown"); err == nil {
		t.Error("expected error for invalid explicit mode")
	}
}
