package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/table_response.json
var tableResponseSchema []byte

var (
	tableSchemaOnce sync.Once
	tableSchema     *jsonschema.Schema
	tableSchemaErr  error
)

// compiledTableSchema compiles the embedded table response schema once.
func compiledTableSchema() (*jsonschema.Schema, error) {
	tableSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("table_response.json", bytes.NewReader(tableResponseSchema)); err != nil {
			tableSchemaErr = fmt.Errorf("failed to load table response schema: %w", err)
			return
		}
		tableSchema, tableSchemaErr = compiler.Compile("table_response.json")
	})
	return tableSchema, tableSchemaErr
}

// pageTable is one page's parsed tabular contribution.
type pageTable struct {
	pageIndex int
	columns   []string
	rows      [][]string
}

// parseTablePayload parses one page's raw response against the
// columns/rows contract. A bare JSON array of row objects is accepted
// as a fallback: columns become the sorted union of keys.
func parseTablePayload(raw string) ([]string, [][]string, error) {
	candidate, err := extractJSONCandidate(raw)
	if err != nil {
		return nil, nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	switch v := doc.(type) {
	case map[string]any:
		schema, err := compiledTableSchema()
		if err != nil {
			return nil, nil, err
		}
		if err := schema.Validate(v); err != nil {
			return nil, nil, fmt.Errorf("response does not match the columns/rows contract: %w", err)
		}
		return parseColumnsRows(v)
	case []any:
		return parseRowObjects(v)
	default:
		return nil, nil, fmt.Errorf("unexpected JSON structure: expected object or array, got %T", doc)
	}
}

// parseColumnsRows extracts a schema-validated columns/rows object.
func parseColumnsRows(doc map[string]any) ([]string, [][]string, error) {
	rawCols := doc["columns"].([]any)
	columns := make([]string, len(rawCols))
	for i, c := range rawCols {
		columns[i] = formatCell(c)
	}

	rawRows := doc["rows"].([]any)
	rows := make([][]string, 0, len(rawRows))
	for _, rr := range rawRows {
		rowVals, ok := rr.([]any)
		if !ok {
			return nil, nil, fmt.Errorf("row is not an array")
		}
		row := make([]string, len(rowVals))
		for i, v := range rowVals {
			row[i] = formatCell(v)
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}

// parseRowObjects handles the list-of-row-objects fallback shape.
func parseRowObjects(items []any) ([]string, [][]string, error) {
	keySet := make(map[string]struct{})
	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("array items must be objects, got %T", item)
		}
		objects = append(objects, obj)
		for k := range obj {
			keySet[k] = struct{}{}
		}
	}

	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := obj[col]; ok {
				row[i] = formatCell(v)
			}
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}

// formatCell renders a JSON value as a CSV-ready string.
func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprintf("%v", c)
		}
		return string(b)
	}
}

// extractJSONCandidate recovers a JSON document from model output that
// may be wrapped in markdown code fences or surrounding prose.
func extractJSONCandidate(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("empty response")
	}

	if stripped := stripCodeFences(trimmed); stripped != "" {
		trimmed = stripped
	}

	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start := -1
	closeChar := ""
	switch {
	case objectStart >= 0 && (arrayStart < 0 || objectStart < arrayStart):
		start = objectStart
		closeChar = "}"
	case arrayStart >= 0:
		start = arrayStart
		closeChar = "]"
	default:
		return "", fmt.Errorf("no JSON document found in response")
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return "", fmt.Errorf("no JSON document found in response")
	}
	return strings.TrimSpace(trimmed[start : end+1]), nil
}

func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
