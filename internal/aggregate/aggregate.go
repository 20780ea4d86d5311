// Package aggregate merges ordered per-page extraction results into
// one deterministic result, per mode-specific merge rules.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/jackzampolin/pagescan/internal/extract"
)

// SchemaPolicy controls how table headers are reconciled across pages.
type SchemaPolicy string

const (
	// PolicyFirstPage uses the first successfully parsed page's columns
	// as the authoritative header; later rows are appended verbatim.
	PolicyFirstPage SchemaPolicy = "first-page"

	// PolicyUnion builds the header from the union of all pages'
	// columns (first-seen order) and re-projects every row onto it.
	PolicyUnion SchemaPolicy = "union"

	// PolicyStrict downgrades pages whose columns differ from the
	// first page to malformed.
	PolicyStrict SchemaPolicy = "strict"
)

// ParseSchemaPolicy validates a schema policy name.
func ParseSchemaPolicy(s string) (SchemaPolicy, error) {
	switch SchemaPolicy(s) {
	case PolicyFirstPage, PolicyUnion, PolicyStrict:
		return SchemaPolicy(s), nil
	case "":
		return PolicyFirstPage, nil
	default:
		return "", fmt.Errorf("invalid schema policy %q (must be %q, %q, or %q)",
			s, PolicyFirstPage, PolicyUnion, PolicyStrict)
	}
}

// Table is the merged tabular result.
type Table struct {
	Header []string
	Rows   [][]string
}

// Section is one page's contribution to the text-mode result. Failed
// pages keep their slot so the final document accounts for every page.
type Section struct {
	PageIndex int
	Label     string
	Markdown  string
	Failed    bool
	ErrorKind extract.Kind
}

// Result is the unified aggregation outcome. Pages carries the final
// per-page statuses, including pages downgraded during parsing; it is
// never shorter than the input.
type Result struct {
	Mode     extract.Mode
	Table    *Table    // Set in table mode
	Sections []Section // Set in text mode
	Pages    []extract.PageResult
}

// Complete reports whether every page contributed successfully.
func (r *Result) Complete() bool {
	for _, p := range r.Pages {
		if !p.Success {
			return false
		}
	}
	return true
}

// Aggregate merges the ordered page results for the given mode. Input
// order is normalized by page index, never by completion time. The
// merge is a pure function of its inputs: identical input sequences
// yield identical results.
func Aggregate(mode extract.Mode, results []extract.PageResult, policy SchemaPolicy) (*Result, error) {
	ordered := make([]extract.PageResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	switch mode {
	case extract.ModeTable:
		return aggregateTable(ordered, policy)
	case extract.ModeText:
		return aggregateText(ordered)
	default:
		return nil, fmt.Errorf("unknown mode: %s", mode)
	}
}

// aggregateTable parses each successful page against the table
// contract and merges per the schema policy. Parse failures downgrade
// the page, never abort the run.
func aggregateTable(ordered []extract.PageResult, policy SchemaPolicy) (*Result, error) {
	pages := make([]extract.PageResult, len(ordered))
	copy(pages, ordered)

	var parsed []pageTable
	for i, page := range pages {
		if !page.Success {
			continue
		}
		columns, rows, err := parseTablePayload(page.Text)
		if err != nil {
			pages[i].Success = false
			pages[i].ErrorKind = extract.KindMalformedResponse
			pages[i].ErrorMessage = err.Error()
			continue
		}
		parsed = append(parsed, pageTable{pageIndex: page.Index, columns: columns, rows: rows})
	}

	table := &Table{}
	switch policy {
	case PolicyUnion:
		mergeUnion(table, parsed)
	case PolicyStrict:
		mergeStrict(table, parsed, pages)
	default: // PolicyFirstPage
		mergeFirstPage(table, parsed)
	}

	return &Result{Mode: extract.ModeTable, Table: table, Pages: pages}, nil
}

// mergeFirstPage takes the first parsed page's columns as the header
// and appends all rows in page order, unreconciled.
func mergeFirstPage(table *Table, parsed []pageTable) {
	for i, pt := range parsed {
		if i == 0 {
			table.Header = pt.columns
		}
		table.Rows = append(table.Rows, pt.rows...)
	}
}

// mergeUnion builds the header from all pages' columns in first-seen
// order and re-projects every row onto it.
func mergeUnion(table *Table, parsed []pageTable) {
	seen := make(map[string]int)
	for _, pt := range parsed {
		for _, col := range pt.columns {
			if _, ok := seen[col]; !ok {
				seen[col] = len(table.Header)
				table.Header = append(table.Header, col)
			}
		}
	}

	for _, pt := range parsed {
		for _, row := range pt.rows {
			projected := make([]string, len(table.Header))
			for i, col := range pt.columns {
				if i >= len(row) {
					break
				}
				projected[seen[col]] = row[i]
			}
			table.Rows = append(table.Rows, projected)
		}
	}
}

// mergeStrict keeps only pages whose columns exactly match the first
// parsed page; mismatched pages are downgraded to malformed.
func mergeStrict(table *Table, parsed []pageTable, pages []extract.PageResult) {
	for i, pt := range parsed {
		if i == 0 {
			table.Header = pt.columns
			table.Rows = append(table.Rows, pt.rows...)
			continue
		}
		if !equalColumns(table.Header, pt.columns) {
			downgradePage(pages, pt.pageIndex, fmt.Sprintf(
				"columns %v do not match first page columns %v", pt.columns, table.Header))
			continue
		}
		table.Rows = append(table.Rows, pt.rows...)
	}
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func downgradePage(pages []extract.PageResult, pageIndex int, msg string) {
	for i := range pages {
		if pages[i].Index == pageIndex {
			pages[i].Success = false
			pages[i].ErrorKind = extract.KindMalformedResponse
			pages[i].ErrorMessage = msg
			return
		}
	}
}

// aggregateText concatenates each page's Markdown as an ordered
// section. Failed pages become explicit placeholder sections so the
// final document accounts for every input page.
func aggregateText(ordered []extract.PageResult) (*Result, error) {
	pages := make([]extract.PageResult, len(ordered))
	copy(pages, ordered)

	sections := make([]Section, 0, len(pages))
	for _, page := range pages {
		section := Section{
			PageIndex: page.Index,
			Label:     page.Label,
		}
		if page.Success {
			section.Markdown = page.Text
		} else {
			section.Failed = true
			section.ErrorKind = page.ErrorKind
		}
		sections = append(sections, section)
	}

	return &Result{Mode: extract.ModeText, Sections: sections, Pages: pages}, nil
}
