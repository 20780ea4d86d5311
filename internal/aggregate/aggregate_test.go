package aggregate

import (
	"reflect"
	"testing"

	"github.com/jackzampolin/pagescan/internal/extract"
)

func okPage(index int, text string) extract.PageResult {
	return extract.PageResult{Index: index, Label: "page", Success: true, Text: text}
}

func TestAggregateTable(t *testing.T) {
	t.Run("first-page policy keeps first header", func(t *testing.T) {
		results := []extract.PageResult{
			okPage(0, `{"columns":["Name","Amount"],"rows":[["A","10"]]}`),
			okPage(1, `{"columns":["Name","Total"],"rows":[["B","20"]]}`),
		}

		agg, err := Aggregate(extract.ModeTable, results, PolicyFirstPage)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if !reflect.DeepEqual(agg.Table.Header, []string{"Name", "Amount"}) {
			t.Errorf("header = %v", agg.Table.Header)
		}
		// Later rows are appended even though the column names drifted.
		if len(agg.Table.Rows) != 2 {
			t.Errorf("rows = %v", agg.Table.Rows)
		}
		if !agg.Complete() {
			t.Error("expected complete result")
		}
	})

	t.Run("union policy merges headers and re-projects rows", func(t *testing.T) {
		results := []extract.PageResult{
			okPage(0, `{"columns":["Name","Amount"],"rows":[["A","10"]]}`),
			okPage(1, `{"columns":["Name","Total"],"rows":[["B","20"]]}`),
		}

		agg, err := Aggregate(extract.ModeTable, results, PolicyUnion)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if !reflect.DeepEqual(agg.Table.Header, []string{"Name", "Amount", "Total"}) {
			t.Errorf("header = %v", agg.Table.Header)
		}
		if !reflect.DeepEqual(agg.Table.Rows[0], []string{"A", "10", ""}) {
			t.Errorf("rows[0] = %v", agg.Table.Rows[0])
		}
		if !reflect.DeepEqual(agg.Table.Rows[1], []string{"B", "", "20"}) {
			t.Errorf("rows[1] = %v", agg.Table.Rows[1])
		}
	})

	t.Run("strict policy downgrades drifted pages", func(t *testing.T) {
		results := []extract.PageResult{
			okPage(0, `{"columns":["Name","Amount"],"rows":[["A","10"]]}`),
			okPage(1, `{"columns":["Name","Total"],"rows":[["B","20"]]}`),
		}

		agg, err := Aggregate(extract.ModeTable, results, PolicyStrict)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if len(agg.Table.Rows) != 1 {
			t.Errorf("rows = %v", agg.Table.Rows)
		}
		if agg.Pages[1].Success || agg.Pages[1].ErrorKind != extract.KindMalformedResponse {
			t.Errorf("page 1 = %+v, want malformed downgrade", agg.Pages[1])
		}
	})

	t.Run("unparseable page downgraded, run continues", func(t *testing.T) {
		results := []extract.PageResult{
			okPage(0, "not json at all"),
			okPage(1, `{"columns":["Name"],"rows":[["B"]]}`),
		}

		agg, err := Aggregate(extract.ModeTable, results, PolicyFirstPage)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if agg.Pages[0].Success || agg.Pages[0].ErrorKind != extract.KindMalformedResponse {
			t.Errorf("page 0 = %+v, want malformed downgrade", agg.Pages[0])
		}
		// Header comes from the first page that parsed.
		if !reflect.DeepEqual(agg.Table.Header, []string{"Name"}) {
			t.Errorf("header = %v", agg.Table.Header)
		}
		if agg.Complete() {
			t.Error("result must not report complete")
		}
	})

	t.Run("failed pages omitted from rows but kept in page statuses", func(t *testing.T) {
		results := []extract.PageResult{
			okPage(0, `{"columns":["Name","Amount"],"rows":[["A","10"]]}`),
			extract.Failed(1, "page", extract.KindRateLimited, "quota exceeded"),
		}

		agg, err := Aggregate(extract.ModeTable, results, PolicyFirstPage)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if len(agg.Table.Rows) != 1 {
			t.Errorf("rows = %v", agg.Table.Rows)
		}
		if len(agg.Pages) != 2 {
			t.Fatalf("pages = %d, want 2", len(agg.Pages))
		}
		if agg.Pages[1].ErrorKind != extract.KindRateLimited {
			t.Errorf("page 1 kind = %v", agg.Pages[1].ErrorKind)
		}
	})
}

func TestAggregateText(t *testing.T) {
	t.Run("sections in index order with failure placeholders", func(t *testing.T) {
		results := []extract.PageResult{
			okPage(0, "# Page one"),
			extract.Failed(1, "page", extract.KindTransient, "timeout"),
			okPage(2, "# Page three"),
		}

		agg, err := Aggregate(extract.ModeText, results, PolicyFirstPage)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if len(agg.Sections) != 3 {
			t.Fatalf("sections = %d, want 3", len(agg.Sections))
		}
		if agg.Sections[0].Markdown != "# Page one" || agg.Sections[0].Failed {
			t.Errorf("section 0 = %+v", agg.Sections[0])
		}
		if !agg.Sections[1].Failed || agg.Sections[1].ErrorKind != extract.KindTransient {
			t.Errorf("section 1 = %+v, want failure placeholder", agg.Sections[1])
		}
		if agg.Sections[2].PageIndex != 2 {
			t.Errorf("section 2 index = %d", agg.Sections[2].PageIndex)
		}
	})
}

func TestAggregateOrdering(t *testing.T) {
	// Results arriving out of index order are normalized by page index.
	results := []extract.PageResult{
		okPage(2, "# C"),
		okPage(0, "# A"),
		okPage(1, "# B"),
	}

	agg, err := Aggregate(extract.ModeText, results, PolicyFirstPage)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	for i, s := range agg.Sections {
		if s.PageIndex != i {
			t.Errorf("sections[%d].PageIndex = %d", i, s.PageIndex)
		}
	}
}

func TestAggregateIdempotent(t *testing.T) {
	results := []extract.PageResult{
		okPage(0, `{"columns":["Name"],"rows":[["A"]]}`),
		okPage(1, "garbage"),
		extract.Failed(2, "page", extract.KindTransient, "timeout"),
	}

	first, err := Aggregate(extract.ModeTable, results, PolicyFirstPage)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	second, err := Aggregate(extract.ModeTable, results, PolicyFirstPage)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("re-aggregating identical input must yield identical output")
	}
}

func TestAggregateAccountsForEveryPage(t *testing.T) {
	for _, mode := range []extract.Mode{extract.ModeTable, extract.ModeText} {
		results := []extract.PageResult{
			okPage(0, `{"columns":["A"],"rows":[]}`),
			extract.Failed(1, "p", extract.KindTransient, "x"),
			okPage(2, "bad json"),
			extract.Failed(3, "p", extract.KindRasterization, "y"),
		}

		agg, err := Aggregate(mode, results, PolicyFirstPage)
		if err != nil {
			t.Fatalf("Aggregate(%s) error = %v", mode, err)
		}
		if len(agg.Pages) != len(results) {
			t.Errorf("mode %s: pages = %d, want %d", mode, len(agg.Pages), len(results))
		}
		if mode == extract.ModeText && len(agg.Sections) != len(results) {
			t.Errorf("sections = %d, want %d", len(agg.Sections), len(results))
		}
	}
}
