package explorer

import (
	"fmt"
	"testing"

	"github.com/rivo/tview"

	"github.com/kadirbelkuyu/tableadmin/internal/rows"
)

func sampleResult(n int) *rows.ResultSet {
	result := &rows.ResultSet{Columns: []string{"id", "name"}, Rows: []rows.Row{}}
	for i := 1; i <= n; i++ {
		result.Rows = append(result.Rows, rows.Row{"id": int64(i), "name": fmt.Sprintf("pet-%d", i)})
	}
	return result
}

func TestPreviewCellsLimit(t *testing.T) {
	cells := previewCells(sampleResult(5), 3)
	if len(cells) != 3 {
		t.Fatalf("expected 3 preview rows, got %d", len(cells))
	}
	if cells[2][1] != "pet-3" {
		t.Fatalf("unexpected cell %q", cells[2][1])
	}

	if got := len(previewCells(sampleResult(2), 200)); got != 2 {
		t.Fatalf("expected all rows below the limit, got %d", got)
	}
}

func TestRowID(t *testing.T) {
	result := sampleResult(2)

	id, ok := rowID(result, 1)
	if !ok || id != "2" {
		t.Fatalf("rowID(1) = %q, %v", id, ok)
	}

	for _, index := range []int{-1, 2} {
		if _, ok := rowID(result, index); ok {
			t.Fatalf("expected no id at index %d", index)
		}
	}
	if _, ok := rowID(nil, 0); ok {
		t.Fatalf("expected no id without a result")
	}

	noKey := &rows.ResultSet{Columns: []string{"name"}, Rows: []rows.Row{{"name": "Rex"}}}
	if _, ok := rowID(noKey, 0); ok {
		t.Fatalf("expected no id for tables without an id column")
	}
}

func TestFillTable(t *testing.T) {
	view := tview.NewTable()
	fillTable(view, []string{"id", "name"}, [][]string{{"1", "[red]Rex"}})

	if view.GetRowCount() != 2 || view.GetColumnCount() != 2 {
		t.Fatalf("unexpected size %dx%d", view.GetRowCount(), view.GetColumnCount())
	}
	if got := view.GetCell(0, 1).Text; got != "name" {
		t.Fatalf("unexpected header %q", got)
	}
	if got := view.GetCell(1, 1).Text; got != tview.Escape("[red]Rex") {
		t.Fatalf("cell text must be escaped, got %q", got)
	}
}

func TestQueueUpdateBeforeRun(t *testing.T) {
	called := false
	queueUpdate(tview.NewApplication(), func() { called = true })
	if !called {
		t.Fatalf("expected the update to run directly when the application is not running")
	}

	called = false
	queueUpdate(nil, func() { called = true })
	if !called {
		t.Fatalf("expected the update to run without an application")
	}
}

func TestDeleteTarget(t *testing.T) {
	result := sampleResult(2)

	table, id, err := deleteTarget(result, "pets", "pets", 1)
	if err != nil || table != "pets" || id != "2" {
		t.Fatalf("deleteTarget = %q, %q, %v", table, id, err)
	}

	if _, _, err := deleteTarget(result, "", "pets", 0); err == nil {
		t.Fatalf("expected console results to be refused")
	}
	if _, _, err := deleteTarget(result, "owners", "pets", 0); err == nil {
		t.Fatalf("expected a preview of another table to be refused")
	}
	if _, _, err := deleteTarget(result, "pets", "pets", 5); err == nil {
		t.Fatalf("expected a row outside the result to be refused")
	}
}

func TestRenderKeepsSourceOfLatestLoad(t *testing.T) {
	e := &Explorer{preview: tview.NewTable(), meta: tview.NewTextView()}
	describe := func(*rows.ResultSet) string { return "" }

	e.render("pets", "", func() (*rows.ResultSet, error) { return sampleResult(1), nil }, describe)
	if e.source != "pets" || e.current == nil {
		t.Fatalf("expected pets preview, got source %q", e.source)
	}

	e.render("", "", func() (*rows.ResultSet, error) { return sampleResult(3), nil }, describe)
	if e.source != "" || len(e.current.Rows) != 3 {
		t.Fatalf("expected console result without a source, got %q", e.source)
	}
	if _, _, err := deleteTarget(e.current, e.source, "pets", 0); err == nil {
		t.Fatalf("expected delete to be refused after a console query")
	}
}
