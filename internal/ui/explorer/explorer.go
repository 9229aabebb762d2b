// Package explorer is a terminal browser for the administered tables.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
)

const previewLimit = 200

const helpText = "':' run SQL • '/' search • 'd' delete row • 'r' refresh • 'q' exit"

// Backend is the part of the admin service the explorer needs.
type Backend interface {
	ListTables(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, table string) (*rows.ResultSet, error)
	SearchRowsByColumn(ctx context.Context, table, column, term string) (*rows.ResultSet, error)
	DeleteRow(ctx context.Context, table, id string) error
}

// QueryRunner executes free-form SQL typed into the explorer.
type QueryRunner interface {
	Execute(ctx context.Context, text string) (*rows.ResultSet, error)
}

type Explorer struct {
	backend Backend
	queries QueryRunner
	title   string

	app     *tview.Application
	pages   *tview.Pages
	list    *tview.List
	preview *tview.Table
	meta    *tview.TextView

	mu     sync.Mutex
	tables []string
	// current is the result shown in the preview; source names the table
	// its rows come from and is empty for SQL console results.
	current *rows.ResultSet
	source  string
	loads   uint64
}

func New(backend Backend, queries QueryRunner, title string) *Explorer {
	return &Explorer{backend: backend, queries: queries, title: title}
}

// Run blocks until the user quits.
func (e *Explorer) Run(ctx context.Context) error {
	e.app = tview.NewApplication()
	e.list = tview.NewList().ShowSecondaryText(false)
	e.preview = tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	e.meta = tview.NewTextView().SetDynamicColors(true)
	e.pages = tview.NewPages()

	e.list.AddItem("Loading tables…", "", 0, nil)
	e.meta.SetText("Connecting…")

	e.list.SetChangedFunc(func(index int, _, _ string, _ rune) {
		e.showTable(ctx, index)
	})

	var loadOnce sync.Once
	e.app.SetBeforeDrawFunc(func(tcell.Screen) bool {
		loadOnce.Do(func() { go e.loadTables(ctx) })
		return false
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(e.list.SetBorder(true).SetTitle("Tables"), 30, 1, true).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(e.preview.SetBorder(true).SetTitle("Preview"), 0, 3, false).
			AddItem(e.meta.SetBorder(true).SetTitle("Details"), 7, 1, false),
			0, 3, false)
	e.pages.AddPage("main", layout, true, true)

	e.app.SetRoot(e.pages, true).SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if e.pages.GetPageCount() > 1 {
			return event
		}
		if event.Key() == tcell.KeyTab {
			if e.list.HasFocus() {
				e.app.SetFocus(e.preview)
			} else {
				e.app.SetFocus(e.list)
			}
			return nil
		}
		if event.Key() != tcell.KeyRune {
			return event
		}
		switch event.Rune() {
		case 'q', 'Q':
			e.app.Stop()
		case 'r', 'R':
			e.showTable(ctx, e.list.GetCurrentItem())
		case ':':
			e.showSQLModal(ctx)
		case '/':
			e.showSearchModal(ctx)
		case 'd', 'D':
			e.confirmDelete(ctx)
		default:
			return event
		}
		return nil
	})

	if err := e.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (e *Explorer) loadTables(ctx context.Context) {
	loaded, err := e.backend.ListTables(ctx)
	queueUpdate(e.app, func() {
		e.list.Clear()
		switch {
		case err != nil:
			e.list.AddItem("Failed to load tables", "", 0, nil)
			e.meta.SetText(fmt.Sprintf("[red]%s", tview.Escape(err.Error())))
		case len(loaded) == 0:
			e.list.AddItem("No tables found", "", 0, nil)
			e.meta.SetText(fmt.Sprintf("No tables in %s", e.title))
		default:
			e.mu.Lock()
			e.tables = loaded
			e.mu.Unlock()
			for _, table := range loaded {
				e.list.AddItem(table, "", 0, nil)
			}
			e.list.SetCurrentItem(0)
			e.meta.SetText("[::b]Select a table to inspect.[-:-:-]\n" + helpText)
		}
	})
	if err == nil && len(loaded) > 0 {
		e.showTable(ctx, 0)
	}
}

func (e *Explorer) tableAt(index int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.tables) {
		return "", false
	}
	return e.tables[index], true
}

func (e *Explorer) currentTable() (string, bool) {
	return e.tableAt(e.list.GetCurrentItem())
}

func (e *Explorer) showTable(ctx context.Context, index int) {
	table, ok := e.tableAt(index)
	if !ok {
		return
	}
	go e.render(table, fmt.Sprintf("Loading %s …", table), func() (*rows.ResultSet, error) {
		return e.backend.GetTableData(ctx, table)
	}, func(result *rows.ResultSet) string {
		return fmt.Sprintf("[::b]%s[-:-:-]\nRows: %d\n%s", table, len(result.Rows), helpText)
	})
}

// render loads a result in the background and puts it into the preview.
// source is the table the rows belong to, empty for console results. A load
// overtaken by a later one is discarded.
func (e *Explorer) render(source, loading string, load func() (*rows.ResultSet, error), describe func(*rows.ResultSet) string) {
	e.mu.Lock()
	e.loads++
	seq := e.loads
	e.mu.Unlock()

	queueUpdate(e.app, func() {
		e.meta.SetText(loading)
	})

	result, err := load()

	e.mu.Lock()
	latest := seq == e.loads
	if latest && err == nil {
		e.current = result
		e.source = source
	}
	e.mu.Unlock()
	if !latest {
		return
	}

	if err != nil {
		queueUpdate(e.app, func() {
			e.meta.SetText(fmt.Sprintf("[red]%s", tview.Escape(err.Error())))
		})
		return
	}

	queueUpdate(e.app, func() {
		fillTable(e.preview, result.Columns, previewCells(result, previewLimit))
		e.meta.SetText(describe(result))
	})
}

func (e *Explorer) showSQLModal(ctx context.Context) {
	const modalName = "sql"
	if e.queries == nil {
		e.meta.SetText("[yellow]SQL console is not available.")
		return
	}

	input := tview.NewInputField().SetLabel("SQL> ").SetFieldWidth(80)
	info := tview.NewTextView().
		SetDynamicColors(true).
		SetText(fmt.Sprintf("Results render inside the preview (max %d rows).\nOther statements execute immediately.", previewLimit))

	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Run", func() {
			sqlText := strings.TrimSpace(input.GetText())
			e.closeModal(modalName)
			if sqlText == "" {
				return
			}
			go e.render("", "Running query…", func() (*rows.ResultSet, error) {
				return e.queries.Execute(ctx, sqlText)
			}, func(result *rows.ResultSet) string {
				if len(result.Columns) == 0 {
					return "[green]Statement executed.[-:-:-]"
				}
				return fmt.Sprintf("[::b]Query result[-:-:-]\nRows returned: %d", len(result.Rows))
			})
		}).
		AddButton("Cancel", func() { e.closeModal(modalName) })
	form.SetBorder(true).SetTitle("Execute SQL")

	wrapper := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(info, 3, 1, false).
		AddItem(form, 0, 2, true)

	e.pages.AddPage(modalName, newModal(wrapper, 100, 12), true, true)
	e.app.SetFocus(input)
}

func (e *Explorer) showSearchModal(ctx context.Context) {
	const modalName = "search"
	table, ok := e.currentTable()
	if !ok {
		return
	}

	column := tview.NewInputField().SetLabel("Column ").SetFieldWidth(40)
	term := tview.NewInputField().SetLabel("Contains ").SetFieldWidth(40)

	form := tview.NewForm().
		AddFormItem(column).
		AddFormItem(term).
		AddButton("Search", func() {
			col := strings.TrimSpace(column.GetText())
			text := term.GetText()
			e.closeModal(modalName)
			if col == "" {
				return
			}
			go e.render(table, fmt.Sprintf("Searching %s.%s …", table, col), func() (*rows.ResultSet, error) {
				return e.backend.SearchRowsByColumn(ctx, table, col, text)
			}, func(result *rows.ResultSet) string {
				return fmt.Sprintf("[::b]%s[-:-:-] where %s contains %q\nMatches: %d\n%s",
					table, tview.Escape(col), tview.Escape(text), len(result.Rows), helpText)
			})
		}).
		AddButton("Cancel", func() { e.closeModal(modalName) })
	form.SetBorder(true).SetTitle("Search " + table)

	e.pages.AddPage(modalName, newModal(form, 60, 9), true, true)
	e.app.SetFocus(column)
}

func (e *Explorer) confirmDelete(ctx context.Context) {
	const modalName = "delete"
	selected, ok := e.currentTable()
	if !ok {
		return
	}

	row, _ := e.preview.GetSelection()
	e.mu.Lock()
	table, id, err := deleteTarget(e.current, e.source, selected, row-1)
	e.mu.Unlock()
	if err != nil {
		e.meta.SetText(fmt.Sprintf("[yellow]%s", tview.Escape(err.Error())))
		return
	}

	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete row %s from %s?", id, table)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			e.closeModal(modalName)
			if label != "Delete" {
				return
			}
			index := e.list.GetCurrentItem()
			go func() {
				if err := e.backend.DeleteRow(ctx, table, id); err != nil {
					queueUpdate(e.app, func() {
						e.meta.SetText(fmt.Sprintf("[red]%s", tview.Escape(err.Error())))
					})
					return
				}
				e.showTable(ctx, index)
			}()
		})

	e.pages.AddPage(modalName, modal, true, true)
}

func (e *Explorer) closeModal(name string) {
	e.pages.RemovePage(name)
	e.app.SetFocus(e.list)
}

// previewCells renders at most limit rows of result.
func previewCells(result *rows.ResultSet, limit int) [][]string {
	cells := result.Strings()
	if limit > 0 && len(cells) > limit {
		cells = cells[:limit]
	}
	return cells
}

// deleteTarget resolves which table and id a delete of the index-th preview
// row addresses. Rows are only deletable while the preview shows rows of the
// table selected in the list.
func deleteTarget(result *rows.ResultSet, source, selected string, index int) (string, string, error) {
	if source == "" {
		return "", "", errors.New("rows of a query result cannot be deleted; open the table first")
	}
	if source != selected {
		return "", "", fmt.Errorf("preview shows %s, not %s; refresh first", source, selected)
	}
	id, ok := rowID(result, index)
	if !ok {
		return "", "", fmt.Errorf("select a row with an %s column first", schema.SurrogateKey)
	}
	return source, id, nil
}

// rowID returns the surrogate key of the index-th row of result.
func rowID(result *rows.ResultSet, index int) (string, bool) {
	if result == nil || index < 0 || index >= len(result.Rows) {
		return "", false
	}
	value, ok := result.Rows[index][schema.SurrogateKey]
	if !ok || value == nil {
		return "", false
	}
	return rows.FormatValue(value), true
}
