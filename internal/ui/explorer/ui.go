package explorer

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func queueUpdate(app *tview.Application, fn func()) {
	if app == nil {
		fn()
		return
	}

	if err := app.QueueUpdateDraw(fn); err != nil {
		fn()
	}
}

// newModal centres content on a grid of the given size.
func newModal(content tview.Primitive, width, height int) tview.Primitive {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 10
	}

	return tview.NewGrid().
		SetRows(0, height, 0).
		SetColumns(0, width, 0).
		AddItem(content, 1, 1, 1, 1, 0, 0, true)
}

// fillTable renders a header row and the given cells.
func fillTable(view *tview.Table, columns []string, cells [][]string) {
	view.Clear()
	for i, col := range columns {
		view.SetCell(0, i, tview.NewTableCell(col).
			SetSelectable(false).
			SetAlign(tview.AlignCenter).
			SetAttributes(tcell.AttrBold))
	}
	for r, row := range cells {
		for c, val := range row {
			view.SetCell(r+1, c, tview.NewTableCell(tview.Escape(val)).SetExpansion(1))
		}
	}
}
