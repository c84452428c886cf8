package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/docketapp/docket/internal/items"
	"github.com/docketapp/docket/internal/items/itemview"
)

// Dashboard is the inventory table. It renders either one item per row
// (list) or a denser multi-column layout (grid); both read from the same
// filtered slice and the same selection model.
type Dashboard struct {
	*tview.Table
	items []items.Item
	mode  itemview.Mode
	cols  int
}

func NewDashboard(theme *Theme) *Dashboard {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Inventory ")
	table.SetBorderColor(theme.BorderColor)
	table.SetTitleColor(theme.TitleColor)

	return &Dashboard{Table: table, mode: itemview.ModeList, cols: 3}
}

// Update re-renders from a fresh filtered slice plus the inventory summary.
func (d *Dashboard) Update(visible []items.Item, sum itemview.Summary, mode itemview.Mode, quick itemview.Quick) {
	d.items = visible
	d.mode = mode
	d.Clear()
	// Grid cells are addressed by row and column; list rows only by row.
	d.SetSelectable(true, mode == itemview.ModeGrid)

	scope := "all"
	if quick == itemview.QuickLent {
		scope = "lent"
	}
	d.SetTitle(fmt.Sprintf(" Inventory (%s) | %d items | $%.2f | %d lent ",
		scope, sum.Count, sum.TotalValue, sum.LentCount))

	if mode == itemview.ModeGrid {
		d.renderGrid()
		return
	}
	d.renderList()
}

func (d *Dashboard) renderList() {
	headers := []string{" Name", " Category", " Location", " Price", " Status"}
	for c, h := range headers {
		d.SetCell(0, c, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(tview.Styles.SecondaryTextColor))
	}

	for i, it := range d.items {
		row := i + 1
		d.SetCell(row, 0, tview.NewTableCell(" "+it.Name).SetMaxWidth(30).SetExpansion(1))
		d.SetCell(row, 1, tview.NewTableCell(" "+it.Category).SetMaxWidth(16))
		d.SetCell(row, 2, tview.NewTableCell(" "+it.Location).SetMaxWidth(20))
		d.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf(" $%.2f", it.Price)).SetAlign(tview.AlignRight))
		d.SetCell(row, 4, tview.NewTableCell(" "+statusLabel(it)).SetMaxWidth(24).SetExpansion(1))
	}
}

// renderGrid packs several items per row; each cell carries the name plus a
// compact status line.
func (d *Dashboard) renderGrid() {
	for i, it := range d.items {
		row := i / d.cols
		col := i % d.cols
		cell := fmt.Sprintf(" %s\n $%.2f %s", it.Name, it.Price, statusLabel(it))
		d.SetCell(row, col, tview.NewTableCell(cell).SetMaxWidth(28).SetExpansion(1))
	}
}

// Selected returns the item under the cursor, if any.
func (d *Dashboard) Selected() (items.Item, bool) {
	row, col := d.GetSelection()
	idx := row - 1 // header row
	if d.mode == itemview.ModeGrid {
		idx = row*d.cols + col
	}
	if idx >= 0 && idx < len(d.items) {
		return d.items[idx], true
	}
	return items.Item{}, false
}

func statusLabel(it items.Item) string {
	switch {
	case it.Lend != nil:
		return fmt.Sprintf("[orange]lent to %s (%s)[-]", it.Lend.Borrower, it.Lend.Date)
	case it.IsListed:
		return "[green]listed[-]"
	default:
		return "available"
	}
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
