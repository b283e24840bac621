package tui

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"fastcodec/internal/tmpl"
)

// TemplatesTab lists every loaded template set and, on selection, the
// instructions of each template within it.
type TemplatesTab struct {
	app    *App
	flex   *tview.Flex
	table  *tview.Table
	detail *tview.TextView

	names []string
}

// NewTemplatesTab creates the Templates tab.
func NewTemplatesTab(app *App) *TemplatesTab {
	t := &TemplatesTab{app: app}
	t.setupUI()
	t.Refresh()
	return t
}

func (t *TemplatesTab) setupUI() {
	t.table = tview.NewTable().SetBorders(false).SetSelectable(true, false).SetFixed(1, 0)
	t.table.SetBorder(true).SetTitle(" Template Sets ")
	headers := []string{"Name", "Templates"}
	for i, h := range headers {
		t.table.SetCell(0, i, tview.NewTableCell(h).SetTextColor(ColorAccent).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	t.table.SetSelectionChangedFunc(func(row, col int) { t.showDetail(row) })

	t.detail = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.detail.SetBorder(true).SetTitle(" Instructions ")

	t.flex = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(t.table, 0, 1, true).
		AddItem(t.detail, 0, 2, false)
}

// Refresh repopulates the template set table from the app's loaded codecs.
func (t *TemplatesTab) Refresh() {
	t.names = t.names[:0]
	for name := range t.app.codecs {
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)

	t.table.Clear()
	headers := []string{"Name", "Templates"}
	for i, h := range headers {
		t.table.SetCell(0, i, tview.NewTableCell(h).SetTextColor(ColorAccent).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}

	for i, name := range t.names {
		codec := t.app.codecs[name]
		row := i + 1
		t.table.SetCell(row, 0, tview.NewTableCell(name))
		t.table.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("%d", len(codec.Templates().Order))))
	}

	if len(t.names) > 0 {
		t.showDetail(1)
	}
}

func (t *TemplatesTab) showDetail(row int) {
	if row < 1 || row > len(t.names) {
		t.detail.SetText("")
		return
	}
	codec := t.app.codecs[t.names[row-1]]
	text := ""
	for _, tpl := range codec.Templates().Order {
		text += fmt.Sprintf("[yellow]%s[-] (id=%d)\n", tpl.Name, tpl.ID)
		for _, instr := range tpl.Instructions {
			pres := "mandatory"
			if instr.Presence == tmpl.Optional {
				pres = "optional"
			}
			text += fmt.Sprintf("  %-20s %-14s op=%-10s pres=%s\n", instr.Name, instr.Kind, instr.Operator, pres)
		}
		text += "\n"
	}
	t.detail.SetText(text)
}

// GetPrimitive returns the tab's root primitive.
func (t *TemplatesTab) GetPrimitive() tview.Primitive { return t.flex }

// GetFocusable returns the primitive that should receive focus when this
// tab becomes active.
func (t *TemplatesTab) GetFocusable() tview.Primitive { return t.table }
