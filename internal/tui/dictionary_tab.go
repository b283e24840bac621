package tui

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// DictionaryTab displays a live snapshot of a chosen codec's assigned
// dictionary entries, for watching copy/increment/delta state build up
// across a sequence of decodes made in the Decode tab.
type DictionaryTab struct {
	app *App

	flex     *tview.Flex
	setField *tview.DropDown
	table    *tview.Table

	selectedSet string
}

// NewDictionaryTab creates the Dictionary tab.
func NewDictionaryTab(app *App) *DictionaryTab {
	t := &DictionaryTab{app: app}
	t.setupUI()
	t.Refresh()
	return t
}

func (t *DictionaryTab) setupUI() {
	names := make([]string, 0, len(t.app.codecs))
	for name := range t.app.codecs {
		names = append(names, name)
	}
	sort.Strings(names)

	t.setField = tview.NewDropDown().SetLabel("Template set: ").SetOptions(names, func(text string, index int) {
		t.selectedSet = text
		t.Refresh()
	})
	if len(names) > 0 {
		t.setField.SetCurrentOption(0)
		t.selectedSet = names[0]
	}

	t.table = tview.NewTable().SetBorders(false).SetSelectable(true, false).SetFixed(1, 0)
	t.table.SetBorder(true).SetTitle(" Dictionary Entries ")
	t.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'r' {
			t.Refresh()
			return nil
		}
		return event
	})

	t.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.setField, 1, 0, true).
		AddItem(t.table, 0, 1, false)
}

// Refresh repopulates the entry table from the selected codec's current
// dictionary snapshot.
func (t *DictionaryTab) Refresh() {
	t.table.Clear()
	headers := []string{"Key", "Value"}
	for i, h := range headers {
		t.table.SetCell(0, i, tview.NewTableCell(h).SetTextColor(ColorAccent).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}

	codec, ok := t.app.codecs[t.selectedSet]
	if !ok {
		return
	}
	snapshot := codec.DictionarySnapshot()

	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		row := i + 1
		v := snapshot[k]
		t.table.SetCell(row, 0, tview.NewTableCell(k))
		t.table.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("%v", v.String())))
	}
}

// GetPrimitive returns the tab's root primitive.
func (t *DictionaryTab) GetPrimitive() tview.Primitive { return t.flex }

// GetFocusable returns the primitive focused when this tab activates.
func (t *DictionaryTab) GetFocusable() tview.Primitive { return t.table }
