package tui

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"fastcodec/internal/engine"
)

// DecodeTab decodes a hand-pasted hex message against a chosen template
// set, for interactive troubleshooting of a capture without a full
// stream connection.
type DecodeTab struct {
	app *App

	flex       *tview.Flex
	setField   *tview.DropDown
	input      *tview.TextArea
	result     *tview.TextView
	statusLine *tview.TextView

	selectedSet string
}

// NewDecodeTab creates the Decode tab.
func NewDecodeTab(app *App) *DecodeTab {
	t := &DecodeTab{app: app}
	t.setupUI()
	return t
}

func (t *DecodeTab) setupUI() {
	names := make([]string, 0, len(t.app.codecs))
	for name := range t.app.codecs {
		names = append(names, name)
	}
	sort.Strings(names)

	t.setField = tview.NewDropDown().SetLabel("Template set: ").SetOptions(names, func(text string, index int) {
		t.selectedSet = text
	})
	if len(names) > 0 {
		t.setField.SetCurrentOption(0)
		t.selectedSet = names[0]
	}

	t.input = tview.NewTextArea().SetPlaceholder("paste hex bytes, e.g. c0 81 40 49 42 4d")
	t.input.SetBorder(true).SetTitle(" Message (hex) ")

	t.statusLine = tview.NewTextView().SetDynamicColors(true)

	t.result = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.result.SetBorder(true).SetTitle(" Decoded ")

	t.input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlD {
			t.decode()
			return nil
		}
		return event
	})

	top := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(t.setField, 0, 1, true).
		AddItem(t.statusLine, 0, 2, false)

	t.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 1, 0, true).
		AddItem(t.input, 5, 0, false).
		AddItem(t.result, 0, 1, false)
}

func (t *DecodeTab) decode() {
	codec, ok := t.app.codecs[t.selectedSet]
	if !ok {
		t.statusLine.SetText("[red]no template set selected[-]")
		return
	}

	raw := strings.ReplaceAll(strings.TrimSpace(t.input.GetText()), " ", "")
	raw = strings.ReplaceAll(raw, "\n", "")
	buf, err := hex.DecodeString(raw)
	if err != nil {
		t.statusLine.SetText(fmt.Sprintf("[red]invalid hex: %v[-]", err))
		return
	}

	sink := engine.NewTreeSink()
	consumed, err := codec.Decode(buf, sink)
	if err != nil {
		t.statusLine.SetText(fmt.Sprintf("[red]decode error: %v[-]", err))
		t.result.SetText("")
		return
	}

	t.statusLine.SetText(fmt.Sprintf("[green]decoded %d of %d bytes[-]", consumed, len(buf)))
	t.result.SetText(renderTree(sink.Root, 0))
}

func renderTree(n *engine.TreeNode, depth int) string {
	if n == nil {
		return ""
	}
	indent := strings.Repeat("  ", depth)
	text := fmt.Sprintf("%s[yellow]%s[-]\n", indent, n.TemplateName)

	names := make([]string, 0, len(n.Values))
	for name := range n.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		text += fmt.Sprintf("%s  %s = %s\n", indent, name, n.Values[name].String())
	}

	groupNames := make([]string, 0, len(n.Groups))
	for name := range n.Groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		text += fmt.Sprintf("%s  %s:\n", indent, name)
		text += renderTree(n.Groups[name], depth+2)
	}

	seqNames := make([]string, 0, len(n.Sequences))
	for name := range n.Sequences {
		seqNames = append(seqNames, name)
	}
	sort.Strings(seqNames)
	for _, name := range seqNames {
		text += fmt.Sprintf("%s  %s[]:\n", indent, name)
		for i, item := range n.Sequences[name] {
			text += fmt.Sprintf("%s    [%d]\n", indent, i)
			text += renderTree(item, depth+3)
		}
	}

	return text
}

// GetPrimitive returns the tab's root primitive.
func (t *DecodeTab) GetPrimitive() tview.Primitive { return t.flex }

// GetFocusable returns the primitive focused when this tab activates.
func (t *DecodeTab) GetFocusable() tview.Primitive { return t.input }
