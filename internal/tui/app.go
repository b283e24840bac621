package tui

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	fast "fastcodec"
	"fastcodec/internal/config"
)

// App is the FAST inspector's TUI application: a loaded set of compiled
// codecs (one per configured template set) browsed across three tabs.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	tabs      *tview.TextView
	statusBar *tview.TextView

	templatesTab  *TemplatesTab
	decodeTab     *DecodeTab
	dictionaryTab *DictionaryTab

	cfg     *config.Config
	cfgPath string
	codecs  map[string]*fast.Codec

	currentTab int
	tabNames   []string
}

// NewApp compiles every enabled template set named in cfg and builds the
// inspector around them. A template set whose XML document fails to load
// or compile is skipped with a status message rather than aborting
// startup — the rest of the fleet should still be browsable.
func NewApp(cfg *config.Config, cfgPath string) *App {
	a := &App{
		app:      tview.NewApplication(),
		cfg:      cfg,
		cfgPath:  cfgPath,
		codecs:   make(map[string]*fast.Codec),
		tabNames: []string{TabTemplates, TabDecode, TabDictionary},
	}

	var loadErrors []string
	for _, ts := range cfg.TemplateSets {
		if !ts.Enabled {
			continue
		}
		xmlDoc, err := os.ReadFile(ts.Path)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: reading %s: %v", ts.Name, ts.Path, err))
			continue
		}
		codec, err := fast.NewFromXML(xmlDoc)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: compiling: %v", ts.Name, err))
			continue
		}
		a.codecs[ts.Name] = codec
	}

	a.setupUI()
	if len(loadErrors) > 0 {
		a.setStatus(fmt.Sprintf("%d template set(s) failed to load, see ? for help", len(loadErrors)))
	}
	return a
}

func (a *App) setupUI() {
	a.tabs = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	a.statusBar = tview.NewTextView().SetDynamicColors(true).SetTextColor(ColorText)

	a.pages = tview.NewPages()

	a.templatesTab = NewTemplatesTab(a)
	a.decodeTab = NewDecodeTab(a)
	a.dictionaryTab = NewDictionaryTab(a)

	a.pages.AddPage(TabTemplates, a.templatesTab.GetPrimitive(), true, true)
	a.pages.AddPage(TabDecode, a.decodeTab.GetPrimitive(), true, false)
	a.pages.AddPage(TabDictionary, a.dictionaryTab.GetPrimitive(), true, false)

	mainFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.tabs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetInputCapture(a.handleGlobalKeys)
	a.app.SetRoot(mainFlex, true)
	a.updateTabsDisplay()
	a.setStatus(fmt.Sprintf("Ready — %d template set(s) loaded. Press ? for help.", len(a.codecs)))
	a.focusCurrentTab()
}

func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	if event == nil {
		return nil
	}

	frontPage, _ := a.pages.GetFrontPage()
	isMainTab := frontPage == TabTemplates || frontPage == TabDecode || frontPage == TabDictionary
	if !isMainTab {
		return event
	}

	if event.Rune() == 'Q' {
		a.app.Stop()
		return nil
	}
	if event.Key() == tcell.KeyBacktab {
		a.nextTab()
		return nil
	}
	if event.Rune() == '?' {
		a.showHelp()
		return nil
	}

	return event
}

func (a *App) nextTab() {
	a.currentTab = (a.currentTab + 1) % len(a.tabNames)
	a.switchToTab(a.currentTab)
}

func (a *App) switchToTab(index int) {
	a.currentTab = index
	a.pages.SwitchToPage(a.tabNames[index])
	a.updateTabsDisplay()
	a.focusCurrentTab()
}

func (a *App) focusCurrentTab() {
	switch a.currentTab {
	case 0:
		a.app.SetFocus(a.templatesTab.GetFocusable())
	case 1:
		a.app.SetFocus(a.decodeTab.GetFocusable())
	case 2:
		a.app.SetFocus(a.dictionaryTab.GetFocusable())
	}
}

func (a *App) updateTabsDisplay() {
	text := ""
	for i, name := range a.tabNames {
		if i > 0 {
			text += "  │  "
		}
		if i == a.currentTab {
			text += "[black:yellow:b] " + name + " [-:-:-]"
		} else {
			text += "[gray]" + name + "[-]"
		}
	}
	a.tabs.SetText(text)
}

func (a *App) setStatus(msg string) {
	a.statusBar.SetText(" " + msg)
}

func (a *App) showHelp() {
	const pageName = "help"
	textView := tview.NewTextView().SetText(helpText).SetDynamicColors(true)
	textView.SetBorder(true).SetTitle(" Help ")
	textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == '?' {
			a.pages.RemovePage(pageName)
			a.focusCurrentTab()
			return nil
		}
		return event
	})

	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(textView, 22, 1, true).
			AddItem(nil, 0, 1, false), 50, 1, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(pageName, modal, true, true)
	a.app.SetFocus(textView)
}

// Run starts the TUI event loop.
func (a *App) Run() error {
	return a.app.Run()
}

// Stop halts the TUI application.
func (a *App) Stop() {
	a.app.Stop()
}
