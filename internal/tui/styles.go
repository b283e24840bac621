// Package tui provides a terminal inspector for compiled FAST template
// sets: browse templates, decode hex-pasted messages by hand, and view a
// codec's live dictionary state. Modeled on the teacher's tview/tcell TUI.
package tui

import "github.com/gdamore/tcell/v2"

// Color scheme, carried from the teacher's palette.
var (
	ColorAccent   = tcell.ColorYellow
	ColorError    = tcell.ColorRed
	ColorSuccess  = tcell.ColorGreen
	ColorDisabled = tcell.ColorGray
	ColorText     = tcell.ColorWhite
)

// Tab labels.
const (
	TabTemplates  = "Templates"
	TabDecode     = "Decode"
	TabDictionary = "Dictionary"
)

const helpText = `
 Keyboard Shortcuts
 ──────────────────────────────────────

 Navigation
   Shift+Tab    Switch tabs
   Enter        Select / Activate
   Escape       Close dialog
   ?            Show this help

 Templates Tab
   Up/Down      Show instructions of the selected template set

 Decode Tab
   Ctrl+D       Decode pasted hex bytes

 Dictionary Tab
   r            Refresh snapshot

 Application
   Q            Quit
`
