// Package display draws the live analytics dashboard on a terminal.
package display

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/penwyp/go-metrobus/internal/presentation/layout"
	"github.com/penwyp/go-metrobus/internal/util"
)

// DisplayMode is what the screen currently shows.
type DisplayMode int

const (
	ModeNormal DisplayMode = iota
	ModeHelp
	ModeLoading
)

// ViewState is the interaction state that drives a render.
type ViewState struct {
	ShowHelp    bool
	LayoutStyle int
	// IsLoading with no snapshot yet shows the full loading screen.
	IsLoading      bool
	LoadingMessage string
}

// DisplayConfig holds the static render settings.
type DisplayConfig struct {
	Out io.Writer
	// Width overrides terminal size detection when positive.
	Width int
}

type TerminalDisplay struct {
	out               io.Writer
	fixedWidth        int
	inAlternateScreen bool
	isFirstRender     bool
	currentMode       DisplayMode
	lastLayoutStyle   int
	previousScreen    string
	lastDraw          time.Time
}

// NewTerminalDisplay creates a new TerminalDisplay
func NewTerminalDisplay(config *DisplayConfig) *TerminalDisplay {
	td := &TerminalDisplay{
		out:           os.Stdout,
		isFirstRender: true,
		currentMode:   ModeNormal,
	}
	if config != nil {
		if config.Out != nil {
			td.out = config.Out
		}
		td.fixedWidth = config.Width
	}
	return td
}

func (td *TerminalDisplay) width() int {
	if td.fixedWidth > 0 {
		return td.fixedWidth
	}
	return (&layout.Sizer{}).GetMaxWidth()
}

// EnterAlternateScreen switches to alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	if td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, util.EnterAltScreen, util.ClearScreen, util.MoveCursorHome, util.HideCursor)
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	if !td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, util.ClearScreen, util.MoveCursorHome, util.ShowCursor, util.ExitAltScreen)
	td.inAlternateScreen = false
}

// ClearScreen clears the alternate screen buffer
func (td *TerminalDisplay) ClearScreen() {
	fmt.Fprint(td.out, util.ClearScreen, util.MoveCursorHome)
	td.previousScreen = ""
}

func (td *TerminalDisplay) determineDisplayMode(frame layout.Frame, state ViewState) DisplayMode {
	// Help > Loading > Normal
	if state.ShowHelp {
		return ModeHelp
	}
	if state.IsLoading && frame.Snapshot == nil {
		return ModeLoading
	}
	return ModeNormal
}

// RenderWithState draws frame, or the help or loading screen the state asks for.
func (td *TerminalDisplay) RenderWithState(frame layout.Frame, state ViewState) {
	mode := td.determineDisplayMode(frame, state)
	if td.isFirstRender || mode != td.currentMode || state.LayoutStyle != td.lastLayoutStyle {
		td.ClearScreen()
		td.isFirstRender = false
		td.currentMode = mode
		td.lastLayoutStyle = state.LayoutStyle
	}

	var buf bytes.Buffer
	switch mode {
	case ModeHelp:
		renderHelp(&buf)
	case ModeLoading:
		renderLoadingScreen(&buf, state.LoadingMessage, frame.Now)
	default:
		layout.GetLayoutStrategy(state.LayoutStyle).Render(&buf, frame, td.width())
	}
	td.smartRender(buf.String())
}

// smartRender repaints in place and skips frames identical to the last one.
func (td *TerminalDisplay) smartRender(screen string) {
	if screen == td.previousScreen {
		return
	}
	var out strings.Builder
	out.WriteString(util.MoveCursorHome)
	for _, line := range strings.SplitAfter(screen, "\n") {
		if line == "" {
			continue
		}
		out.WriteString(strings.TrimSuffix(line, "\n"))
		out.WriteString(util.ClearLine)
		if strings.HasSuffix(line, "\n") {
			out.WriteString("\r\n")
		}
	}
	out.WriteString(util.ClearToEnd)
	fmt.Fprint(td.out, out.String())

	td.previousScreen = screen
	td.lastDraw = time.Now()
}

func renderHelp(w io.Writer) {
	lines := []string{
		"Metro Bus Analytics - Help",
		strings.Repeat("═", 60),
		"",
		"Keyboard Shortcuts:",
		"",
		"  q/Esc/Ctrl+C - Quit",
		"  r            - Force refresh",
		"  l            - Switch metro line",
		"  s            - Sort event types by count or name",
		"  t            - Change layout style (Full → Minimal)",
		"  h            - Show this help",
		"",
		"The dashboard refreshes on its own when new events arrive.",
		"",
		strings.Repeat("═", 60),
		"Press 'h' to return...",
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

var loadingChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func renderLoadingScreen(w io.Writer, message string, now time.Time) {
	if message == "" {
		message = "Loading data..."
	}
	const boxWidth = 50
	sizer := layout.Sizer{}
	frame := func(content string) string {
		return "║" + centered(sizer, content, boxWidth-2) + "║"
	}

	spinner := loadingChars[int(now.Unix())%len(loadingChars)]
	fmt.Fprintln(w, "╔"+strings.Repeat("═", boxWidth-2)+"╗")
	fmt.Fprintln(w, frame("Metro Bus Analytics"))
	fmt.Fprintln(w, "╠"+strings.Repeat("═", boxWidth-2)+"╣")
	fmt.Fprintln(w, frame(""))
	fmt.Fprintln(w, frame(spinner+" "+message))
	fmt.Fprintln(w, frame(""))
	fmt.Fprintln(w, frame("Press 'q' to quit"))
	fmt.Fprintln(w, "╚"+strings.Repeat("═", boxWidth-2)+"╝")
}

func centered(sizer layout.Sizer, text string, width int) string {
	pad := width - util.GetDisplayWidth(text)
	if pad <= 0 {
		return sizer.Fit(text, width)
	}
	left := pad / 2
	return strings.Repeat(" ", left) + sizer.PadString(text, width-left, true)
}
