package layout

import (
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/penwyp/go-metrobus/internal/util"
)

const (
	minWidth     = 40
	defaultWidth = 74
	maxWidth     = 120
)

// Package-level singleton Sizer instance
var sharedSizer = &Sizer{}

type Sizer struct {
}

// displayWidth calculates the actual display width of a string containing emojis and Unicode characters
func (i Sizer) displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadString pads a string to a specific display width, handling emojis correctly
func (i Sizer) PadString(s string, width int, leftAlign bool) string {
	actualWidth := i.displayWidth(s)
	if actualWidth >= width {
		return s
	}

	padding := strings.Repeat(" ", width-actualWidth)
	if leftAlign {
		return s + padding
	}
	return padding + s
}

// Fit pads or truncates s to exactly width display cells.
func (i Sizer) Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if i.displayWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return i.PadString(s, width, true)
}

// ClampWidth bounds a terminal width to what the layouts can draw.
func (i Sizer) ClampWidth(termWidth int) int {
	if termWidth <= 0 {
		return defaultWidth
	}
	width := termWidth - 2
	if width < minWidth {
		return minWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}

func (i Sizer) GetMaxWidth() int {
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		termWidth = 0
	}
	width := i.ClampWidth(termWidth)
	util.LogDebugf("GetMaxWidth %d", width)
	return width
}
