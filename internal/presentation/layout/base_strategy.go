package layout

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

// BaseStrategy provides common functionality for all layout strategies
type BaseStrategy struct {
}

// GetSizer returns the shared sizer instance
func (b *BaseStrategy) GetSizer() *Sizer {
	return sharedSizer
}

func (b *BaseStrategy) TopBorder(width int) string {
	return "╭" + strings.Repeat("─", width-2) + "╮"
}

func (b *BaseStrategy) BottomBorder(width int) string {
	return "╰" + strings.Repeat("─", width-2) + "╯"
}

func (b *BaseStrategy) Separator(width int) string {
	return "├" + strings.Repeat("─", width-2) + "┤"
}

// Row boxes content into a single line of the given outer width.
func (b *BaseStrategy) Row(content string, width int) string {
	return "│ " + b.GetSizer().Fit(content, width-4) + " │"
}

// Columns boxes two cells split evenly across the width.
func (b *BaseStrategy) Columns(left, right string, width int) string {
	// "│ " + left + " │ " + right + " │"
	available := width - 7
	leftWidth := available / 2
	rightWidth := available - leftWidth
	sizer := b.GetSizer()
	return "│ " + sizer.Fit(left, leftWidth) + " │ " + sizer.Fit(right, rightWidth) + " │"
}

// Title renders a section heading row.
func (b *BaseStrategy) Title(title string, width int) string {
	return b.Row(strings.ToUpper(title), width)
}

// CenterText centers text within the given width
func (b *BaseStrategy) CenterText(text string, width int) string {
	padding := width - util.GetDisplayWidth(text)
	if padding <= 0 {
		return text
	}
	leftPad := padding / 2
	rightPad := padding - leftPad
	return strings.Repeat(" ", leftPad) + text + strings.Repeat(" ", rightPad)
}

// FormatPercentage formats a percentage value
func (b *BaseStrategy) FormatPercentage(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// ProgressBar draws percentage as a bracketed bar of width cells.
func (b *BaseStrategy) ProgressBar(percentage float64, width int) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	filled := int(percentage * float64(width) / 100)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// ResponseRate is responses as a percentage of queries.
func (b *BaseStrategy) ResponseRate(queries, responses int) float64 {
	if queries == 0 {
		return 0
	}
	return float64(responses) / float64(queries) * 100
}

// LineIcon returns the colored marker for a line.
func (b *BaseStrategy) LineIcon(line model.LineCode) string {
	switch line {
	case model.LineGreen:
		return "🟢"
	case model.LineBlue:
		return "🔵"
	default:
		return "⚪"
	}
}

func (b *BaseStrategy) println(w io.Writer, line string) {
	fmt.Fprintln(w, line)
}
