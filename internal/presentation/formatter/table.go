package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
	"github.com/penwyp/go-metrobus/internal/util"
)

type TableFormatter struct {
	headers []string
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		headers: []string{"Date", "Day", "Queries", "Responses", "Rate"},
	}
}

func (f *TableFormatter) Format(w io.Writer, report Report) error {
	rows := dailyRows(report)

	var totalQueries, totalResponses int
	data := make([][]string, 0, len(rows)+1)
	for _, row := range rows {
		data = append(data, []string{
			row.Date,
			row.Label,
			util.FormatNumber(row.Queries),
			util.FormatNumber(row.Responses),
			responseRate(row.Queries, row.Responses),
		})
		totalQueries += row.Queries
		totalResponses += row.Responses
	}
	total := []string{
		"Total",
		"",
		util.FormatNumber(totalQueries),
		util.FormatNumber(totalResponses),
		responseRate(totalQueries, totalResponses),
	}

	widths := calculateColumnWidths(f.headers, append(data, total))

	printBorder(w, widths, "top")
	printRow(w, f.headers, widths, 2)
	printBorder(w, widths, "middle")
	for _, row := range data {
		printRow(w, row, widths, 2)
	}
	printBorder(w, widths, "middle")
	printRow(w, total, widths, 2)
	printBorder(w, widths, "bottom")

	fmt.Fprintln(w)
	return f.formatEventTypes(w, report.Snapshot.Summary)
}

func (f *TableFormatter) formatEventTypes(w io.Writer, summary analytics.Summary) error {
	headers := []string{"Event Type", "Category", "Count"}
	counts := interaction.RowsFromCounts(summary.EventTypeCounts)
	interaction.NewCountSorter().Sort(counts)

	data := make([][]string, 0, len(counts))
	for _, c := range counts {
		data = append(data, []string{c.Name, analytics.Classify(c.Name).String(), util.FormatNumber(c.Count)})
	}
	total := []string{"Total", "", util.FormatNumber(summary.TotalEvents)}

	widths := calculateColumnWidths(headers, append(data, total))
	printBorder(w, widths, "top")
	printRow(w, headers, widths, 2)
	printBorder(w, widths, "middle")
	for _, row := range data {
		printRow(w, row, widths, 2)
	}
	printBorder(w, widths, "middle")
	printRow(w, total, widths, 2)
	printBorder(w, widths, "bottom")
	return nil
}

// calculateColumnWidths determines optimal width for each column based on content
func calculateColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = util.GetDisplayWidth(header)
	}
	for _, row := range rows {
		for i, value := range row {
			if n := util.GetDisplayWidth(value); n > widths[i] {
				widths[i] = n
			}
		}
	}
	// Apply minimum widths for readability
	for i := range widths {
		if widths[i] < 6 {
			widths[i] = 6
		}
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func printBorder(w io.Writer, widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	var b strings.Builder
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	fmt.Fprintln(w, b.String())
}

// printRow prints a row; the first textColumns columns are left-aligned,
// the rest are numeric and right-aligned.
func printRow(w io.Writer, values []string, widths []int, textColumns int) {
	var b strings.Builder
	b.WriteString("│")
	for i, value := range values {
		b.WriteString(" ")
		b.WriteString(util.PadString(value, widths[i], i < textColumns))
		b.WriteString(" │")
	}
	fmt.Fprintln(w, b.String())
}
