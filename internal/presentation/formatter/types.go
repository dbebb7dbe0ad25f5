// Package formatter renders one-shot analytics reports and planner answers
// for the command line.
package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/penwyp/go-metrobus/internal/analytics"
)

// Output formats
const (
	OutputTable   = "table"
	OutputJSON    = "json"
	OutputCSV     = "csv"
	OutputSummary = "summary"
)

// Report is the input of every report formatter.
type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Timezone    string             `json:"timezone"`
	Snapshot    analytics.Snapshot `json:"snapshot"`
}

// DailyRow is one day of query/response traffic.
type DailyRow struct {
	Date      string
	Label     string
	Queries   int
	Responses int
}

// Formatter writes a report to w.
type Formatter interface {
	Format(w io.Writer, report Report) error
}

// New returns the formatter for output.
func New(output string) (Formatter, error) {
	switch output {
	case OutputTable, "":
		return NewTableFormatter(), nil
	case OutputJSON:
		return NewJSONFormatter(), nil
	case OutputCSV:
		return NewCSVFormatter(), nil
	case OutputSummary:
		return NewSummaryFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (table, json, csv, summary)", output)
	}
}

// dailyRows flattens the daily traffic of a report, oldest first.
func dailyRows(report Report) []DailyRow {
	daily := report.Snapshot.Summary.Traffic.Daily
	rows := make([]DailyRow, 0, len(daily))
	for _, d := range daily {
		rows = append(rows, DailyRow{Date: d.Date, Label: d.Label, Queries: d.Queries, Responses: d.Responses})
	}
	return rows
}

func responseRate(queries, responses int) string {
	if queries == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(responses)/float64(queries)*100)
}
