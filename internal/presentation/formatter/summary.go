package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
	"github.com/penwyp/go-metrobus/internal/util"
)

// SummaryFormatter is responsible for formatting and outputting summary reports.
type SummaryFormatter struct{}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

// Format writes a plain text report of the snapshot.
func (f *SummaryFormatter) Format(w io.Writer, report Report) error {
	snap := report.Snapshot
	sum := snap.Summary
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	p("%s", strings.Repeat("=", 60))
	p("Metro Bus Analytics Summary")
	p("%s", strings.Repeat("=", 60))
	p("")
	p("Generated: %s (%s)", report.GeneratedAt.Format("2006-01-02 15:04:05"), report.Timezone)
	p("")

	if sum.TotalEvents == 0 {
		p("No events to summarize")
		p("")
		p("%s", strings.Repeat("=", 60))
		return nil
	}

	p("Events:")
	p("  Total:         %s", util.FormatNumber(sum.TotalEvents))
	p("  Today:         %s", util.FormatNumber(sum.TodayEvents))
	p("  Last 7 days:   %s", util.FormatNumber(sum.WeeklyEvents))
	p("  Last 30 days:  %s", util.FormatNumber(sum.MonthlyEvents))
	p("")

	t := sum.Traffic
	p("Traffic (queries / responses):")
	p("  Today:         %s / %s", util.FormatNumber(t.TodayQueries), util.FormatNumber(t.TodayResponses))
	p("  Last 7 days:   %s / %s", util.FormatNumber(t.WeekQueries), util.FormatNumber(t.WeekResponses))
	p("  Last 30 days:  %s / %s", util.FormatNumber(t.MonthQueries), util.FormatNumber(t.MonthResponses))
	queries, responses := analytics.TrafficTotals(t.Hourly)
	p("  All time:      %s / %s", util.FormatNumber(queries), util.FormatNumber(responses))
	p("")

	if len(sum.LineCodeCounts) > 0 {
		p("Lines:")
		lines := interaction.RowsFromCounts(sum.LineCodeCounts)
		interaction.NewCountSorter().Sort(lines)
		for _, line := range lines {
			p("  %-14s %s", line.Name+":", util.FormatNumber(line.Count))
		}
		p("")
	}

	b := snap.Behavior
	p("Rider behavior:")
	p("  Planned routes:       %s", util.FormatNumber(b.PlannedRoutes))
	if b.AveragePlanningTime > 0 {
		p("  Avg planning time:    %s", util.FormatSeconds(b.AveragePlanningTime))
	}
	if len(b.PopularOrigins) > 0 {
		p("  Top origins:          %s", joinPlaces(b.PopularOrigins, 3))
	}
	if len(b.PopularDestinations) > 0 {
		p("  Top destinations:     %s", joinPlaces(b.PopularDestinations, 3))
	}
	if len(b.PeakUsageHours) > 0 {
		hours := make([]string, 0, len(b.PeakUsageHours))
		for _, h := range b.PeakUsageHours {
			hours = append(hours, fmt.Sprintf("%02d:00", h.Hour))
		}
		p("  Peak hours:           %s", strings.Join(hours, ", "))
	}

	p("")
	p("%s", strings.Repeat("=", 60))
	return nil
}

func joinPlaces(places []analytics.PlaceCount, n int) string {
	if len(places) > n {
		places = places[:n]
	}
	parts := make([]string, len(places))
	for i, place := range places {
		parts[i] = fmt.Sprintf("%s (%d)", place.Name, place.Count)
	}
	return strings.Join(parts, ", ")
}
