package layout

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
	"github.com/penwyp/go-metrobus/internal/util"
)

const (
	maxTypeRows   = 8
	maxPlaceRows  = 5
	maxRecentRows = 6
	barWidth      = 20
)

// FullLayoutStrategy implements the full dashboard layout
type FullLayoutStrategy struct {
	BaseStrategy
}

func (s *FullLayoutStrategy) GetName() string {
	return "Full Dashboard"
}

func (s *FullLayoutStrategy) Render(w io.Writer, frame Frame, width int) {
	snap := frame.Snapshot
	if snap == nil {
		snap = &analytics.Snapshot{}
	}

	s.println(w, s.TopBorder(width))
	s.header(w, frame, width)
	s.println(w, s.Separator(width))
	s.overview(w, snap, width)
	s.println(w, s.Separator(width))
	s.traffic(w, snap, width)
	if frame.Line != "" {
		s.lineSection(w, frame, snap, width)
	}
	s.println(w, s.Separator(width))
	s.eventTypes(w, frame, snap, width)
	s.println(w, s.Separator(width))
	s.behavior(w, snap, width)
	s.println(w, s.Separator(width))
	s.recent(w, snap, frame.Now.Location(), width)
	s.println(w, s.Separator(width))
	s.status(w, frame, width)
	s.println(w, s.BottomBorder(width))
}

// header puts the title on its own row so the line label keeps a full
// column even on narrow terminals.
func (s *FullLayoutStrategy) header(w io.Writer, frame Frame, width int) {
	s.println(w, s.Row(s.CenterText("🚌 METRO BUS ANALYTICS", width-4), width))

	clock := frame.Now.Format("15:04:05")
	if frame.Timezone != "" {
		clock = frame.Timezone + "  │  " + clock
	}
	s.println(w, s.Columns(fmt.Sprintf("%s %s", s.LineIcon(frame.Line), lineLabel(frame)), clock, width))
}

func lineLabel(frame Frame) string {
	if frame.LineName != "" {
		return frame.LineName
	}
	if frame.Line == "" {
		return "All lines"
	}
	return frame.Line.String()
}

func (s *FullLayoutStrategy) overview(w io.Writer, snap *analytics.Snapshot, width int) {
	sum := snap.Summary
	s.println(w, s.Columns(
		fmt.Sprintf("📊 Total events: %s", util.FormatNumber(sum.TotalEvents)),
		fmt.Sprintf("📅 Today: %s", util.FormatNumber(sum.TodayEvents)),
		width))
	s.println(w, s.Columns(
		fmt.Sprintf("🗓  Last 7 days: %s", util.FormatNumber(sum.WeeklyEvents)),
		fmt.Sprintf("📆 Last 30 days: %s", util.FormatNumber(sum.MonthlyEvents)),
		width))
}

func (s *FullLayoutStrategy) traffic(w io.Writer, snap *analytics.Snapshot, width int) {
	t := snap.Summary.Traffic
	s.trafficLine(w, "Today", t.TodayQueries, t.TodayResponses, width)
	s.trafficLine(w, "Week ", t.WeekQueries, t.WeekResponses, width)
	s.trafficLine(w, "Month", t.MonthQueries, t.MonthResponses, width)
}

func (s *FullLayoutStrategy) trafficLine(w io.Writer, label string, queries, responses int, width int) {
	rate := s.ResponseRate(queries, responses)
	line := fmt.Sprintf("🔁 %s %s %s  %s queries / %s responses",
		label, s.ProgressBar(rate, barWidth), s.FormatPercentage(rate),
		util.FormatNumber(queries), util.FormatNumber(responses))
	s.println(w, s.Row(line, width))
}

func (s *FullLayoutStrategy) lineSection(w io.Writer, frame Frame, snap *analytics.Snapshot, width int) {
	share := 0.0
	if snap.Summary.TotalEvents > 0 {
		share = float64(snap.LineEvents) / float64(snap.Summary.TotalEvents) * 100
	}
	s.println(w, s.Columns(
		fmt.Sprintf("%s %s line: %s events (%s)", s.LineIcon(frame.Line), frame.Line,
			util.FormatNumber(snap.LineEvents), s.FormatPercentage(share)),
		fmt.Sprintf("Today: %d queries / %d responses", snap.LineTraffic.TodayQueries, snap.LineTraffic.TodayResponses),
		width))

	if len(snap.LineEventTypes) == 0 {
		return
	}
	rows := interaction.RowsFromCounts(snap.LineEventTypes)
	interaction.NewCountSorter().Sort(rows)
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = fmt.Sprintf("%s %d", analytics.HumanizeEventType(row.Name), row.Count)
	}
	s.println(w, s.Row("   "+strings.Join(parts, " · "), width))
}

func (s *FullLayoutStrategy) eventTypes(w io.Writer, frame Frame, snap *analytics.Snapshot, width int) {
	s.println(w, s.Title(fmt.Sprintf("Event types (by %s)", frame.SortField), width))
	if len(frame.EventTypes) == 0 {
		s.println(w, s.Row("No events recorded yet", width))
		return
	}

	peak := 0
	nameWidth := 0
	rows := frame.EventTypes
	if len(rows) > maxTypeRows {
		rows = rows[:maxTypeRows]
	}
	for _, row := range rows {
		if row.Count > peak {
			peak = row.Count
		}
		if n := util.GetDisplayWidth(analytics.HumanizeEventType(row.Name)); n > nameWidth {
			nameWidth = n
		}
	}
	for _, row := range rows {
		name := util.PadString(analytics.HumanizeEventType(row.Name), nameWidth, true)
		bar := util.PadString(util.Bar(row.Count, peak, barWidth), barWidth, true)
		s.println(w, s.Row(fmt.Sprintf("%s  %s %s", name, bar, util.FormatNumber(row.Count)), width))
	}
	if hidden := len(frame.EventTypes) - len(rows); hidden > 0 {
		s.println(w, s.Row(fmt.Sprintf("… %d more", hidden), width))
	}
}

func (s *FullLayoutStrategy) behavior(w io.Writer, snap *analytics.Snapshot, width int) {
	b := snap.Behavior
	planning := "n/a"
	if b.AveragePlanningTime > 0 {
		planning = util.FormatSeconds(b.AveragePlanningTime)
	}
	s.println(w, s.Columns(
		fmt.Sprintf("🧭 Planned routes: %s", util.FormatNumber(b.PlannedRoutes)),
		fmt.Sprintf("⏱  Avg planning time: %s", planning),
		width))

	var peaks []string
	for _, h := range b.PeakUsageHours {
		peaks = append(peaks, fmt.Sprintf("%02d:00 (%d)", h.Hour, h.Count))
	}
	if len(peaks) == 0 {
		peaks = append(peaks, "n/a")
	}
	s.println(w, s.Row("🔥 Peak hours: "+strings.Join(peaks, ", "), width))

	for i := 0; i < maxPlaceRows; i++ {
		left, right := placeAt(b.PopularOrigins, i), placeAt(b.PopularDestinations, i)
		if left == "" && right == "" {
			if i == 0 {
				s.println(w, s.Columns("📍 Origins: n/a", "🏁 Destinations: n/a", width))
			}
			break
		}
		if i == 0 {
			left, right = "📍 "+left, "🏁 "+right
		} else {
			left, right = "   "+left, "   "+right
		}
		s.println(w, s.Columns(left, right, width))
	}
}

func placeAt(places []analytics.PlaceCount, i int) string {
	if i >= len(places) {
		return ""
	}
	return fmt.Sprintf("%s (%d)", places[i].Name, places[i].Count)
}

func (s *FullLayoutStrategy) recent(w io.Writer, snap *analytics.Snapshot, loc *time.Location, width int) {
	s.println(w, s.Title("Recent activity", width))
	if len(snap.Recent) == 0 {
		s.println(w, s.Row("Nothing yet", width))
		return
	}
	rows := snap.Recent
	if len(rows) > maxRecentRows {
		rows = rows[:maxRecentRows]
	}
	for _, e := range rows {
		when := "--"
		if ts, ok := analytics.ParseTimestamp(e.CreatedAt, loc); ok {
			when = ts.Format("Jan 2 15:04:05")
		}
		line := model.LineCode(e.LineCode)
		s.println(w, s.Row(fmt.Sprintf("%s  %s %s", util.PadString(when, 15, true), s.LineIcon(line), analytics.HumanizeEventType(e.EventType)), width))
	}
}

func (s *FullLayoutStrategy) status(w io.Writer, frame Frame, width int) {
	updated := "never"
	if !frame.UpdatedAt.IsZero() {
		updated = frame.UpdatedAt.Format("15:04:05")
	}
	left := fmt.Sprintf("Updated %s  │  %d live updates", updated, frame.Realtime)
	right := "q quit · r refresh · l line · s sort · t layout · h help"
	if frame.Loading {
		right = "⏳ Refreshing…"
	}
	if frame.Status != "" {
		right = "⚠  " + frame.Status
	}
	s.println(w, s.Columns(left, right, width))
}
