package layout

import (
	"fmt"
	"io"

	"github.com/penwyp/go-metrobus/internal/util"
)

// MinimalLayoutStrategy implements the minimal dashboard layout
type MinimalLayoutStrategy struct {
	BaseStrategy
}

func (s *MinimalLayoutStrategy) GetName() string {
	return "Minimal Dashboard"
}

func (s *MinimalLayoutStrategy) Render(w io.Writer, frame Frame, width int) {
	var total, today, queries, responses, lineEvents int
	if snap := frame.Snapshot; snap != nil {
		total = snap.Summary.TotalEvents
		today = snap.Summary.TodayEvents
		queries = snap.Summary.Traffic.TodayQueries
		responses = snap.Summary.Traffic.TodayResponses
		lineEvents = snap.LineEvents
	}

	line := fmt.Sprintf("Metro: 📊 %s | 📅 %s today | 🔁 %d/%d (%s) | %s %s %s | %s",
		util.FormatNumber(total),
		util.FormatNumber(today),
		queries, responses, s.FormatPercentage(s.ResponseRate(queries, responses)),
		s.LineIcon(frame.Line), lineLabel(frame), util.FormatNumber(lineEvents),
		frame.Now.Format("15:04:05"))
	if frame.Loading {
		line += " | ⏳"
	}
	if frame.Status != "" {
		line += " | ⚠ " + frame.Status
	}
	s.println(w, s.GetSizer().Fit(line, width))
}
