package layout

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
)

func sampleFrame() Frame {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	events := []model.AnalyticsEvent{
		{ID: "1", EventType: model.EventRoutePlanRequest, CreatedAt: "2024-05-15T11:00:00Z", LineCode: "GREEN"},
		{ID: "2", EventType: model.EventRoutePlanResponse, CreatedAt: "2024-05-15T11:00:02Z", LineCode: "GREEN",
			EventDetails: []byte(`{"route_plans":[{"origin":"Pims","destination":"Saddar"}]}`)},
		{ID: "3", EventType: model.EventWebsiteOpened, CreatedAt: "2024-05-14T09:00:00Z"},
	}
	snap := analytics.Build(events, now, analytics.SnapshotOptions{Line: model.LineGreen})
	rows := interaction.RowsFromCounts(snap.Summary.EventTypeCounts)
	interaction.NewCountSorter().Sort(rows)

	return Frame{
		Snapshot:   &snap,
		EventTypes: rows,
		Line:       model.LineGreen,
		LineName:   "Green Line",
		Timezone:   "UTC",
		Now:        now,
		UpdatedAt:  now,
		Realtime:   4,
	}
}

func TestGetLayoutStrategy(t *testing.T) {
	tests := []struct {
		name        string
		layoutStyle int
		wantName    string
	}{
		{"full_dashboard_style", StyleFull, "Full Dashboard"},
		{"minimal_dashboard_style", StyleMinimal, "Minimal Dashboard"},
		{"unknown_style_defaults_to_full", 99, "Full Dashboard"},
		{"negative_style_defaults_to_full", -1, "Full Dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := GetLayoutStrategy(tt.layoutStyle)
			require.NotNil(t, strategy)
			assert.Equal(t, tt.wantName, strategy.GetName())
		})
	}
}

func TestNextStyle(t *testing.T) {
	assert.Equal(t, StyleMinimal, NextStyle(StyleFull))
	assert.Equal(t, StyleFull, NextStyle(StyleMinimal))
}

func TestFullLayoutRender(t *testing.T) {
	var buf bytes.Buffer
	(&FullLayoutStrategy{}).Render(&buf, sampleFrame(), 90)
	out := buf.String()

	assert.Contains(t, out, "METRO BUS ANALYTICS")
	assert.Contains(t, out, "Green Line")
	assert.Contains(t, out, "Total events: 3")
	assert.Contains(t, out, "GREEN line: 2 events")
	assert.Contains(t, out, "Auto Route Planned Request 1 · Auto Route Planned Response 1")
	assert.Contains(t, out, "Auto Route Planned Request")
	assert.Contains(t, out, "Pims (1)")
	assert.Contains(t, out, "Saddar (1)")
	assert.Contains(t, out, "Avg planning time: 2.0s")
	assert.Contains(t, out, "4 live updates")
	assert.Contains(t, out, "EVENT TYPES (BY COUNT)")
}

func TestFullLayoutHeaderKeepsLineLabel(t *testing.T) {
	for _, width := range []int{defaultWidth, 80, 100} {
		t.Run(fmt.Sprint(width), func(t *testing.T) {
			var buf bytes.Buffer
			(&FullLayoutStrategy{}).Render(&buf, sampleFrame(), width)
			lines := strings.Split(buf.String(), "\n")
			require.Greater(t, len(lines), 3)

			assert.Contains(t, lines[1], "METRO BUS ANALYTICS")
			assert.Contains(t, lines[2], "🟢 Green Line")
			assert.Contains(t, lines[2], "UTC  │  12:00:00")
			for _, line := range lines[:3] {
				assert.Equal(t, width, runewidth.StringWidth(line))
			}
		})
	}
}

func TestFullLayoutRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	frame := Frame{Now: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), Loading: true}
	(&FullLayoutStrategy{}).Render(&buf, frame, 80)
	out := buf.String()

	assert.Contains(t, out, "All lines")
	assert.NotContains(t, out, "│   │")
	assert.Contains(t, out, "No events recorded yet")
	assert.Contains(t, out, "Nothing yet")
	assert.Contains(t, out, "Updated never")
	assert.Contains(t, out, "Refreshing")
	assert.NotContains(t, out, "line:")
}

func TestFullLayoutRenderStatusWins(t *testing.T) {
	var buf bytes.Buffer
	frame := sampleFrame()
	frame.Loading = true
	frame.Status = "store unavailable"
	(&FullLayoutStrategy{}).Render(&buf, frame, 100)

	assert.Contains(t, buf.String(), "store unavailable")
	assert.NotContains(t, buf.String(), "Refreshing")
}

func TestMinimalLayoutRender(t *testing.T) {
	var buf bytes.Buffer
	(&MinimalLayoutStrategy{}).Render(&buf, sampleFrame(), 120)
	out := strings.TrimRight(buf.String(), "\n")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, out, "Metro: 📊 3")
	assert.Contains(t, out, "1/1 (100.0%)")
	assert.Contains(t, out, "Green Line 2")
	assert.Equal(t, 120, runewidth.StringWidth(out))
}

func TestSizer(t *testing.T) {
	s := Sizer{}

	assert.Equal(t, "ab   ", s.PadString("ab", 5, true))
	assert.Equal(t, "   ab", s.PadString("ab", 5, false))
	assert.Equal(t, "abcdef", s.PadString("abcdef", 3, true))

	assert.Equal(t, "abc  ", s.Fit("abc", 5))
	assert.Equal(t, 5, runewidth.StringWidth(s.Fit("abcdefghij", 5)))
	assert.True(t, strings.HasSuffix(s.Fit("abcdefghij", 5), "…"))
	assert.Equal(t, "", s.Fit("abc", 0))

	assert.Equal(t, defaultWidth, s.ClampWidth(0))
	assert.Equal(t, minWidth, s.ClampWidth(20))
	assert.Equal(t, 78, s.ClampWidth(80))
	assert.Equal(t, maxWidth, s.ClampWidth(300))
}

func TestBaseStrategyHelpers(t *testing.T) {
	b := &BaseStrategy{}

	assert.Equal(t, "[██████████░░░░░░░░░░]", b.ProgressBar(50, 20))
	assert.Equal(t, "[░░░░]", b.ProgressBar(-5, 4))
	assert.Equal(t, "[████]", b.ProgressBar(250, 4))

	assert.Equal(t, 0.0, b.ResponseRate(0, 3))
	assert.Equal(t, 50.0, b.ResponseRate(4, 2))
	assert.Equal(t, "12.5%", b.FormatPercentage(12.5))

	assert.Equal(t, "  ab  ", b.CenterText("ab", 6))
	assert.Equal(t, "abc", b.CenterText("abc", 2))

	assert.Equal(t, "🟢", b.LineIcon(model.LineGreen))
	assert.Equal(t, "🔵", b.LineIcon(model.LineBlue))
	assert.Equal(t, "⚪", b.LineIcon(""))

	assert.Equal(t, "│ hi   │", b.Row("hi", 8))
	assert.Equal(t, "│ TRAFFIC  │", b.Title("traffic", 12))
}
