package analytics

import (
	"time"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

// DefaultRecentEvents is how many rows the recent activity list keeps.
const DefaultRecentEvents = 10

// SnapshotOptions tune Build.
type SnapshotOptions struct {
	SeriesHours  int
	RecentEvents int
	// Line, when set, is the line whose share of the log is reported
	// separately in LineEvents and LineTraffic.
	Line model.LineCode
}

// Snapshot bundles every view derived from one fetch of the event log.
type Snapshot struct {
	Summary     Summary                `json:"summary"`
	Behavior    UserBehaviorMetrics    `json:"behavior"`
	Series      []TimeSeriesPoint      `json:"series"`
	Recent      []model.AnalyticsEvent `json:"recent"`
	Line        model.LineCode         `json:"line,omitempty"`
	LineEvents  int                    `json:"line_events"`
	LineTraffic TrafficInsights        `json:"line_traffic"`
	// LineEventTypes tallies the event types recorded on Line.
	LineEventTypes map[string]int `json:"line_event_types,omitempty"`
}

// Build derives a Snapshot from events at the reference instant now.
func Build(events []model.AnalyticsEvent, now time.Time, opts SnapshotOptions) Snapshot {
	if opts.SeriesHours <= 0 {
		opts.SeriesHours = DefaultSeriesHours
	}
	if opts.RecentEvents <= 0 {
		opts.RecentEvents = DefaultRecentEvents
	}

	snap := Snapshot{
		Summary:  Aggregate(events, now),
		Behavior: UserBehavior(events, now.Location()),
		Series:   TimeSeries(events, now, opts.SeriesHours),
		Recent:   LatestEvents(events, opts.RecentEvents, now.Location()),
		Line:     opts.Line,
	}
	if opts.Line != "" {
		onLine := FilterByLine(events, opts.Line)
		snap.LineEvents = len(onLine)
		snap.LineTraffic = Aggregate(onLine, now).Traffic
		snap.LineEventTypes = CountByType(onLine)
	}
	return snap
}
