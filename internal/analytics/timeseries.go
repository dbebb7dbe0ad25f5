package analytics

import (
	"sort"
	"time"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

const (
	// DefaultSeriesHours is the look-back used when none is given.
	DefaultSeriesHours = 24

	seriesLabelLayout = "Jan 2, 15"
)

// TimeSeriesPoint is the event volume of one local clock hour.
type TimeSeriesPoint struct {
	Start      time.Time      `json:"start"`
	Label      string         `json:"label"`
	Count      int            `json:"count"`
	EventTypes map[string]int `json:"event_types"`
}

// TimeSeries buckets the events of the last hours by local clock hour.
// Points are chronological; empty hours are omitted.
func TimeSeries(events []model.AnalyticsEvent, now time.Time, hours int) []TimeSeriesPoint {
	if hours <= 0 {
		hours = DefaultSeriesHours
	}
	loc := now.Location()
	since := now.Add(-time.Duration(hours) * time.Hour)

	buckets := make(map[int64]*TimeSeriesPoint)
	for _, event := range events {
		ts, ok := ParseTimestamp(event.CreatedAt, loc)
		if !ok || ts.Before(since) {
			continue
		}
		start := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, loc)
		key := start.Unix()
		point, ok := buckets[key]
		if !ok {
			point = &TimeSeriesPoint{
				Start:      start,
				Label:      start.Format(seriesLabelLayout),
				EventTypes: make(map[string]int),
			}
			buckets[key] = point
		}
		point.Count++
		point.EventTypes[event.EventType]++
	}

	points := make([]TimeSeriesPoint, 0, len(buckets))
	for _, p := range buckets {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Start.Before(points[j].Start)
	})
	return points
}
