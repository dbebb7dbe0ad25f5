// Package analytics folds analytics event rows into the grouped and windowed
// summaries shown on the dashboard. Every function here is pure: the only
// input besides the rows is the reference instant, whose location decides
// what "local time" means.
package analytics

import (
	"sort"
	"time"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

const (
	weekDays  = 7
	monthDays = 30

	dayKeyLayout   = "2006-01-02"
	dayLabelLayout = "Jan 2"
)

// HourlyTraffic holds query/response counts for one hour of the day.
type HourlyTraffic struct {
	Hour      int `json:"hour"`
	Queries   int `json:"queries"`
	Responses int `json:"responses"`
}

// DailyTraffic holds query/response counts for one local calendar day.
type DailyTraffic struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	Queries   int    `json:"queries"`
	Responses int    `json:"responses"`
}

// TrafficInsights is the query/response view of the event log.
type TrafficInsights struct {
	TodayQueries   int             `json:"today_queries"`
	TodayResponses int             `json:"today_responses"`
	WeekQueries    int             `json:"week_queries"`
	WeekResponses  int             `json:"week_responses"`
	MonthQueries   int             `json:"month_queries"`
	MonthResponses int             `json:"month_responses"`
	Hourly         []HourlyTraffic `json:"hourly"`
	Daily          []DailyTraffic  `json:"daily"`
}

// Summary is everything the dashboard derives from one fetch.
type Summary struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	TotalEvents     int             `json:"total_events"`
	EventTypeCounts map[string]int  `json:"event_type_counts"`
	LineCodeCounts  map[string]int  `json:"line_code_counts"`
	TodayEvents     int             `json:"today_events"`
	WeeklyEvents    int             `json:"weekly_events"`
	MonthlyEvents   int             `json:"monthly_events"`
	Traffic         TrafficInsights `json:"traffic"`
}

// Windows are the rolling boundaries relative to a reference instant.
type Windows struct {
	Today time.Time
	Week  time.Time
	Month time.Time
}

// WindowsAt computes the today/week/month boundaries for now in now's location.
func WindowsAt(now time.Time) Windows {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return Windows{
		Today: today,
		Week:  today.AddDate(0, 0, -weekDays),
		Month: today.AddDate(0, 0, -monthDays),
	}
}

// Aggregate reduces events into a Summary. Events may come in any order.
func Aggregate(events []model.AnalyticsEvent, now time.Time) Summary {
	loc := now.Location()
	win := WindowsAt(now)

	summary := Summary{
		GeneratedAt:     now,
		TotalEvents:     len(events),
		EventTypeCounts: make(map[string]int),
		LineCodeCounts:  make(map[string]int),
	}

	hourly := make(map[int]*HourlyTraffic)
	daily := make(map[string]*DailyTraffic)
	traffic := &summary.Traffic

	for _, event := range events {
		summary.EventTypeCounts[event.EventType]++
		if event.LineCode != "" {
			summary.LineCodeCounts[event.LineCode]++
		}

		ts, ok := ParseTimestamp(event.CreatedAt, loc)
		if !ok {
			continue
		}
		isToday := !ts.Before(win.Today)
		isWeek := !ts.Before(win.Week)
		isMonth := !ts.Before(win.Month)

		if isToday {
			summary.TodayEvents++
		}
		if isWeek {
			summary.WeeklyEvents++
		}
		if isMonth {
			summary.MonthlyEvents++
		}

		category := Classify(event.EventType)
		if category == CategoryExcluded {
			continue
		}

		switch category {
		case CategoryResponse:
			if isToday {
				traffic.TodayResponses++
			}
			if isWeek {
				traffic.WeekResponses++
			}
			if isMonth {
				traffic.MonthResponses++
			}
		case CategoryQuery:
			if isToday {
				traffic.TodayQueries++
			}
			if isWeek {
				traffic.WeekQueries++
			}
			if isMonth {
				traffic.MonthQueries++
			}
		}

		hour := ts.Hour()
		h, ok := hourly[hour]
		if !ok {
			h = &HourlyTraffic{Hour: hour}
			hourly[hour] = h
		}

		key := ts.Format(dayKeyLayout)
		day, ok := daily[key]
		if !ok {
			day = &DailyTraffic{Date: key, Label: ts.Format(dayLabelLayout)}
			daily[key] = day
		}

		switch category {
		case CategoryResponse:
			h.Responses++
			day.Responses++
		case CategoryQuery:
			h.Queries++
			day.Queries++
		}
	}

	traffic.Hourly = make([]HourlyTraffic, 0, len(hourly))
	for _, h := range hourly {
		traffic.Hourly = append(traffic.Hourly, *h)
	}
	sort.Slice(traffic.Hourly, func(i, j int) bool {
		return traffic.Hourly[i].Hour < traffic.Hourly[j].Hour
	})

	traffic.Daily = make([]DailyTraffic, 0, len(daily))
	for _, d := range daily {
		traffic.Daily = append(traffic.Daily, *d)
	}
	// ISO dates sort chronologically as strings.
	sort.Slice(traffic.Daily, func(i, j int) bool {
		return traffic.Daily[i].Date < traffic.Daily[j].Date
	})

	return summary
}

// FilterByLine returns the events recorded against line.
func FilterByLine(events []model.AnalyticsEvent, line model.LineCode) []model.AnalyticsEvent {
	filtered := make([]model.AnalyticsEvent, 0)
	for _, event := range events {
		if event.LineCode == string(line) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// CountByType tallies event types; used for the line-scoped breakdown.
func CountByType(events []model.AnalyticsEvent) map[string]int {
	counts := make(map[string]int)
	for _, event := range events {
		counts[event.EventType]++
	}
	return counts
}

// LatestEvents returns up to n events, most recent first. Events with an
// unparseable timestamp sort as the epoch. n <= 0 returns all of them.
func LatestEvents(events []model.AnalyticsEvent, n int, loc *time.Location) []model.AnalyticsEvent {
	type stamped struct {
		event model.AnalyticsEvent
		ts    time.Time
	}
	items := make([]stamped, len(events))
	for i, event := range events {
		ts, _ := ParseTimestamp(event.CreatedAt, loc)
		items[i] = stamped{event: event, ts: ts}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ts.After(items[j].ts)
	})

	if n <= 0 || n > len(items) {
		n = len(items)
	}
	result := make([]model.AnalyticsEvent, n)
	for i := 0; i < n; i++ {
		result[i] = items[i].event
	}
	return result
}

// TrafficTotals sums query and response counts over hourly buckets.
func TrafficTotals(hourly []HourlyTraffic) (queries, responses int) {
	for _, h := range hourly {
		queries += h.Queries
		responses += h.Responses
	}
	return queries, responses
}
