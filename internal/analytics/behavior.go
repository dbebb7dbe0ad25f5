package analytics

import (
	"sort"
	"time"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

const (
	topPlaces        = 10
	topHours         = 8
	maxPlanningDelay = 60 * time.Second
)

// PlaceCount is how often a stop appeared as origin or destination.
type PlaceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HourCount is how many route plans were answered in an hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// UserBehaviorMetrics describes how riders use the planner.
type UserBehaviorMetrics struct {
	PopularOrigins      []PlaceCount  `json:"popular_origins"`
	PopularDestinations []PlaceCount  `json:"popular_destinations"`
	PeakUsageHours      []HourCount   `json:"peak_usage_hours"`
	AveragePlanningTime time.Duration `json:"average_planning_time"`
	PlannedRoutes       int           `json:"planned_routes"`
}

// UserBehavior derives rider behavior from route planning events. Planning
// time pairs each response with the latest earlier request on the same line
// no more than a minute before it.
func UserBehavior(events []model.AnalyticsEvent, loc *time.Location) UserBehaviorMetrics {
	if loc == nil {
		loc = time.Local
	}
	origins := make(map[string]int)
	destinations := make(map[string]int)
	hourly := make(map[int]int)
	requests := make(map[string][]time.Time)

	type response struct {
		line string
		ts   time.Time
	}
	var responses []response
	metrics := UserBehaviorMetrics{}

	for _, event := range events {
		switch event.EventType {
		case model.EventRoutePlanRequest:
			if ts, ok := ParseTimestamp(event.CreatedAt, loc); ok {
				requests[event.LineCode] = append(requests[event.LineCode], ts)
			}
			continue
		case model.EventRoutePlanResponse:
		default:
			continue
		}

		metrics.PlannedRoutes++

		var details model.RoutePlanDetails
		if err := event.DecodeDetails(&details); err != nil {
			util.LogDebugf("Skip undecodable route plan details for event %s: %v", event.ID, err)
		} else if len(details.RoutePlans) > 0 {
			origin, destination := details.RoutePlans[0].Endpoints()
			if origin != "" {
				origins[origin]++
			}
			if destination != "" {
				destinations[destination]++
			}
		}

		if ts, ok := ParseTimestamp(event.CreatedAt, loc); ok {
			hourly[ts.Hour()]++
			responses = append(responses, response{line: event.LineCode, ts: ts})
		}
	}

	for line := range requests {
		sort.Slice(requests[line], func(i, j int) bool {
			return requests[line][i].Before(requests[line][j])
		})
	}

	var total time.Duration
	var paired int
	for _, resp := range responses {
		reqs := requests[resp.line]
		// First request strictly after the response; the one before it is the latest candidate.
		idx := sort.Search(len(reqs), func(i int) bool { return reqs[i].After(resp.ts) })
		if idx == 0 {
			continue
		}
		delay := resp.ts.Sub(reqs[idx-1])
		if delay < maxPlanningDelay {
			total += delay
			paired++
		}
	}
	if paired > 0 {
		metrics.AveragePlanningTime = total / time.Duration(paired)
	}

	metrics.PopularOrigins = topPlacesOf(origins, topPlaces)
	metrics.PopularDestinations = topPlacesOf(destinations, topPlaces)

	metrics.PeakUsageHours = make([]HourCount, 0, len(hourly))
	for hour, count := range hourly {
		metrics.PeakUsageHours = append(metrics.PeakUsageHours, HourCount{Hour: hour, Count: count})
	}
	sort.Slice(metrics.PeakUsageHours, func(i, j int) bool {
		a, b := metrics.PeakUsageHours[i], metrics.PeakUsageHours[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Hour < b.Hour
	})
	if len(metrics.PeakUsageHours) > topHours {
		metrics.PeakUsageHours = metrics.PeakUsageHours[:topHours]
	}

	return metrics
}

func topPlacesOf(counts map[string]int, limit int) []PlaceCount {
	places := make([]PlaceCount, 0, len(counts))
	for name, count := range counts {
		places = append(places, PlaceCount{Name: name, Count: count})
	}
	sort.Slice(places, func(i, j int) bool {
		if places[i].Count != places[j].Count {
			return places[i].Count > places[j].Count
		}
		return places[i].Name < places[j].Name
	})
	if len(places) > limit {
		places = places[:limit]
	}
	return places
}
