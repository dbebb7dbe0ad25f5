// Package fixtures writes analytics event logs in the file store layout
// for tests that need realistic journeys on disk.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

// ResponseDelay separates a logged plan request from its response.
const ResponseDelay = 3 * time.Second

// EventLogGenerator accumulates events and writes them as one JSONL file
// per UTC day.
type EventLogGenerator struct {
	baseDir string
	seq     int
	events  []model.AnalyticsEvent
}

// NewEventLogGenerator creates a generator writing below baseDir.
func NewEventLogGenerator(baseDir string) *EventLogGenerator {
	return &EventLogGenerator{baseDir: baseDir}
}

func (g *EventLogGenerator) add(eventType string, at time.Time, details interface{}, line model.LineCode) error {
	g.seq++
	e := model.AnalyticsEvent{
		ID:        fmt.Sprintf("fixture-%04d", g.seq),
		EventType: eventType,
		CreatedAt: at.UTC().Format(time.RFC3339Nano),
		LineCode:  string(line),
	}
	if details != nil {
		raw, err := sonic.Marshal(details)
		if err != nil {
			return err
		}
		e.EventDetails = raw
	}
	g.events = append(g.events, e)
	return nil
}

// WebsiteOpened records a visit.
func (g *EventLogGenerator) WebsiteOpened(at time.Time) error {
	return g.add(model.EventWebsiteOpened, at, nil, "")
}

// LineSelected records a switch to line.
func (g *EventLogGenerator) LineSelected(at time.Time, line model.LineCode) error {
	return g.add(model.EventLineSelected, at, model.LineSelectedDetails{LineCode: line}, line)
}

// Journey records a plan request at start and, when departures is not
// empty, a response ResponseDelay later with one single-segment plan per
// departure ("HH:MM:SS").
func (g *EventLogGenerator) Journey(start time.Time, line model.LineCode, origin, destination string, departures ...string) error {
	err := g.add(model.EventRoutePlanRequest, start, model.RoutePlanRequestDetails{
		Origin:        origin,
		Destination:   destination,
		PreferredTime: start.Format("15:04:05"),
		Timestamp:     start.UTC().Format(time.RFC3339Nano),
	}, line)
	if err != nil || len(departures) == 0 {
		return err
	}

	answered := start.Add(ResponseDelay)
	plans := make([]model.RoutePlan, len(departures))
	for i, dep := range departures {
		plans[i] = model.RoutePlan{
			Origin:        origin,
			Destination:   destination,
			TotalDuration: 20,
			MetroLines:    []model.LineCode{line},
			Segments: []model.RouteSegment{{
				RouteName:       fmt.Sprintf("%s-%d", line, i+1),
				StartStop:       origin,
				EndStop:         destination,
				DepartureTime:   dep,
				DurationMinutes: 20,
				MetroLine:       line,
			}},
		}
	}
	return g.add(model.EventRoutePlanResponse, answered, model.RoutePlanDetails{
		RoutePlans: plans,
		Timestamp:  answered.UTC().Format(time.RFC3339Nano),
	}, line)
}

// Chat records a user message and, when reply is not empty, the assistant
// answer a second later.
func (g *EventLogGenerator) Chat(at time.Time, message, reply string) error {
	err := g.add(model.EventUserMessageSent, at, model.ChatSentDetails{
		Message:   message,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}, "")
	if err != nil || reply == "" {
		return err
	}
	answered := at.Add(time.Second)
	return g.add(model.EventBotMessageReceived, answered, model.ChatReceivedDetails{
		Response:  reply,
		Timestamp: answered.UTC().Format(time.RFC3339Nano),
	}, "")
}

// Events returns everything recorded so far, oldest first.
func (g *EventLogGenerator) Events() []model.AnalyticsEvent {
	out := make([]model.AnalyticsEvent, len(g.events))
	copy(out, g.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// Write appends the recorded events to events-YYYY-MM-DD.jsonl files and
// returns the paths written.
func (g *EventLogGenerator) Write() ([]string, error) {
	if err := os.MkdirAll(g.baseDir, 0755); err != nil {
		return nil, err
	}

	byDay := make(map[string][]byte)
	var days []string
	for _, e := range g.Events() {
		day := e.CreatedAt[:10]
		if _, ok := byDay[day]; !ok {
			days = append(days, day)
		}
		line, err := sonic.Marshal(e)
		if err != nil {
			return nil, err
		}
		byDay[day] = append(append(byDay[day], line...), '\n')
	}

	paths := make([]string, 0, len(days))
	for _, day := range days {
		path := filepath.Join(g.baseDir, "events-"+day+".jsonl")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		_, err = f.Write(byDay[day])
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// GenerateCommuterDay records a typical day on both lines starting at
// midnight UTC of day: a visit, a morning and an evening journey, an
// unanswered request, a line switch and a chat exchange.
func (g *EventLogGenerator) GenerateCommuterDay(day time.Time) error {
	base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	steps := []func() error{
		func() error { return g.WebsiteOpened(base.Add(7*time.Hour + 55*time.Minute)) },
		func() error {
			return g.Journey(base.Add(8*time.Hour), model.LineGreen, "Central Station", "Airport", "08:10:00", "08:25:00")
		},
		func() error { return g.Journey(base.Add(12*time.Hour), model.LineGreen, "Airport", "Stadium") },
		func() error { return g.LineSelected(base.Add(17*time.Hour+50*time.Minute), model.LineBlue) },
		func() error {
			return g.Journey(base.Add(18*time.Hour), model.LineBlue, "Stadium", "Central Station", "18:05:00")
		},
		func() error {
			return g.Chat(base.Add(18*time.Hour+30*time.Minute), "last bus home?", "The last bus leaves at 23:40.")
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
