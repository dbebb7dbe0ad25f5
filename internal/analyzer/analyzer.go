// Package analyzer produces one-shot analytics reports from the event log.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/presentation/formatter"
	"github.com/penwyp/go-metrobus/internal/util"
)

var durationPattern = regexp.MustCompile(`(\d+)([hymwd])`)

type Config struct {
	OutputFormat string
	Timezone     string
	// Duration limits the report to recent events, e.g. 12h, 7d, 2w3d.
	Duration     string
	Line         model.LineCode
	SeriesHours  int
	RecentEvents int
}

// EventSource is the read side of the event store used by reports.
type EventSource interface {
	ListAll(ctx context.Context) ([]model.AnalyticsEvent, error)
	ListSince(ctx context.Context, since time.Time) ([]model.AnalyticsEvent, error)
}

type Analyzer struct {
	config *Config
	source EventSource
	out    io.Writer
	now    func() time.Time
}

func New(config *Config, source EventSource, out io.Writer) *Analyzer {
	if config.Timezone == "" {
		config.Timezone = "Local"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = formatter.OutputTable
	}
	return &Analyzer{
		config: config,
		source: source,
		out:    out,
		now:    time.Now,
	}
}

// Run loads events, aggregates them and writes the report.
func (a *Analyzer) Run(ctx context.Context) error {
	startTime := time.Now()
	util.LogInfo("Starting analysis of metro bus analytics...")

	f, err := formatter.New(a.config.OutputFormat)
	if err != nil {
		return err
	}
	loc, err := util.LoadLocation(a.config.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	now := a.now().In(loc)

	// Phase 1: Load events
	loadStart := time.Now()
	events, err := a.loadEvents(ctx, now)
	if err != nil {
		return err
	}
	loadDuration := time.Since(loadStart)
	util.LogDebugf("Phase 1 - Event load duration: %v, found %d events", loadDuration, len(events))

	// Phase 2: Aggregate
	aggStart := time.Now()
	snap := analytics.Build(events, now, analytics.SnapshotOptions{
		SeriesHours:  a.config.SeriesHours,
		RecentEvents: a.config.RecentEvents,
		Line:         a.config.Line,
	})
	aggDuration := time.Since(aggStart)
	util.LogDebugf("Phase 2 - Aggregation duration: %v", aggDuration)

	// Phase 3: Format and output
	outputStart := time.Now()
	err = f.Format(a.out, formatter.Report{
		GeneratedAt: now,
		Timezone:    a.config.Timezone,
		Snapshot:    snap,
	})
	outputDuration := time.Since(outputStart)
	util.LogDebugf("Phase 3 - Formatting and output duration: %v", outputDuration)

	util.LogDebugf("Total duration: %v (load:%v aggregate:%v output:%v)",
		time.Since(startTime), loadDuration, aggDuration, outputDuration)
	return err
}

func (a *Analyzer) loadEvents(ctx context.Context, now time.Time) ([]model.AnalyticsEvent, error) {
	from, err := parseDuration(a.config.Duration, now)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		events, err := a.source.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load analytics events: %w", err)
		}
		return events, nil
	}
	events, err := a.source.ListSince(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics events since %s: %w", from.Format(time.RFC3339), err)
	}
	return events, nil
}

// parseDuration returns now minus the duration, or the zero time for "".
// Months count as 30 days and years as 365.
func parseDuration(durationStr string, now time.Time) (time.Time, error) {
	if durationStr == "" {
		return time.Time{}, nil
	}

	matches := durationPattern.FindAllStringSubmatch(durationStr, -1)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid duration format: %s", durationStr)
	}

	var totalDuration time.Duration
	for _, match := range matches {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid number in duration: %s", match[1])
		}

		switch match[2] {
		case "h":
			totalDuration += time.Duration(value) * time.Hour
		case "d":
			totalDuration += time.Duration(value) * 24 * time.Hour
		case "w":
			totalDuration += time.Duration(value) * 7 * 24 * time.Hour
		case "m":
			totalDuration += time.Duration(value) * 30 * 24 * time.Hour
		case "y":
			totalDuration += time.Duration(value) * 365 * 24 * time.Hour
		}
	}

	return now.Add(-totalDuration), nil
}
