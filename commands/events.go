package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/store"
	"github.com/penwyp/go-metrobus/internal/util"
)

var (
	eventsType   string
	eventsByLine bool
	eventsLimit  int
	eventsOffset int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Browse the analytics event log",
	Example: `  go-metrobus events --limit 20
  go-metrobus events --type auto_route_planned_request
  go-metrobus events --by-line --line blue`,
	Args: cobra.NoArgs,
	RunE: runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "Only events of this type")
	eventsCmd.Flags().BoolVar(&eventsByLine, "by-line", false, "Only events recorded against --line")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", store.DefaultPageSize, "Page size")
	eventsCmd.Flags().IntVar(&eventsOffset, "offset", 0, "Events to skip")
}

// EventQuery selects one page of the event log.
type EventQuery struct {
	Type   string
	Line   model.LineCode
	Limit  int
	Offset int
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	events, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer events.Close()

	q := EventQuery{Type: eventsType, Limit: eventsLimit, Offset: eventsOffset}
	if eventsByLine {
		q.Line = cfg.SelectedLine()
	}
	return listEvents(ctx, cmd.OutOrStdout(), events, q, util.GetTimeProvider().Location())
}

// listEvents prints one page of events, newest first.
func listEvents(ctx context.Context, w io.Writer, events store.EventStore, q EventQuery, loc *time.Location) error {
	if q.Limit <= 0 {
		return errors.New("limit must be positive")
	}
	if q.Offset < 0 {
		return errors.New("offset must not be negative")
	}
	q.Type = strings.TrimSpace(q.Type)
	if q.Type != "" && q.Line != "" {
		return errors.New("filter by type or line, not both")
	}

	var (
		page []model.AnalyticsEvent
		err  error
	)
	switch {
	case q.Type != "":
		page, err = events.ListByType(ctx, q.Type, q.Limit, q.Offset)
	case q.Line != "":
		page, err = events.ListByLine(ctx, q.Line, q.Limit, q.Offset)
	default:
		var all []model.AnalyticsEvent
		all, err = events.ListAll(ctx)
		page = pageEvents(all, q.Limit, q.Offset)
	}
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if len(page) == 0 {
		fmt.Fprintln(w, "No events")
		return nil
	}
	for _, e := range page {
		when := e.CreatedAt
		if ts, ok := analytics.ParseTimestamp(e.CreatedAt, loc); ok {
			when = ts.Format("2006-01-02 15:04:05")
		}
		line := e.LineCode
		if line == "" {
			line = "-"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			when,
			util.PadString(line, 5, true),
			util.PadString(analytics.HumanizeEventType(e.EventType), 26, true),
			e.ID)
	}
	return nil
}

func pageEvents(events []model.AnalyticsEvent, limit, offset int) []model.AnalyticsEvent {
	if offset >= len(events) {
		return nil
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end]
}
