// Package store reads and writes the analytics event log.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
)

const (
	// NotifyChannel is the Postgres channel carrying insert notifications.
	NotifyChannel = "analytics_events"

	DefaultPageSize = 100
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("event store is closed")

// EventStore is the hosted analytics event log.
type EventStore interface {
	// ListAll returns every event, newest first.
	ListAll(ctx context.Context) ([]model.AnalyticsEvent, error)
	// ListByType returns one page of events of eventType, newest first.
	ListByType(ctx context.Context, eventType string, limit, offset int) ([]model.AnalyticsEvent, error)
	// ListByLine returns one page of events recorded against line, newest first.
	ListByLine(ctx context.Context, line model.LineCode, limit, offset int) ([]model.AnalyticsEvent, error)
	// ListSince returns events created at or after since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]model.AnalyticsEvent, error)
	// Insert stores event, assigning an id and timestamp when missing, and
	// returns the stored row.
	Insert(ctx context.Context, event model.AnalyticsEvent) (model.AnalyticsEvent, error)
	// Subscribe delivers one value per observed insert until ctx ends.
	// Notifications carry no payload and may be coalesced.
	Subscribe(ctx context.Context) (<-chan struct{}, error)
	Close() error
}

// prepareInsert fills the id and created_at of a new row.
func prepareInsert(event model.AnalyticsEvent, now time.Time) model.AnalyticsEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt == "" {
		event.CreatedAt = now.UTC().Format(time.RFC3339Nano)
	}
	return event
}

type stampedEvent struct {
	event model.AnalyticsEvent
	ts    time.Time
}

func stamp(events []model.AnalyticsEvent) []stampedEvent {
	stamped := make([]stampedEvent, len(events))
	for i, e := range events {
		ts, _ := analytics.ParseTimestamp(e.CreatedAt, time.UTC)
		stamped[i] = stampedEvent{event: e, ts: ts}
	}
	return stamped
}

func unstamp(stamped []stampedEvent) []model.AnalyticsEvent {
	events := make([]model.AnalyticsEvent, len(stamped))
	for i, s := range stamped {
		events[i] = s.event
	}
	return events
}

// sortNewestFirst orders by created_at descending, ties by id.
func sortNewestFirst(stamped []stampedEvent) {
	sort.SliceStable(stamped, func(i, j int) bool {
		if !stamped[i].ts.Equal(stamped[j].ts) {
			return stamped[i].ts.After(stamped[j].ts)
		}
		return stamped[i].event.ID > stamped[j].event.ID
	})
}

// page applies limit/offset; limit <= 0 uses DefaultPageSize.
func page(events []model.AnalyticsEvent, limit, offset int) []model.AnalyticsEvent {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(events) {
		return []model.AnalyticsEvent{}
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end]
}

// notify performs a non-blocking send on a capacity-1 channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
