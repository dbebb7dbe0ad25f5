package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

type fakeInserter struct {
	mu     sync.Mutex
	events []model.AnalyticsEvent
	err    error
	block  chan struct{}
}

func (f *fakeInserter) Insert(ctx context.Context, event model.AnalyticsEvent) (model.AnalyticsEvent, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return model.AnalyticsEvent{}, ctx.Err()
		}
	}
	if f.err != nil {
		return model.AnalyticsEvent{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeInserter) recorded() []model.AnalyticsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AnalyticsEvent(nil), f.events...)
}

func TestTrackerLog(t *testing.T) {
	store := &fakeInserter{}
	tr := New(store, time.Second)

	tr.Log(context.Background(), model.EventRoutePlanRequest, model.RoutePlanRequestDetails{
		Origin: "Pims", Destination: "Saddar", Timestamp: "2024-05-15T10:00:00Z",
	}, model.LineGreen)
	tr.Log(context.Background(), model.EventWebsiteOpened, nil, "")
	tr.Flush(context.Background())

	events := store.recorded()
	require.Len(t, events, 2)

	var req model.RoutePlanRequestDetails
	for _, e := range events {
		if e.EventType == model.EventRoutePlanRequest {
			require.NoError(t, e.DecodeDetails(&req))
			assert.Equal(t, "GREEN", e.LineCode)
		} else {
			assert.Empty(t, e.EventDetails)
		}
	}
	assert.Equal(t, "Pims", req.Origin)
}

func TestTrackerSwallowsErrors(t *testing.T) {
	tr := New(&fakeInserter{err: errors.New("store down")}, time.Second)
	assert.NotPanics(t, func() {
		tr.Log(context.Background(), "x", map[string]string{"a": "b"}, "")
		tr.Flush(context.Background())
	})
}

func TestTrackerDoesNotBlockCaller(t *testing.T) {
	store := &fakeInserter{block: make(chan struct{})}
	tr := New(store, 50*time.Millisecond)

	start := time.Now()
	tr.Log(context.Background(), "x", nil, "")
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	// The write times out on its own.
	tr.Flush(context.Background())
	assert.Empty(t, store.recorded())
}

func TestTrackerSurvivesCallerCancel(t *testing.T) {
	store := &fakeInserter{}
	tr := New(store, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr.Log(ctx, "x", nil, "")
	tr.Flush(context.Background())

	assert.Len(t, store.recorded(), 1)
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	assert.NotPanics(t, func() {
		tr.Log(context.Background(), "x", nil, "")
		tr.Flush(context.Background())
	})
}
