// Package tracker records user actions to the analytics event log without
// ever failing the action itself.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

const DefaultTimeout = 5 * time.Second

// Inserter is the write side of the event store.
type Inserter interface {
	Insert(ctx context.Context, event model.AnalyticsEvent) (model.AnalyticsEvent, error)
}

// Tracker writes analytics events in the background.
type Tracker struct {
	store   Inserter
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func New(store Inserter, timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{store: store, timeout: timeout, now: time.Now}
}

// Log records eventType with details against line. It returns immediately;
// the insert runs in the background and failures are only logged. details
// may be nil, a json.RawMessage, or any value sonic can encode.
func (t *Tracker) Log(ctx context.Context, eventType string, details interface{}, line model.LineCode) {
	if t == nil || t.store == nil {
		return
	}

	event := model.AnalyticsEvent{
		EventType: eventType,
		LineCode:  string(line),
	}
	if details != nil {
		raw, err := sonic.Marshal(details)
		if err != nil {
			util.LogWarnf("Dropping analytics event %s: cannot encode details: %v", eventType, err)
			return
		}
		event.EventDetails = raw
	}

	// The write outlives the caller's request but not its values.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()
		if _, err := t.store.Insert(writeCtx, event); err != nil {
			util.LogWarnf("Error logging analytics event %s: %v", eventType, err)
			return
		}
		util.LogDebugf("Logged analytics event %s", eventType)
	}()
}

// Timestamp returns the current time in the format used inside event details.
func (t *Tracker) Timestamp() string {
	return t.now().UTC().Format(time.RFC3339Nano)
}

// Flush waits for pending writes, giving up when ctx ends.
func (t *Tracker) Flush(ctx context.Context) {
	if t == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		util.LogWarn("Gave up waiting for pending analytics writes")
	}
}
