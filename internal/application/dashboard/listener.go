// Package dashboard keeps an analytics snapshot fresh as events arrive and
// drives the live terminal dashboard.
package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/penwyp/go-metrobus/internal/util"
)

// Listener turns store notifications into a dirty flag. It never fetches
// anything itself; the RefreshController reacts to its nudges.
type Listener struct {
	sub           Subscriber
	dirty         atomic.Bool
	nudge         chan struct{}
	notifications atomic.Int64
	onNotify      func()
}

// NewListener creates a new Listener
func NewListener(sub Subscriber) *Listener {
	return &Listener{
		sub:   sub,
		nudge: make(chan struct{}, 1),
	}
}

// OnNotify registers a callback invoked for every store notification.
func (l *Listener) OnNotify(fn func()) {
	l.onNotify = fn
}

// Run consumes the subscription until ctx ends or the subscription closes.
func (l *Listener) Run(ctx context.Context) error {
	events, err := l.sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to analytics events: %w", err)
	}
	util.LogDebug("Listening for analytics events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				util.LogDebug("Analytics event subscription closed")
				return nil
			}
			l.notifications.Add(1)
			if l.onNotify != nil {
				l.onNotify()
			}
			l.Mark()
		}
	}
}

// Mark flags the snapshot stale and wakes the refresher. Nudges coalesce.
func (l *Listener) Mark() {
	l.dirty.Store(true)
	select {
	case l.nudge <- struct{}{}:
	default:
	}
}

// Nudges signals that the dirty flag may have been set.
func (l *Listener) Nudges() <-chan struct{} {
	return l.nudge
}

// TakeDirty clears the dirty flag, reporting whether it was set.
func (l *Listener) TakeDirty() bool {
	return l.dirty.CompareAndSwap(true, false)
}

// Notifications is the number of store notifications seen so far.
func (l *Listener) Notifications() int64 {
	return l.notifications.Load()
}
