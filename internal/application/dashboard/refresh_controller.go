package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

// RefreshController rebuilds the snapshot when the listener reports new
// events. Bursts are debounced, refreshes are rate limited, and at most one
// refresh runs at a time.
type RefreshController struct {
	source   EventSource
	listener *Listener
	state    *StateManager
	metrics  *Metrics

	debounce time.Duration
	limiter  *rate.Limiter
	loc      *time.Location
	opts     analytics.SnapshotOptions
	line     atomic.Value // model.LineCode

	now func() time.Time
	seq atomic.Uint64

	refreshMutex sync.Mutex // Prevent concurrent refreshes
}

// NewRefreshController creates a new RefreshController instance
func NewRefreshController(source EventSource, listener *Listener, state *StateManager, metrics *Metrics, cfg *DashboardConfig) (*RefreshController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := util.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	rc := &RefreshController{
		source:   source,
		listener: listener,
		state:    state,
		metrics:  metrics,
		debounce: cfg.Debounce,
		limiter:  rate.NewLimiter(limit, 1),
		loc:      loc,
		opts: analytics.SnapshotOptions{
			SeriesHours:  cfg.SeriesHours,
			RecentEvents: cfg.RecentEvents,
		},
		now: time.Now,
	}
	rc.line.Store(cfg.Line)
	return rc, nil
}

// SetLine changes the line reported separately in the snapshot.
func (rc *RefreshController) SetLine(line model.LineCode) {
	rc.line.Store(line)
}

func (rc *RefreshController) Line() model.LineCode {
	line, _ := rc.line.Load().(model.LineCode)
	return line
}

// Location is the zone snapshots are computed in.
func (rc *RefreshController) Location() *time.Location {
	return rc.loc
}

// Run waits for nudges and refreshes until ctx ends.
func (rc *RefreshController) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rc.listener.Nudges():
		}

		if rc.debounce > 0 {
			timer := time.NewTimer(rc.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
		if err := rc.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("refresh limiter: %w", err)
		}
		if !rc.listener.TakeDirty() {
			continue
		}
		if _, err := rc.Refresh(ctx); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// Refresh fetches the event log and applies a new snapshot. On failure the
// previous snapshot stays in place and the error is recorded.
func (rc *RefreshController) Refresh(ctx context.Context) (analytics.Snapshot, error) {
	rc.refreshMutex.Lock()
	defer rc.refreshMutex.Unlock()

	seq := rc.seq.Add(1)
	start := time.Now()
	rc.state.SetLoadingState(true, "Refreshing analytics...")
	defer rc.state.SetLoadingState(false, "")

	events, err := rc.source.ListAll(ctx)
	if err != nil {
		rc.metrics.Refreshes.WithLabelValues("error").Inc()
		util.LogErrorf("Failed to refresh analytics: %v", err)
		err = fmt.Errorf("failed to fetch analytics events: %w", err)
		rc.state.SetError(err)
		return analytics.Snapshot{}, err
	}

	now := rc.now().In(rc.loc)
	opts := rc.opts
	opts.Line = rc.Line()
	snap := analytics.Build(events, now, opts)

	rc.state.SetSnapshot(seq, snap, now)
	rc.metrics.Refreshes.WithLabelValues("ok").Inc()
	rc.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	rc.metrics.Events.Set(float64(len(events)))
	util.LogDebugf("Refreshed analytics: %d events in %s", len(events), time.Since(start))
	return snap, nil
}
