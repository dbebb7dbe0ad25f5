package dashboard

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/penwyp/go-metrobus/internal/util"
)

// Store is what the pipeline needs from the event store.
type Store interface {
	EventSource
	Subscriber
}

// Pipeline keeps a StateManager current: Listener marks, RefreshController
// rebuilds.
type Pipeline struct {
	Listener  *Listener
	Refresher *RefreshController
	State     *StateManager
	Metrics   *Metrics
}

// NewPipeline wires a listener and refresher over store. Metrics are
// registered with reg when it is not nil.
func NewPipeline(store Store, cfg *DashboardConfig, reg prometheus.Registerer) (*Pipeline, error) {
	metrics := NewMetrics(reg)
	state := NewStateManager()
	listener := NewListener(store)
	listener.OnNotify(metrics.Notifications.Inc)

	refresher, err := NewRefreshController(store, listener, state, metrics, cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Listener:  listener,
		Refresher: refresher,
		State:     state,
		Metrics:   metrics,
	}, nil
}

// Run performs an initial refresh and then follows the store until ctx
// ends. A store without notifications still gets the initial snapshot and
// manual refreshes.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.Refresher.Refresh(ctx); err != nil {
		util.LogWarnf("Initial analytics refresh failed: %v", err)
	}

	var wg sync.WaitGroup
	var refreshErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := p.Listener.Run(ctx); err != nil {
			util.LogWarnf("Live updates disabled: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		refreshErr = p.Refresher.Run(ctx)
	}()
	wg.Wait()
	return refreshErr
}
