package dashboard

import (
	"sync"
	"time"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/presentation/display"
)

// StateManager manages application state in a thread-safe manner
type StateManager struct {
	mu sync.RWMutex

	current  *analytics.Snapshot
	previous *analytics.Snapshot // shown while a refresh is running
	seq      uint64

	isLoading      bool
	loadingMessage string
	lastErr        error

	view display.ViewState

	lastDataUpdate time.Time
}

// NewStateManager creates a new StateManager instance
func NewStateManager() *StateManager {
	return &StateManager{}
}

// SetSnapshot stores the result of refresh number seq. Results older than
// the latest applied one are dropped.
func (sm *StateManager) SetSnapshot(seq uint64, snap analytics.Snapshot, at time.Time) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if seq < sm.seq {
		return false
	}
	sm.seq = seq
	if sm.current != nil {
		sm.previous = sm.current
	}
	sm.current = &snap
	sm.lastErr = nil
	sm.lastDataUpdate = at
	return true
}

// Invalidate retires the current snapshot, for instance after the selected
// line changed. It stays visible as the previous one until a refresh lands.
func (sm *StateManager) Invalidate() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current != nil {
		sm.previous = sm.current
		sm.current = nil
	}
}

// Snapshot returns the latest snapshot, if any.
func (sm *StateManager) Snapshot() (analytics.Snapshot, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.current == nil {
		return analytics.Snapshot{}, false
	}
	return *sm.current, true
}

// SnapshotForDisplay returns the snapshot to draw. While loading without a
// finished refresh it falls back to the previous one.
func (sm *StateManager) SnapshotForDisplay() *analytics.Snapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	snap := sm.current
	if snap == nil && sm.isLoading {
		snap = sm.previous
	}
	if snap == nil {
		return nil
	}
	cp := *snap
	return &cp
}

// GetLoadingState returns current loading state and message
func (sm *StateManager) GetLoadingState() (bool, string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isLoading, sm.loadingMessage
}

// SetLoadingState updates loading state and message
func (sm *StateManager) SetLoadingState(isLoading bool, message string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.isLoading = isLoading
	sm.loadingMessage = message
}

// SetError records a failed refresh; the current snapshot is kept.
func (sm *StateManager) SetError(err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.lastErr = err
}

func (sm *StateManager) LastError() error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastErr
}

// GetLastDataUpdate returns the time of the last successful refresh
func (sm *StateManager) GetLastDataUpdate() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastDataUpdate
}

// GetViewState returns current interaction state
func (sm *StateManager) GetViewState() display.ViewState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	state := sm.view
	state.IsLoading = sm.isLoading
	state.LoadingMessage = sm.loadingMessage
	return state
}

// UpdateViewState updates specific fields of interaction state
func (sm *StateManager) UpdateViewState(updateFunc func(*display.ViewState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	updateFunc(&sm.view)
}
