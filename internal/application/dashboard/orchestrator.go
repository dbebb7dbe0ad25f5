package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/penwyp/go-metrobus/internal/application/linestate"
	"github.com/penwyp/go-metrobus/internal/presentation/display"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
	"github.com/penwyp/go-metrobus/internal/presentation/layout"
	"github.com/penwyp/go-metrobus/internal/util"
)

// Orchestrator coordinates all components for the dashboard command
type Orchestrator struct {
	config   *DashboardConfig
	pipeline *Pipeline
	lines    *linestate.LineState

	display  DisplayController
	keyboard InputHandler
	sorter   *interaction.CountSorter

	ctx context.Context
	now func() time.Time
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(config *DashboardConfig, pipeline *Pipeline, lines *linestate.LineState, disp DisplayController, keyboard InputHandler) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Orchestrator{
		config:   config,
		pipeline: pipeline,
		lines:    lines,
		display:  disp,
		keyboard: keyboard,
		sorter:   interaction.NewCountSorter(),
		ctx:      context.Background(),
		now:      time.Now,
	}, nil
}

// Run starts the orchestrator main loop
func (o *Orchestrator) Run(ctx context.Context) error {
	util.LogInfo("Starting metro bus dashboard...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.ctx = ctx

	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	o.pipeline.State.SetLoadingState(true, "Loading analytics events...")
	o.updateDisplay()

	if o.lines != nil {
		go func() {
			if err := o.lines.Load(ctx); err != nil {
				util.LogWarnf("Line catalogue unavailable: %v", err)
			}
		}()
	}

	pipelineErr := make(chan error, 1)
	go func() {
		pipelineErr <- o.pipeline.Run(ctx)
	}()

	interval := time.Duration(float64(time.Second) / o.config.UIRefreshRate)
	uiTicker := time.NewTicker(interval)
	defer uiTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Shutting down metro bus dashboard...")
			return nil

		case <-uiTicker.C:
			o.updateDisplay()

		case err := <-pipelineErr:
			if err != nil {
				return fmt.Errorf("refresh pipeline stopped: %w", err)
			}
			return nil

		case keyEvent := <-o.keyboard.Events():
			if o.handleKeyboard(keyEvent) {
				return nil // Exit requested
			}
			o.updateDisplay()
		}
	}
}

// Frame assembles what the display needs from the current state.
func (o *Orchestrator) Frame() layout.Frame {
	state := o.pipeline.State
	refresher := o.pipeline.Refresher

	frame := layout.Frame{
		Snapshot:  state.SnapshotForDisplay(),
		SortField: o.sorter.Field(),
		Line:      refresher.Line(),
		Timezone:  o.config.Timezone,
		Now:       o.now().In(refresher.Location()),
		UpdatedAt: state.GetLastDataUpdate(),
		Realtime:  o.pipeline.Listener.Notifications(),
	}
	frame.Loading, _ = state.GetLoadingState()

	if frame.Snapshot != nil {
		frame.EventTypes = interaction.RowsFromCounts(frame.Snapshot.Summary.EventTypeCounts)
		o.sorter.Sort(frame.EventTypes)
	}
	if err := state.LastError(); err != nil {
		frame.Status = err.Error()
	}
	if o.lines != nil {
		snap := o.lines.Snapshot()
		if snap.Current != nil {
			frame.LineName = snap.Current.Name
		}
		if frame.Status == "" && snap.Err != "" {
			frame.Status = snap.Err
		}
	}
	return frame
}

func (o *Orchestrator) updateDisplay() {
	o.display.RenderWithState(o.Frame(), o.pipeline.State.GetViewState())
}

// forceRefresh refreshes in the background; the refresh mutex keeps it
// from overlapping a running one.
func (o *Orchestrator) forceRefresh() {
	go func() {
		if _, err := o.pipeline.Refresher.Refresh(o.ctx); err != nil {
			util.LogDebugf("Manual refresh failed: %v", err)
		}
	}()
}

// switchLine selects the next metro line and recomputes the snapshot.
func (o *Orchestrator) switchLine() {
	next := o.pipeline.Refresher.Line()
	if o.lines != nil {
		next = o.lines.Next()
		if err := o.lines.Select(o.ctx, next); err != nil {
			util.LogWarnf("Failed to switch line: %v", err)
			return
		}
	}
	o.pipeline.Refresher.SetLine(next)
	o.pipeline.State.Invalidate()
	o.forceRefresh()
}

// handleKeyboard handles keyboard events and reports whether to quit
func (o *Orchestrator) handleKeyboard(event interaction.KeyEvent) bool {
	state := o.pipeline.State

	switch event.Type {
	case interaction.KeyChar:
		switch event.Key {
		case 'q', 'Q', 3: // 'q', 'Q', or Ctrl+C
			return true
		case 'r', 'R':
			o.forceRefresh()
		case 'l', 'L':
			o.switchLine()
		case 's', 'S':
			o.sorter.Toggle()
		case 'h', 'H':
			state.UpdateViewState(func(s *display.ViewState) {
				s.ShowHelp = !s.ShowHelp
			})
		case 't', 'T':
			state.UpdateViewState(func(s *display.ViewState) {
				s.LayoutStyle = layout.NextStyle(s.LayoutStyle)
			})
		}
	case interaction.KeyEscape:
		// If help is shown, close it; otherwise quit
		if state.GetViewState().ShowHelp {
			state.UpdateViewState(func(s *display.ViewState) {
				s.ShowHelp = false
			})
		} else {
			return true
		}
	}
	return false
}
