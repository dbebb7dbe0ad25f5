// Package linestate holds the metro line the user is working with.
package linestate

import (
	"context"
	"fmt"
	"sync"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

// LoadErrorMessage is shown when the line catalogue cannot be fetched.
const LoadErrorMessage = "Failed to load metro lines"

// LinesLoader fetches the line catalogue.
type LinesLoader interface {
	Lines(ctx context.Context) ([]model.LineInfo, error)
}

// EventLogger records analytics events.
type EventLogger interface {
	Log(ctx context.Context, eventType string, details interface{}, line model.LineCode)
}

// Snapshot is a read-only copy of the state.
type Snapshot struct {
	Selected  model.LineCode
	Available []model.LineInfo
	// Current is the catalogue entry for Selected, nil until loaded or when unknown.
	Current *model.LineInfo
	Loading bool
	Err     string
}

// LineState is the single owner of the selected line. Select is the only
// writer of the selection; everything else reads snapshots.
type LineState struct {
	mu        sync.RWMutex
	selected  model.LineCode
	available []model.LineInfo
	loading   bool
	err       string

	loader LinesLoader
	logger EventLogger
}

func New(loader LinesLoader, logger EventLogger, initial model.LineCode) *LineState {
	if initial == "" {
		initial = model.DefaultLine
	}
	return &LineState{
		selected: initial,
		loading:  loader != nil,
		loader:   loader,
		logger:   logger,
	}
}

// Load fetches the catalogue. On failure the error message is kept in the
// state and also returned.
func (s *LineState) Load(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	lines, err := s.loader.Lines(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		util.LogErrorf("Error loading metro lines: %v", err)
		s.err = LoadErrorMessage
		return fmt.Errorf("%s: %w", LoadErrorMessage, err)
	}
	s.available = append([]model.LineInfo(nil), lines...)
	return nil
}

// Select changes the selected line and records a line_selected event.
func (s *LineState) Select(ctx context.Context, line model.LineCode) error {
	code, ok := model.ParseLineCode(string(line))
	if !ok || code == "" {
		return fmt.Errorf("unknown metro line %q", line)
	}

	if s.logger != nil {
		s.logger.Log(ctx, model.EventLineSelected, model.LineSelectedDetails{LineCode: code}, code)
	}

	s.mu.Lock()
	s.selected = code
	s.mu.Unlock()
	return nil
}

// Next returns the line after the selected one in catalogue order, wrapping
// around. Without a catalogue it alternates between the known lines.
func (s *LineState) Next() model.LineCode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]model.LineCode, 0, len(s.available))
	for _, info := range s.available {
		codes = append(codes, info.LineCode)
	}
	if len(codes) == 0 {
		codes = []model.LineCode{model.LineGreen, model.LineBlue}
	}
	for i, code := range codes {
		if code == s.selected {
			return codes[(i+1)%len(codes)]
		}
	}
	return codes[0]
}

func (s *LineState) Selected() model.LineCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *LineState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Selected:  s.selected,
		Available: append([]model.LineInfo(nil), s.available...),
		Loading:   s.loading,
		Err:       s.err,
	}
	if info, ok := model.FindLine(snap.Available, s.selected); ok {
		current := *info
		snap.Current = &current
	}
	return snap
}
