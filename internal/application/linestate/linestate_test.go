package linestate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

type fakeLoader struct {
	lines []model.LineInfo
	err   error
}

func (f fakeLoader) Lines(context.Context) ([]model.LineInfo, error) {
	return f.lines, f.err
}

type loggedEvent struct {
	eventType string
	details   interface{}
	line      model.LineCode
}

type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (f *fakeLogger) Log(_ context.Context, eventType string, details interface{}, line model.LineCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, loggedEvent{eventType, details, line})
}

var catalogue = []model.LineInfo{
	{LineCode: model.LineGreen, Name: "Green Line", Color: "#10b981", ThemeColor: "green"},
	{LineCode: model.LineBlue, Name: "Blue Line", Color: "#5194f6", ThemeColor: "blue"},
}

func TestNewDefaults(t *testing.T) {
	s := New(fakeLoader{}, nil, "")
	snap := s.Snapshot()
	assert.Equal(t, model.LineGreen, snap.Selected)
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.Current)
}

func TestLoadAndSelect(t *testing.T) {
	logger := &fakeLogger{}
	s := New(fakeLoader{lines: catalogue}, logger, model.LineGreen)

	require.NoError(t, s.Load(context.Background()))
	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "Green Line", snap.Current.Name)

	require.NoError(t, s.Select(context.Background(), "blue"))
	snap = s.Snapshot()
	assert.Equal(t, model.LineBlue, snap.Selected)
	assert.Equal(t, "Blue Line", snap.Current.Name)

	require.Len(t, logger.events, 1)
	assert.Equal(t, model.EventLineSelected, logger.events[0].eventType)
	assert.Equal(t, model.LineBlue, logger.events[0].line)
	assert.Equal(t, model.LineSelectedDetails{LineCode: model.LineBlue}, logger.events[0].details)
}

func TestSelectRejectsUnknown(t *testing.T) {
	logger := &fakeLogger{}
	s := New(nil, logger, "")
	assert.Error(t, s.Select(context.Background(), "RED"))
	assert.Error(t, s.Select(context.Background(), ""))
	assert.Empty(t, logger.events)
	assert.Equal(t, model.LineGreen, s.Selected())
}

func TestLoadFailure(t *testing.T) {
	s := New(fakeLoader{err: errors.New("connection refused")}, nil, "")
	err := s.Load(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, LoadErrorMessage, snap.Err)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Available)
}

func TestNext(t *testing.T) {
	s := New(nil, nil, model.LineGreen)
	assert.Equal(t, model.LineBlue, s.Next())

	s = New(fakeLoader{lines: catalogue}, nil, model.LineBlue)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, model.LineGreen, s.Next())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(fakeLoader{lines: catalogue}, nil, "")
	require.NoError(t, s.Load(context.Background()))

	snap := s.Snapshot()
	snap.Available[0].Name = "mutated"
	snap.Current.Name = "mutated"

	assert.Equal(t, "Green Line", s.Snapshot().Current.Name)
}
