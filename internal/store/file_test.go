package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/testing/fixtures"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *FileStore, events ...model.AnalyticsEvent) {
	t.Helper()
	for _, e := range events {
		_, err := s.Insert(context.Background(), e)
		require.NoError(t, err)
	}
}

func at(minute int) string {
	return time.Date(2024, 5, 15, 10, minute, 0, 0, time.UTC).Format(time.RFC3339)
}

func TestFileStoreInsertAssignsIDAndTimestamp(t *testing.T) {
	s := newTestFileStore(t)
	fixed := time.Date(2024, 5, 15, 8, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	stored, err := s.Insert(context.Background(), model.AnalyticsEvent{
		EventType:    model.EventLineSelected,
		EventDetails: json.RawMessage(`{"line_code":"BLUE"}`),
		LineCode:     "BLUE",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(stored.ID)
	assert.NoError(t, err)
	assert.Equal(t, "2024-05-15T08:30:00Z", stored.CreatedAt)

	_, err = os.Stat(filepath.Join(s.Dir(), "events-2024-05-15.jsonl"))
	assert.NoError(t, err)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, stored.ID, all[0].ID)
	assert.JSONEq(t, `{"line_code":"BLUE"}`, string(all[0].EventDetails))
}

func TestFileStoreInsertRequiresType(t *testing.T) {
	s := newTestFileStore(t)
	_, err := s.Insert(context.Background(), model.AnalyticsEvent{})
	assert.Error(t, err)
}

func TestFileStoreListing(t *testing.T) {
	s := newTestFileStore(t)
	seed(t, s,
		model.AnalyticsEvent{ID: "1", EventType: model.EventRoutePlanRequest, CreatedAt: at(1), LineCode: "GREEN"},
		model.AnalyticsEvent{ID: "2", EventType: model.EventRoutePlanResponse, CreatedAt: at(2), LineCode: "GREEN"},
		model.AnalyticsEvent{ID: "3", EventType: model.EventRoutePlanRequest, CreatedAt: at(3), LineCode: "BLUE"},
		model.AnalyticsEvent{ID: "4", EventType: model.EventWebsiteOpened, CreatedAt: at(0)},
		model.AnalyticsEvent{ID: "5", EventType: model.EventRoutePlanRequest, CreatedAt: at(4), LineCode: "GREEN"},
	)
	ctx := context.Background()

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "3", "2", "1", "4"}, ids(all))

	byType, err := s.ListByType(ctx, model.EventRoutePlanRequest, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "3"}, ids(byType))

	byType, err = s.ListByType(ctx, model.EventRoutePlanRequest, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(byType))

	byType, err = s.ListByType(ctx, model.EventRoutePlanRequest, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, byType)

	byLine, err := s.ListByLine(ctx, model.LineGreen, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "2", "1"}, ids(byLine))

	since, err := s.ListSince(ctx, time.Date(2024, 5, 15, 10, 2, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "5"}, ids(since))
}

func TestFileStoreSkipsBadLinesAndDuplicates(t *testing.T) {
	s := newTestFileStore(t)
	content := `{"id":"a","event_type":"x","created_at":"2024-05-15T10:00:00Z"}
garbage
{"id":"a","event_type":"x","created_at":"2024-05-15T10:00:00Z"}
{"id":"b","event_type":"y","created_at":"not a date"}
`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "import.jsonl"), []byte(content), 0644))

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	// The undated row sorts as the epoch.
	assert.Equal(t, []string{"a", "b"}, ids(all))
}

func TestFileStoreSubscribeLocalInsert(t *testing.T) {
	s := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	seed(t, s, model.AnalyticsEvent{EventType: "x"})

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileStoreSubscribeExternalWrite(t *testing.T) {
	s := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, appendLine(filepath.Join(s.Dir(), "other.jsonl"), []byte(`{"id":"z","event_type":"x"}`+"\n")))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification for an external write")
	}
}

func TestFileStoreSubscribeRemovedFile(t *testing.T) {
	s := newTestFileStore(t)
	path := filepath.Join(s.Dir(), "other.jsonl")
	require.NoError(t, appendLine(path, []byte(`{"id":"a","event_type":"x"}`+"\n")))

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(all))
	info, err := os.Stat(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification for a removed file")
	}

	// Same size and mtime as the removed file; a stale cache would serve "a".
	require.NoError(t, appendLine(path, []byte(`{"id":"b","event_type":"x"}`+"\n")))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	all, err = s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(all))
}

func TestFileStoreClosed(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Insert(context.Background(), model.AnalyticsEvent{EventType: "x"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func ids(events []model.AnalyticsEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestFileStoreReadsGeneratedLog(t *testing.T) {
	s := newTestFileStore(t)
	g := fixtures.NewEventLogGenerator(s.Dir())
	require.NoError(t, g.GenerateCommuterDay(time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, g.GenerateCommuterDay(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)))
	paths, err := g.Write()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	ctx := context.Background()

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 18)
	assert.Equal(t, model.EventBotMessageReceived, all[0].EventType)

	blue, err := s.ListByLine(ctx, model.LineBlue, 0, 0)
	require.NoError(t, err)
	assert.Len(t, blue, 6)

	since, err := s.ListSince(ctx, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, since, 9)
}
