package store

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

func TestPage(t *testing.T) {
	events := make([]model.AnalyticsEvent, 5)
	for i := range events {
		events[i].ID = string(rune('a' + i))
	}

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{"first page", 2, 0, []string{"a", "b"}},
		{"middle", 2, 2, []string{"c", "d"}},
		{"tail", 2, 4, []string{"e"}},
		{"past end", 2, 9, []string{}},
		{"default limit", 0, 0, []string{"a", "b", "c", "d", "e"}},
		{"negative offset", 1, -3, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(page(events, tt.limit, tt.offset)))
		})
	}
}

func TestPrepareInsert(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.FixedZone("PKT", 5*3600))
	e := prepareInsert(model.AnalyticsEvent{EventType: "x"}, now)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "2024-05-15T05:00:00Z", e.CreatedAt)

	kept := prepareInsert(model.AnalyticsEvent{ID: "keep", CreatedAt: "2020-01-01T00:00:00Z"}, now)
	assert.Equal(t, "keep", kept.ID)
	assert.Equal(t, "2020-01-01T00:00:00Z", kept.CreatedAt)
}

func TestSortNewestFirst(t *testing.T) {
	stamped := stamp([]model.AnalyticsEvent{
		{ID: "old", CreatedAt: "2024-05-15T09:00:00Z"},
		{ID: "b", CreatedAt: "2024-05-15T10:00:00Z"},
		{ID: "c", CreatedAt: "2024-05-15T10:00:00Z"},
		{ID: "bad", CreatedAt: "?"},
	})
	sortNewestFirst(stamped)
	assert.Equal(t, []string{"c", "b", "old", "bad"}, ids(unstamp(stamped)))
}

func TestListQuery(t *testing.T) {
	q := listQuery("", false, false, 0)
	assert.True(t, strings.HasPrefix(q, "SELECT id::text, event_type"))
	assert.True(t, strings.HasSuffix(q, "FROM analytics_events ORDER BY created_at DESC, id DESC"))

	q = listQuery("event_type = $1", false, true, 1)
	assert.Contains(t, q, "WHERE event_type = $1")
	assert.True(t, strings.HasSuffix(q, "LIMIT $2 OFFSET $3"))

	q = listQuery("created_at >= $1", true, false, 1)
	assert.Contains(t, q, "ORDER BY created_at ASC, id ASC")
	assert.NotContains(t, q, "LIMIT")
}

func TestInsertArgs(t *testing.T) {
	args, err := insertArgs(model.AnalyticsEvent{EventType: "x"})
	require.NoError(t, err)
	require.Len(t, args, 5)
	assert.NotEmpty(t, args[0])
	assert.Nil(t, args[2])
	assert.Nil(t, args[3])
	assert.Equal(t, "", args[4])

	args, err = insertArgs(model.AnalyticsEvent{
		ID:           "6f1c8a9e-3b1d-4c55-9b5e-0c6d2f1f9a10",
		EventType:    "x",
		EventDetails: json.RawMessage(`{"a":1}`),
		CreatedAt:    "2024-05-15T10:00:00Z",
		LineCode:     "GREEN",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, args[2])
	assert.Equal(t, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC), args[3])

	// Space-separated timestamps without an offset are read as UTC.
	args, err = insertArgs(model.AnalyticsEvent{EventType: "x", CreatedAt: "2024-01-01 10:00:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), args[3])
	args, err = insertArgs(model.AnalyticsEvent{EventType: "x", CreatedAt: "2024-01-01 10:00:00+05"})
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC).Equal(args[3].(time.Time)))

	_, err = insertArgs(model.AnalyticsEvent{})
	assert.Error(t, err)
	_, err = insertArgs(model.AnalyticsEvent{EventType: "x", ID: "not-a-uuid"})
	assert.Error(t, err)
	_, err = insertArgs(model.AnalyticsEvent{EventType: "x", EventDetails: json.RawMessage(`{`)})
	assert.Error(t, err)
	_, err = insertArgs(model.AnalyticsEvent{EventType: "x", EventDetails: json.RawMessage(`{"a":1} trailing`)})
	assert.Error(t, err)
	_, err = insertArgs(model.AnalyticsEvent{EventType: "x", CreatedAt: "yesterday"})
	assert.Error(t, err)
}
