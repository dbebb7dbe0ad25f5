package analytics

import (
	"testing"
	"time"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSeries(t *testing.T) {
	now := referenceNow()
	events := []model.AnalyticsEvent{
		event("1", "a_request", now.Add(-30*time.Minute), ""),
		event("2", "a_response", now.Add(-29*time.Minute), ""),
		event("3", "a_request", now.Add(-3*time.Hour), ""),
		event("4", "a_request", now.Add(-25*time.Hour), ""),
		{ID: "5", EventType: "a_request", CreatedAt: "nope"},
	}

	points := TimeSeries(events, now, 24)

	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2024, 5, 15, 9, 0, 0, 0, pkt), points[0].Start)
	assert.Equal(t, "May 15, 09", points[0].Label)
	assert.Equal(t, 1, points[0].Count)
	assert.Equal(t, 2, points[1].Count)
	assert.Equal(t, map[string]int{"a_request": 1, "a_response": 1}, points[1].EventTypes)
}

func TestTimeSeriesDefaultsHours(t *testing.T) {
	now := referenceNow()
	events := []model.AnalyticsEvent{
		event("1", "a", now.Add(-23*time.Hour), ""),
		event("2", "a", now.Add(-48*time.Hour), ""),
	}

	assert.Len(t, TimeSeries(events, now, 0), 1)
	assert.Len(t, TimeSeries(events, now, 72), 2)
	assert.Empty(t, TimeSeries(nil, now, 24))
}
