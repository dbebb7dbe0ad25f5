package analytics

import (
	"testing"
	"time"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	now := referenceNow()
	events := []model.AnalyticsEvent{
		event("1", model.EventRoutePlanRequest, now.Add(-10*time.Minute), "GREEN"),
		event("2", model.EventRoutePlanResponse, now.Add(-10*time.Minute+time.Second), "GREEN"),
		event("3", model.EventRoutePlanRequest, now.Add(-2*time.Hour), "BLUE"),
		event("4", model.EventWebsiteOpened, now.Add(-time.Minute), ""),
	}

	snap := Build(events, now, SnapshotOptions{Line: model.LineGreen, RecentEvents: 2})

	assert.Equal(t, 4, snap.Summary.TotalEvents)
	assert.Equal(t, 1, snap.Behavior.PlannedRoutes)
	require.Len(t, snap.Recent, 2)
	assert.Equal(t, "4", snap.Recent[0].ID)
	assert.Equal(t, model.LineGreen, snap.Line)
	assert.Equal(t, 2, snap.LineEvents)
	assert.Equal(t, 1, snap.LineTraffic.TodayQueries)
	assert.Equal(t, 1, snap.LineTraffic.TodayResponses)
	assert.Equal(t, map[string]int{
		model.EventRoutePlanRequest:  1,
		model.EventRoutePlanResponse: 1,
	}, snap.LineEventTypes)
	assert.NotEmpty(t, snap.Series)
}

func TestBuildWithoutLine(t *testing.T) {
	now := referenceNow()
	snap := Build(nil, now, SnapshotOptions{})

	assert.Zero(t, snap.Summary.TotalEvents)
	assert.Empty(t, snap.Recent)
	assert.Empty(t, snap.Series)
	assert.Zero(t, snap.LineEvents)
	assert.Nil(t, snap.LineEventTypes)
	assert.Empty(t, snap.Line)
}
