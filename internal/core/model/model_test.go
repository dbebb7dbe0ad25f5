package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineCode(t *testing.T) {
	tests := []struct {
		in   string
		want LineCode
		ok   bool
	}{
		{"GREEN", LineGreen, true},
		{"green", LineGreen, true},
		{"Blue", LineBlue, true},
		{"", "", true},
		{"red", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLineCode(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoutePlanEndpoints(t *testing.T) {
	plan := RoutePlan{
		Segments: []RouteSegment{
			{StartStop: "Pims", EndStop: "Faizabad"},
			{StartStop: "Faizabad", EndStop: "Saddar"},
		},
	}
	origin, dest := plan.Endpoints()
	assert.Equal(t, "Pims", origin)
	assert.Equal(t, "Saddar", dest)

	plan.Origin = "Secretariat"
	origin, _ = plan.Endpoints()
	assert.Equal(t, "Secretariat", origin)

	origin, dest = RoutePlan{}.Endpoints()
	assert.Empty(t, origin)
	assert.Empty(t, dest)
}

func TestRoutePlanFirstDeparture(t *testing.T) {
	_, ok := RoutePlan{}.FirstDeparture()
	assert.False(t, ok)

	dep, ok := RoutePlan{Segments: []RouteSegment{{DepartureTime: "07:45:00"}}}.FirstDeparture()
	assert.True(t, ok)
	assert.Equal(t, "07:45", dep)
}

func TestDecodeDetails(t *testing.T) {
	ev := AnalyticsEvent{
		EventType:    EventRoutePlanResponse,
		EventDetails: json.RawMessage(`{"route_plans":[{"origin":"A","destination":"B"}],"timestamp":"2024-05-01T10:00:00Z"}`),
	}
	var details RoutePlanDetails
	require.NoError(t, ev.DecodeDetails(&details))
	require.Len(t, details.RoutePlans, 1)
	assert.Equal(t, "A", details.RoutePlans[0].Origin)

	var empty RoutePlanDetails
	assert.NoError(t, AnalyticsEvent{}.DecodeDetails(&empty))
	assert.NoError(t, AnalyticsEvent{EventDetails: json.RawMessage("null")}.DecodeDetails(&empty))
	assert.Error(t, AnalyticsEvent{EventDetails: json.RawMessage("{bad")}.DecodeDetails(&empty))
}

func TestFindLineAndColor(t *testing.T) {
	lines := []LineInfo{{LineCode: LineGreen, Name: "Green Line"}, {LineCode: LineBlue, Name: "Blue Line"}}
	info, ok := FindLine(lines, LineBlue)
	require.True(t, ok)
	assert.Equal(t, "Blue Line", info.Name)

	_, ok = FindLine(lines, "RED")
	assert.False(t, ok)

	assert.Equal(t, "#10b981", LineColor("GREEN"))
	assert.Equal(t, "#6b7280", LineColor("RED"))
}
