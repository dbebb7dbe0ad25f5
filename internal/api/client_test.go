package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{BaseURL: server.URL + "/", Timeout: 2 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://localhost:8000/"})
	assert.Equal(t, "http://localhost:8000", client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, "closed", client.BreakerState())
}

func TestClient_Stops(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stops", r.URL.Path)
		assert.Equal(t, "BLUE", r.URL.Query().Get("metro_line"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "stops": []string{"Pims", "Saddar"}, "count": 2, "metro_line": "BLUE",
		})
	})

	stops, err := client.Stops(context.Background(), model.LineBlue)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pims", "Saddar"}, stops.Stops)
	assert.Equal(t, model.LineBlue, stops.MetroLine)
}

func TestClient_StopsWithoutLine(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "stops": []string{}, "count": 0})
	})
	_, err := client.Stops(context.Background(), "")
	require.NoError(t, err)
}

func TestClient_SearchStops(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search-stops", r.URL.Path)
		assert.Equal(t, "pim", r.URL.Query().Get("query"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "query": "pim", "stops": []string{"Pims"}, "count": 1})
	})

	res, err := client.SearchStops(context.Background(), "pim", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestClient_LinesAndLine(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lines":
			writeJSON(w, http.StatusOK, []map[string]interface{}{
				{"line_code": "GREEN", "name": "Green Line", "color": "#10b981", "theme_color": "green", "total_stops": 12},
				{"line_code": "BLUE", "name": "Blue Line", "color": "#5194f6", "theme_color": "blue", "total_stops": 9},
			})
		case "/line/GREEN":
			writeJSON(w, http.StatusOK, map[string]interface{}{"line_code": "GREEN", "name": "Green Line", "total_stops": 12})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Metro line not found"})
		}
	})

	lines, err := client.Lines(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, model.LineBlue, lines[1].LineCode)

	line, err := client.Line(context.Background(), model.LineGreen)
	require.NoError(t, err)
	assert.Equal(t, 12, line.TotalStops)

	_, err = client.Line(context.Background(), "RED")
	be, ok := IsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)
	assert.Equal(t, "Metro line not found", be.Message)
	assert.False(t, be.Temporary())
}

func TestClient_PlanRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req model.RoutePlanningRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Origin == "Nowhere" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "message": "No routes found", "route_plans": []interface{}{}})
			return
		}
		assert.Equal(t, 60, req.MaxWaitTime)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Found 1 route",
			"route_plans": []map[string]interface{}{{
				"origin": req.Origin, "destination": req.Destination, "total_duration": 25,
				"segments": []map[string]interface{}{{"start_stop": req.Origin, "end_stop": req.Destination, "departure_time": "08:15:00"}},
			}},
		})
	})

	res, err := client.PlanRoute(context.Background(), model.RoutePlanningRequest{Origin: "Pims", Destination: "Saddar", MaxWaitTime: 60})
	require.NoError(t, err)
	require.Len(t, res.RoutePlans, 1)
	assert.Equal(t, 25, res.RoutePlans[0].TotalDuration)

	res, err = client.PlanRoute(context.Background(), model.RoutePlanningRequest{Origin: "Nowhere", Destination: "Saddar", MaxWaitTime: 60})
	require.Error(t, err)
	require.NotNil(t, res)
	be, ok := IsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, "No routes found", be.Message)
}

func TestClient_ExplainAndTips(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/explain-route":
			writeJSON(w, http.StatusOK, map[string]string{"explanation": "Board at Pims."})
		case "/travel-tips":
			writeJSON(w, http.StatusOK, map[string]interface{}{"tips": []string{"Carry a card", "Avoid rush hour"}})
		}
	})
	plan := model.RoutePlan{Origin: "Pims", Destination: "Saddar"}

	text, err := client.ExplainRoute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "Board at Pims.", text)

	tips, err := client.TravelTips(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "Carry a card\nAvoid rush hour", tips)
}

func TestClient_Malformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	})

	_, err := client.Health(context.Background())
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestClient_Transport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Options{BaseURL: url, Timeout: time.Second})
	_, err := client.APIInfo(context.Background())
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Health(ctx)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "down"})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, BreakerFailures: 2, BreakerTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Health(ctx)
		be, ok := IsBackendError(err)
		require.True(t, ok)
		assert.True(t, be.Temporary())
	}

	_, err := client.Health(ctx)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "open", client.BreakerState())
}

func TestClient_NotFoundDoesNotTrip(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://unused", BreakerFailures: 1})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "nope"})
	}))
	defer server.Close()
	client.baseURL = server.URL

	for i := 0; i < 3; i++ {
		_, err := client.Line(context.Background(), "RED")
		_, ok := IsBackendError(err)
		assert.True(t, ok)
	}
	assert.Equal(t, "closed", client.BreakerState())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "bad", errorMessage([]byte(`{"detail":"bad"}`)))
	assert.Equal(t, "oops", errorMessage([]byte(`{"error":"oops"}`)))
	assert.Equal(t, "plain text", errorMessage([]byte(" plain text \n")))

	// A three-byte rune straddling the limit is dropped whole.
	long := strings.Repeat("a", maxErrorBody-1) + "€" + "tail"
	msg := errorMessage([]byte(long))
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, strings.Repeat("a", maxErrorBody-1), msg)
}
