package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status        string     `json:"status"`
	Ready         bool       `json:"ready"`
	LastRefresh   *time.Time `json:"last_refresh,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Notifications int64      `json:"notifications"`
}

type summaryResponse struct {
	analytics.Summary
	Line        model.LineCode            `json:"line"`
	LineEvents  int                       `json:"line_events"`
	LineTraffic analytics.TrafficInsights `json:"line_traffic"`
	Recent      []model.AnalyticsEvent    `json:"recent"`
}

type timeSeriesResponse struct {
	Hours  int                         `json:"hours"`
	Points []analytics.TimeSeriesPoint `json:"points"`
}

type eventsResponse struct {
	Events []model.AnalyticsEvent `json:"events"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// newEventRequest is the body of POST /analytics/events.
type newEventRequest struct {
	EventType    string          `json:"event_type"`
	EventDetails json.RawMessage `json:"event_details"`
	LineCode     string          `json:"line_code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		util.LogErrorf("Failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		util.LogDebugf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.pipeline.State
	_, ready := state.Snapshot()
	resp := healthResponse{
		Status:        "ok",
		Ready:         ready,
		Notifications: s.pipeline.Listener.Notifications(),
	}
	if at := state.GetLastDataUpdate(); !at.IsZero() {
		resp.LastRefresh = &at
	}
	if err := state.LastError(); err != nil {
		resp.Status = "degraded"
		resp.LastError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// snapshot writes 503 and returns false until the first refresh landed.
func (s *Server) snapshot(w http.ResponseWriter) (analytics.Snapshot, bool) {
	snap, ok := s.pipeline.State.Snapshot()
	if !ok {
		msg := "analytics not ready"
		if err := s.pipeline.State.LastError(); err != nil {
			msg = err.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
	}
	return snap, ok
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:     snap.Summary,
		Line:        snap.Line,
		LineEvents:  snap.LineEvents,
		LineTraffic: snap.LineTraffic,
		Recent:      snap.Recent,
	})
}

func (s *Server) handleBehavior(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Behavior)
}

// handleTimeSeries serves the cached series for the default window and
// recomputes from the store for any other one.
func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "hours", analytics.DefaultSeriesHours)
	if err != nil || hours <= 0 || hours > maxSeriesHours {
		writeError(w, http.StatusBadRequest, "hours must be between 1 and "+strconv.Itoa(maxSeriesHours))
		return
	}

	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	if hours == analytics.DefaultSeriesHours {
		writeJSON(w, http.StatusOK, timeSeriesResponse{Hours: hours, Points: nonNil(snap.Series)})
		return
	}

	now := s.now().In(s.pipeline.Refresher.Location())
	events, err := s.store.ListSince(r.Context(), now.Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		util.LogErrorf("Failed to list events for time series: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}
	points := analytics.TimeSeries(events, now, hours)
	writeJSON(w, http.StatusOK, timeSeriesResponse{Hours: hours, Points: nonNil(points)})
}

func nonNil(points []analytics.TimeSeriesPoint) []analytics.TimeSeriesPoint {
	if points == nil {
		return []analytics.TimeSeriesPoint{}
	}
	return points
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 100)
	if err != nil || limit <= 0 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPageSize))
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must not be negative")
		return
	}

	eventType := strings.TrimSpace(r.URL.Query().Get("type"))
	line, ok := model.ParseLineCode(r.URL.Query().Get("line"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown line "+strconv.Quote(r.URL.Query().Get("line")))
		return
	}

	var events []model.AnalyticsEvent
	switch {
	case eventType != "" && line != "":
		writeError(w, http.StatusBadRequest, "filter by type or line, not both")
		return
	case eventType != "":
		events, err = s.store.ListByType(r.Context(), eventType, limit, offset)
	case line != "":
		events, err = s.store.ListByLine(r.Context(), line, limit, offset)
	default:
		events, err = s.store.ListAll(r.Context())
		events = pageOf(events, limit, offset)
	}
	if err != nil {
		util.LogErrorf("Failed to list events: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}
	if events == nil {
		events = []model.AnalyticsEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Limit: limit, Offset: offset})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var req newEventRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.EventDetails) > 0 && !sonic.Valid(req.EventDetails) {
		writeError(w, http.StatusBadRequest, "event_details is not valid JSON")
		return
	}
	req.EventType = strings.TrimSpace(req.EventType)
	if req.EventType == "" {
		writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}
	line, ok := model.ParseLineCode(req.LineCode)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown line_code "+strconv.Quote(req.LineCode))
		return
	}

	stored, err := s.store.Insert(r.Context(), model.AnalyticsEvent{
		EventType:    req.EventType,
		EventDetails: req.EventDetails,
		LineCode:     string(line),
	})
	if err != nil {
		util.LogErrorf("Failed to insert event: %v", err)
		writeError(w, http.StatusBadGateway, "failed to store event")
		return
	}
	// Stores without notifications still see the new row on the next refresh.
	s.pipeline.Listener.Mark()
	writeJSON(w, http.StatusCreated, stored)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func pageOf(events []model.AnalyticsEvent, limit, offset int) []model.AnalyticsEvent {
	if offset >= len(events) {
		return []model.AnalyticsEvent{}
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end]
}
