package analyzer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/store"
	"github.com/penwyp/go-metrobus/internal/testing/fixtures"
)

type fakeSource struct {
	events []model.AnalyticsEvent
	err    error
	since  time.Time
	all    bool
}

func (f *fakeSource) ListAll(ctx context.Context) ([]model.AnalyticsEvent, error) {
	f.all = true
	return f.events, f.err
}

func (f *fakeSource) ListSince(ctx context.Context, since time.Time) ([]model.AnalyticsEvent, error) {
	f.since = since
	return f.events, f.err
}

func TestParseDuration(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "single hour", input: "1h", expected: time.Hour},
		{name: "multiple hours", input: "12h", expected: 12 * time.Hour},
		{name: "single day", input: "1d", expected: 24 * time.Hour},
		{name: "multiple days", input: "7d", expected: 7 * 24 * time.Hour},
		{name: "single week", input: "1w", expected: 7 * 24 * time.Hour},
		{name: "single month", input: "1m", expected: 30 * 24 * time.Hour},
		{name: "single year", input: "1y", expected: 365 * 24 * time.Hour},
		{name: "days and hours", input: "1d12h", expected: 36 * time.Hour},
		{name: "weeks and days", input: "2w3d", expected: (2*7 + 3) * 24 * time.Hour},
		{
			name:     "complex combination",
			input:    "1y2m3w4d5h",
			expected: 365*24*time.Hour + 2*30*24*time.Hour + 3*7*24*time.Hour + 4*24*time.Hour + 5*time.Hour,
		},
		{name: "invalid format", input: "invalid", wantErr: true},
		{name: "invalid unit", input: "5x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, now.Add(-tt.expected), result)
		})
	}

	t.Run("empty string", func(t *testing.T) {
		result, err := parseDuration("", now)
		require.NoError(t, err)
		assert.True(t, result.IsZero())
	})
}

func sampleEvents(now time.Time) []model.AnalyticsEvent {
	at := func(d time.Duration) string { return now.Add(-d).UTC().Format(time.RFC3339) }
	return []model.AnalyticsEvent{
		{ID: "1", EventType: model.EventRoutePlanRequest, CreatedAt: at(time.Hour), LineCode: "GREEN"},
		{ID: "2", EventType: model.EventRoutePlanResponse, CreatedAt: at(time.Hour), LineCode: "GREEN"},
		{ID: "3", EventType: model.EventUserMessageSent, CreatedAt: at(2 * time.Hour), LineCode: "BLUE"},
		{ID: "4", EventType: model.EventWebsiteOpened, CreatedAt: at(3 * time.Hour)},
	}
}

func newTestAnalyzer(cfg *Config, src EventSource, out *bytes.Buffer, now time.Time) *Analyzer {
	a := New(cfg, src, out)
	a.now = func() time.Time { return now }
	return a
}

func TestAnalyzerRunJSON(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{events: sampleEvents(now)}
	var out bytes.Buffer

	a := newTestAnalyzer(&Config{OutputFormat: "json", Timezone: "UTC", Line: model.LineBlue}, src, &out, now)
	require.NoError(t, a.Run(context.Background()))
	assert.True(t, src.all)

	var report struct {
		Timezone string `json:"timezone"`
		Snapshot struct {
			Summary struct {
				TotalEvents int `json:"total_events"`
			} `json:"summary"`
			Line       string `json:"line"`
			LineEvents int    `json:"line_events"`
		} `json:"snapshot"`
	}
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &report), out.String())
	assert.Equal(t, "UTC", report.Timezone)
	assert.Equal(t, 4, report.Snapshot.Summary.TotalEvents)
	assert.Equal(t, "BLUE", report.Snapshot.Line)
	assert.Equal(t, 1, report.Snapshot.LineEvents)
}

func TestAnalyzerRunWithDuration(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{events: sampleEvents(now)}
	var out bytes.Buffer

	a := newTestAnalyzer(&Config{OutputFormat: "csv", Timezone: "UTC", Duration: "1d"}, src, &out, now)
	require.NoError(t, a.Run(context.Background()))
	assert.False(t, src.all)
	assert.Equal(t, now.Add(-24*time.Hour), src.since)
	assert.True(t, strings.HasPrefix(out.String(), "date,label,queries,responses\n"))
}

func TestAnalyzerDefaults(t *testing.T) {
	cfg := &Config{}
	New(cfg, &fakeSource{}, &bytes.Buffer{})
	assert.Equal(t, "Local", cfg.Timezone)
	assert.Equal(t, "table", cfg.OutputFormat)
}

func TestAnalyzerErrors(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		cfg  *Config
		src  *fakeSource
		want string
	}{
		{"bad output", &Config{OutputFormat: "xml"}, &fakeSource{}, "unsupported output format"},
		{"bad timezone", &Config{Timezone: "Mars/Base"}, &fakeSource{}, "invalid timezone"},
		{"bad duration", &Config{Duration: "soon"}, &fakeSource{}, "invalid duration format"},
		{"store failure", &Config{}, &fakeSource{err: errors.New("db down")}, "db down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := newTestAnalyzer(tt.cfg, tt.src, &out, now).Run(context.Background())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestAnalyzerTableOutput(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	a := newTestAnalyzer(&Config{Timezone: "UTC"}, &fakeSource{events: sampleEvents(now)}, &out, now)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "Total")
}

func TestAnalyzerOverGeneratedLog(t *testing.T) {
	dir := t.TempDir()
	g := fixtures.NewEventLogGenerator(dir)
	require.NoError(t, g.GenerateCommuterDay(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)))
	_, err := g.Write()
	require.NoError(t, err)

	fs, err := store.NewFileStore(dir)
	require.NoError(t, err)
	defer fs.Close()

	now := time.Date(2024, 5, 15, 20, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	a := newTestAnalyzer(&Config{OutputFormat: "json", Timezone: "UTC", Line: model.LineGreen}, fs, &out, now)
	require.NoError(t, a.Run(context.Background()))

	var report struct {
		Snapshot struct {
			Summary struct {
				TotalEvents     int            `json:"total_events"`
				TodayEvents     int            `json:"today_events"`
				EventTypeCounts map[string]int `json:"event_type_counts"`
			} `json:"summary"`
			LineEvents int `json:"line_events"`
		} `json:"snapshot"`
	}
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &report), out.String())
	assert.Equal(t, 9, report.Snapshot.Summary.TotalEvents)
	assert.Equal(t, 9, report.Snapshot.Summary.TodayEvents)
	assert.Equal(t, 3, report.Snapshot.Summary.EventTypeCounts[model.EventRoutePlanRequest])
	assert.Equal(t, 3, report.Snapshot.LineEvents)
}
