// Package api is the client for the metro bus planning backend.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker/v2"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

const (
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4096
)

// Service is the set of backend operations used by the CLI.
type Service interface {
	Health(ctx context.Context) (map[string]interface{}, error)
	Stops(ctx context.Context, line model.LineCode) (*model.StopsResponse, error)
	SearchStops(ctx context.Context, query string, line model.LineCode) (*model.SearchStopsResponse, error)
	Lines(ctx context.Context) ([]model.LineInfo, error)
	Line(ctx context.Context, code model.LineCode) (*model.LineInfo, error)
	PlanRoute(ctx context.Context, req model.RoutePlanningRequest) (*model.RoutePlanningResponse, error)
	Chat(ctx context.Context, msg model.ChatMessage) (*model.ChatResponse, error)
	ExplainRoute(ctx context.Context, plan model.RoutePlan) (string, error)
	TravelTips(ctx context.Context, plan model.RoutePlan) (string, error)
	APIInfo(ctx context.Context) (map[string]interface{}, error)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// BreakerFailures consecutive transport or 5xx failures open the circuit.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks JSON to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new API client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	failures := opts.BreakerFailures
	settings := gobreaker.Settings{
		Name:    "metro-api",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Client-side mistakes say nothing about backend health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if be, ok := IsBackendError(err); ok {
				return !be.Temporary()
			}
			return errors.Is(err, ErrMalformed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			util.LogWarnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BreakerState reports the circuit state for diagnostics.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.getJSON(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stops lists the stops of line, or of every line when line is empty.
func (c *Client) Stops(ctx context.Context, line model.LineCode) (*model.StopsResponse, error) {
	var out model.StopsResponse
	if err := c.getJSON(ctx, "/stops", lineQuery(line), &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, &BackendError{Path: "/stops", StatusCode: http.StatusOK, Message: "stop list unavailable"}
	}
	return &out, nil
}

func (c *Client) SearchStops(ctx context.Context, query string, line model.LineCode) (*model.SearchStopsResponse, error) {
	params := lineQuery(line)
	params.Set("query", query)

	var out model.SearchStopsResponse
	if err := c.getJSON(ctx, "/search-stops", params, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, &BackendError{Path: "/search-stops", StatusCode: http.StatusOK, Message: "stop search failed"}
	}
	return &out, nil
}

func (c *Client) Lines(ctx context.Context) ([]model.LineInfo, error) {
	var out []model.LineInfo
	if err := c.getJSON(ctx, "/lines", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Line(ctx context.Context, code model.LineCode) (*model.LineInfo, error) {
	var out model.LineInfo
	if err := c.getJSON(ctx, "/line/"+url.PathEscape(string(code)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlanRoute asks the backend for itineraries. When the backend reports
// success:false the decoded response is returned together with a
// *BackendError carrying its message.
func (c *Client) PlanRoute(ctx context.Context, req model.RoutePlanningRequest) (*model.RoutePlanningResponse, error) {
	var out model.RoutePlanningResponse
	if err := c.postJSON(ctx, "/plan-route", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, &BackendError{Path: "/plan-route", StatusCode: http.StatusOK, Message: out.Message}
	}
	return &out, nil
}

func (c *Client) Chat(ctx context.Context, msg model.ChatMessage) (*model.ChatResponse, error) {
	var out model.ChatResponse
	if err := c.postJSON(ctx, "/chat", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExplainRoute(ctx context.Context, plan model.RoutePlan) (string, error) {
	return c.postText(ctx, "/explain-route", plan)
}

func (c *Client) TravelTips(ctx context.Context, plan model.RoutePlan) (string, error) {
	return c.postText(ctx, "/travel-tips", plan)
}

func (c *Client) APIInfo(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.getJSON(ctx, "/api-info", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// textFields are the keys the backend uses for free-form answers.
var textFields = []string{"explanation", "tips", "travel_tips", "response", "message"}

func (c *Client) postText(ctx context.Context, path string, body interface{}) (string, error) {
	var out interface{}
	if err := c.postJSON(ctx, path, body, &out); err != nil {
		return "", err
	}
	switch v := out.(type) {
	case string:
		return v, nil
	case map[string]interface{}:
		for _, field := range textFields {
			if s, ok := v[field].(string); ok {
				return s, nil
			}
			if list, ok := v[field].([]interface{}); ok {
				return joinStrings(list), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s has no text field", ErrMalformed, path)
}

func joinStrings(list []interface{}) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func lineQuery(line model.LineCode) url.Values {
	params := url.Values{}
	if line != "" {
		params.Set("metro_line", string(line))
	}
	return params
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, path, target, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, c.baseURL+path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path, target string, payload []byte, out interface{}) error {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, target, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
		}
		return err
	}
	util.LogDebugf("%s %s completed in %s (%d bytes)", method, path, time.Since(start).Round(time.Millisecond), len(body))

	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformed, method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.LogDebugf("%s %s failed: %v", method, path, err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTransport, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		util.LogDebugf("%s %s returned status %d", method, path, resp.StatusCode)
		return nil, &BackendError{Path: path, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts a readable message from an error body. FastAPI
// reports {"detail": ...}; other handlers use "message" or "error".
func errorMessage(body []byte) string {
	var payload map[string]interface{}
	if err := sonic.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
