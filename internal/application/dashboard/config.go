package dashboard

import (
	"fmt"
	"time"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
)

// DashboardConfig contains configuration for the dashboard command
type DashboardConfig struct {
	// Display settings
	Timezone string
	Line     model.LineCode

	// Refresh settings
	Debounce    time.Duration
	MinInterval time.Duration
	// UIRefreshRate is how many times per second the screen is redrawn.
	UIRefreshRate float64

	SeriesHours  int
	RecentEvents int
}

// Validate checks if the configuration is valid
func (c *DashboardConfig) Validate() error {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Line == "" {
		c.Line = model.DefaultLine
	}
	if _, ok := model.ParseLineCode(string(c.Line)); !ok {
		return fmt.Errorf("unknown metro line %q", c.Line)
	}
	if c.Debounce < 0 || c.MinInterval < 0 {
		return fmt.Errorf("refresh intervals must not be negative")
	}
	if c.UIRefreshRate <= 0 {
		c.UIRefreshRate = 1
	}
	if c.UIRefreshRate > 20 {
		return fmt.Errorf("ui refresh rate must be at most 20 per second")
	}
	if c.SeriesHours <= 0 {
		c.SeriesHours = analytics.DefaultSeriesHours
	}
	if c.RecentEvents <= 0 {
		c.RecentEvents = analytics.DefaultRecentEvents
	}
	return nil
}
