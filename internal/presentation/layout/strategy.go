package layout

import (
	"io"
	"time"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
)

// Layout styles
const (
	StyleFull = iota
	StyleMinimal

	styleCount
)

// Frame is everything one dashboard render needs.
type Frame struct {
	// Snapshot is nil until the first refresh completes.
	Snapshot *analytics.Snapshot
	// EventTypes is the event type tally in display order.
	EventTypes []interaction.CountRow
	SortField  interaction.SortField

	Line      model.LineCode
	LineName  string
	Timezone  string
	Now       time.Time
	UpdatedAt time.Time
	Realtime  int64
	Loading   bool
	Status    string
}

// LayoutStrategy defines the interface for different layout rendering strategies
type LayoutStrategy interface {
	Render(w io.Writer, frame Frame, width int)
	GetName() string
}

// NextStyle returns the style after style, wrapping around.
func NextStyle(style int) int {
	return (style + 1) % styleCount
}

// GetLayoutStrategy returns the appropriate layout strategy based on the style
func GetLayoutStrategy(layoutStyle int) LayoutStrategy {
	strategies := map[int]LayoutStrategy{
		StyleFull:    &FullLayoutStrategy{},
		StyleMinimal: &MinimalLayoutStrategy{},
	}

	if strategy, exists := strategies[layoutStyle]; exists {
		return strategy
	}

	// Default to full dashboard if invalid style
	return &FullLayoutStrategy{}
}
