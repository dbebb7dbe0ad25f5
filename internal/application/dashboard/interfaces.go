package dashboard

import (
	"context"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/presentation/display"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
	"github.com/penwyp/go-metrobus/internal/presentation/layout"
)

// EventSource fetches the whole event log
type EventSource interface {
	ListAll(ctx context.Context) ([]model.AnalyticsEvent, error)
}

// Subscriber delivers a value per observed insert
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// DisplayController handles terminal display operations
type DisplayController interface {
	EnterAlternateScreen()
	ExitAlternateScreen()
	ClearScreen()
	RenderWithState(frame layout.Frame, state display.ViewState)
}

// InputHandler processes keyboard and other input events
type InputHandler interface {
	Events() <-chan interaction.KeyEvent
	Close() error
}
