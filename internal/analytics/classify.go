package analytics

import (
	"strings"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

// Category is the traffic class of an event type.
type Category int

const (
	// CategoryNone is neither a query nor a response; only the raw tallies see it.
	CategoryNone Category = iota
	// CategoryExcluded marks housekeeping events kept out of traffic counting.
	CategoryExcluded
	CategoryQuery
	CategoryResponse
)

func (c Category) String() string {
	switch c {
	case CategoryExcluded:
		return "excluded"
	case CategoryQuery:
		return "query"
	case CategoryResponse:
		return "response"
	default:
		return "none"
	}
}

// Classify maps an event type to its traffic category. The rule follows the
// backend naming convention: "response" wins over "request".
func Classify(eventType string) Category {
	if eventType == model.EventWebsiteOpened || eventType == model.EventLineChanged {
		return CategoryExcluded
	}
	lower := strings.ToLower(eventType)
	if strings.Contains(lower, "response") {
		return CategoryResponse
	}
	if strings.Contains(lower, "request") {
		return CategoryQuery
	}
	return CategoryNone
}

// HumanizeEventType turns "auto_route_planned" into "Auto Route Planned".
func HumanizeEventType(eventType string) string {
	b := []byte(strings.ReplaceAll(eventType, "_", " "))
	atWordStart := true
	for i, c := range b {
		isWord := c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if isWord && atWordStart && c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
		atWordStart = !isWord
	}
	return string(b)
}
