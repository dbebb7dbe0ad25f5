package model

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// AnalyticsEvent is an immutable record of a user or system action.
// CreatedAt is kept verbatim as the store returned it.
type AnalyticsEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	EventDetails json.RawMessage `json:"event_details,omitempty"`
	CreatedAt    string          `json:"created_at"`
	LineCode     string          `json:"line_code"`
}

// RoutePlanDetails is the payload logged with auto_route_planned_response.
type RoutePlanDetails struct {
	RoutePlans []RoutePlan `json:"route_plans"`
	Timestamp  string      `json:"timestamp"`
}

// RoutePlanRequestDetails is the payload logged with auto_route_planned_request.
type RoutePlanRequestDetails struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	PreferredTime string `json:"preferred_time,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// ChatSentDetails is the payload logged with user_message_sent.
type ChatSentDetails struct {
	Message       string `json:"message"`
	PreferredTime string `json:"preferred_time"`
	Timestamp     string `json:"timestamp"`
}

// ChatReceivedDetails is the payload logged with bot_message_received.
type ChatReceivedDetails struct {
	Response        string     `json:"response"`
	RouteSuggestion *RoutePlan `json:"route_suggestion"`
	Timestamp       string     `json:"timestamp"`
}

// LineSelectedDetails is the payload logged with line_selected.
type LineSelectedDetails struct {
	LineCode LineCode `json:"line_code"`
}

// DecodeDetails unmarshals the event payload into v. An empty payload
// leaves v untouched.
func (e AnalyticsEvent) DecodeDetails(v interface{}) error {
	if len(e.EventDetails) == 0 || string(e.EventDetails) == "null" {
		return nil
	}
	return sonic.Unmarshal(e.EventDetails, v)
}
