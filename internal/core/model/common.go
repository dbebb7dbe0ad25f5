package model

// LineCode identifies one of the metro bus lines.
type LineCode string

// Line identifiers
const (
	LineGreen LineCode = "GREEN"
	LineBlue  LineCode = "BLUE"
)

// DefaultLine is selected until the user picks another one.
const DefaultLine = LineGreen

// Event type identifiers written by the client.
const (
	EventWebsiteOpened      = "website_opened"
	EventLineChanged        = "line_changed"
	EventLineSelected       = "line_selected"
	EventRoutePlanRequest   = "auto_route_planned_request"
	EventRoutePlanResponse  = "auto_route_planned_response"
	EventUserMessageSent    = "user_message_sent"
	EventBotMessageReceived = "bot_message_received"
)

// ParseLineCode normalizes user input such as "green" into a LineCode.
// The empty string maps to the empty code.
func ParseLineCode(s string) (LineCode, bool) {
	switch LineCode(upper(s)) {
	case LineGreen:
		return LineGreen, true
	case LineBlue:
		return LineBlue, true
	case "":
		return "", true
	}
	return "", false
}

func (l LineCode) String() string {
	return string(l)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
