package model

// RouteSegment is one bus leg of a route plan.
type RouteSegment struct {
	RouteName       string   `json:"route_name"`
	Direction       string   `json:"direction"`
	TripID          string   `json:"trip_id"`
	StartStop       string   `json:"start_stop"`
	EndStop         string   `json:"end_stop"`
	DepartureTime   string   `json:"departure_time"`
	ArrivalTime     string   `json:"arrival_time"`
	DurationMinutes int      `json:"duration_minutes"`
	MetroLine       LineCode `json:"metro_line"`
}

// RoutePlan is an ordered itinerary returned by the planning API.
type RoutePlan struct {
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	TotalDuration int            `json:"total_duration"`
	Segments      []RouteSegment `json:"segments"`
	TotalWaitTime int            `json:"total_wait_time"`
	Instructions  []string       `json:"instructions"`
	MetroLines    []LineCode     `json:"metro_lines"`
}

// FirstDeparture returns the departure time of the first segment as "HH:MM".
func (p RoutePlan) FirstDeparture() (string, bool) {
	if len(p.Segments) == 0 {
		return "", false
	}
	dep := p.Segments[0].DepartureTime
	if len(dep) >= 5 {
		dep = dep[:5]
	}
	return dep, dep != ""
}

// Endpoints returns the plan origin and destination, falling back to the
// first and last segment stops when the plan omits them.
func (p RoutePlan) Endpoints() (origin, destination string) {
	origin, destination = p.Origin, p.Destination
	if len(p.Segments) > 0 {
		if origin == "" {
			origin = p.Segments[0].StartStop
		}
		if destination == "" {
			destination = p.Segments[len(p.Segments)-1].EndStop
		}
	}
	return origin, destination
}

// RoutePlanningRequest is the body of POST /plan-route.
type RoutePlanningRequest struct {
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	PreferredTime string   `json:"preferred_time,omitempty"`
	MaxWaitTime   int      `json:"max_wait_time"`
	MetroLine     LineCode `json:"metro_line,omitempty"`
}

// RoutePlanningResponse is returned by POST /plan-route.
type RoutePlanningResponse struct {
	Success           bool        `json:"success"`
	Message           string      `json:"message"`
	RoutePlans        []RoutePlan `json:"route_plans"`
	AlternativeRoutes []RoutePlan `json:"alternative_routes,omitempty"`
}

// ChatMessage is the body of POST /chat.
type ChatMessage struct {
	Message       string   `json:"message"`
	UserID        string   `json:"user_id,omitempty"`
	PreferredTime string   `json:"preferred_time,omitempty"`
	MetroLine     LineCode `json:"metro_line,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response        string     `json:"response"`
	Status          string     `json:"status"`
	RouteSuggestion *RoutePlan `json:"route_suggestion,omitempty"`
}
