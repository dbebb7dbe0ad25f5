package model

// LineInfo describes a metro line.
type LineInfo struct {
	LineCode   LineCode `json:"line_code"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	ThemeColor string   `json:"theme_color"`
	TotalStops int      `json:"total_stops"`
}

// StopsResponse is returned by GET /stops.
type StopsResponse struct {
	Success   bool     `json:"success"`
	Stops     []string `json:"stops"`
	Count     int      `json:"count"`
	MetroLine LineCode `json:"metro_line,omitempty"`
}

// SearchStopsResponse is returned by GET /search-stops.
type SearchStopsResponse struct {
	Success   bool     `json:"success"`
	Query     string   `json:"query"`
	Stops     []string `json:"stops"`
	Count     int      `json:"count"`
	MetroLine LineCode `json:"metro_line,omitempty"`
}

// FindLine returns the info for code within lines.
func FindLine(lines []LineInfo, code LineCode) (*LineInfo, bool) {
	for i := range lines {
		if lines[i].LineCode == code {
			return &lines[i], true
		}
	}
	return nil, false
}

// LineColor returns the display color for a line code.
func LineColor(code string) string {
	switch LineCode(code) {
	case LineGreen:
		return "#10b981"
	case LineBlue:
		return "#5194f6"
	default:
		return "#6b7280"
	}
}
