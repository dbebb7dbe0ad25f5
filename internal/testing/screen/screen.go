// Package screen replays terminal output onto a virtual screen so tests
// can assert on what a user would see after in-place repaints.
package screen

import (
	"regexp"
	"strconv"
	"strings"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[?0-9;]*[a-zA-Z]`)

// StripANSI removes all CSI escape sequences from s.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Screen is a fixed-size grid with a cursor.
type Screen struct {
	rows, cols int
	cells      [][]rune
	x, y       int
}

// New returns a blank screen.
func New(rows, cols int) *Screen {
	s := &Screen{rows: rows, cols: cols}
	s.cells = make([][]rune, rows)
	for i := range s.cells {
		s.cells[i] = blankRow(cols)
	}
	return s
}

// Replay returns a 100x120 screen after writing output to it.
func Replay(output string) *Screen {
	s := New(100, 120)
	s.Write(output)
	return s
}

func blankRow(cols int) []rune {
	row := make([]rune, cols)
	for i := range row {
		row[i] = ' '
	}
	return row
}

// Write interprets output, applying cursor movement and erase sequences.
// Color and mode sequences are ignored.
func (s *Screen) Write(output string) {
	runes := []rune(output)
	for i := 0; i < len(runes); {
		switch r := runes[i]; {
		case r == '\x1b' && i+1 < len(runes) && runes[i+1] == '[':
			i = s.sequence(runes, i+2)
		case r == '\r':
			s.x = 0
			i++
		case r == '\n':
			s.lineFeed()
			i++
		default:
			s.put(r)
			i++
		}
	}
}

// sequence handles one CSI sequence whose parameters start at i and
// returns the index after its final byte.
func (s *Screen) sequence(runes []rune, i int) int {
	start := i
	for i < len(runes) && (runes[i] == '?' || runes[i] == ';' || (runes[i] >= '0' && runes[i] <= '9')) {
		i++
	}
	if i >= len(runes) {
		return i
	}
	params := string(runes[start:i])
	cmd := runes[i]
	if strings.HasPrefix(params, "?") {
		return i + 1
	}

	var args []int
	for _, p := range strings.Split(params, ";") {
		n, _ := strconv.Atoi(p)
		args = append(args, n)
	}
	arg := func(k int) int {
		if k < len(args) {
			return args[k]
		}
		return 0
	}

	switch cmd {
	case 'H', 'f':
		s.y = clamp(arg(0)-1, 0, s.rows-1)
		s.x = clamp(arg(1)-1, 0, s.cols-1)
	case 'J':
		s.eraseDisplay(arg(0))
	case 'K':
		s.eraseLine(arg(0))
	case 'A':
		s.y = clamp(s.y-max(arg(0), 1), 0, s.rows-1)
	case 'B':
		s.y = clamp(s.y+max(arg(0), 1), 0, s.rows-1)
	case 'C':
		s.x = clamp(s.x+max(arg(0), 1), 0, s.cols-1)
	case 'D':
		s.x = clamp(s.x-max(arg(0), 1), 0, s.cols-1)
	}
	return i + 1
}

func (s *Screen) put(r rune) {
	if s.x >= s.cols {
		return
	}
	s.cells[s.y][s.x] = r
	s.x++
}

func (s *Screen) lineFeed() {
	s.x = 0
	s.y++
	if s.y < s.rows {
		return
	}
	s.cells = append(s.cells[1:], blankRow(s.cols))
	s.y = s.rows - 1
}

func (s *Screen) eraseDisplay(mode int) {
	switch mode {
	case 0:
		s.eraseLine(0)
		for y := s.y + 1; y < s.rows; y++ {
			s.cells[y] = blankRow(s.cols)
		}
	case 1:
		s.eraseLine(1)
		for y := 0; y < s.y; y++ {
			s.cells[y] = blankRow(s.cols)
		}
	default:
		for y := range s.cells {
			s.cells[y] = blankRow(s.cols)
		}
	}
}

func (s *Screen) eraseLine(mode int) {
	from, to := s.x, s.cols
	switch mode {
	case 1:
		from, to = 0, min(s.x+1, s.cols)
	case 2:
		from = 0
	}
	for x := from; x < to; x++ {
		s.cells[s.y][x] = ' '
	}
}

// Line returns row n without trailing spaces.
func (s *Screen) Line(n int) string {
	if n < 0 || n >= s.rows {
		return ""
	}
	return strings.TrimRight(string(s.cells[n]), " ")
}

// Lines returns the visible rows up to the last non-blank one.
func (s *Screen) Lines() []string {
	last := -1
	lines := make([]string, s.rows)
	for i := range lines {
		lines[i] = s.Line(i)
		if lines[i] != "" {
			last = i
		}
	}
	return lines[:last+1]
}

// String renders the visible rows joined by newlines.
func (s *Screen) String() string {
	return strings.Join(s.Lines(), "\n")
}

// Contains reports whether text appears on any single row.
func (s *Screen) Contains(text string) bool {
	for _, line := range s.Lines() {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
