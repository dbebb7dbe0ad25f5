package interaction

import (
	"sort"
)

// SortField represents the field to sort count rows by
type SortField int

const (
	SortByCount SortField = iota
	SortByName
)

func (f SortField) String() string {
	if f == SortByName {
		return "name"
	}
	return "count"
}

// SortOrder represents the sort order
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// CountRow is one labelled tally, such as an event type and its count.
type CountRow struct {
	Name  string
	Count int
}

// RowsFromCounts turns a tally map into rows.
func RowsFromCounts(counts map[string]int) []CountRow {
	rows := make([]CountRow, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, CountRow{Name: name, Count: count})
	}
	return rows
}

// CountSorter orders count rows. Ties always fall back to name ascending
// so the order is stable between refreshes.
type CountSorter struct {
	field SortField
	order SortOrder
}

// NewCountSorter creates a sorter ordering by count, highest first.
func NewCountSorter() *CountSorter {
	return &CountSorter{
		field: SortByCount,
		order: SortDescending,
	}
}

// Toggle switches between count and name ordering. Counts sort descending,
// names ascending.
func (s *CountSorter) Toggle() {
	if s.field == SortByCount {
		s.field, s.order = SortByName, SortAscending
		return
	}
	s.field, s.order = SortByCount, SortDescending
}

func (s *CountSorter) Field() SortField {
	return s.field
}

// Sort sorts the rows based on current settings
func (s *CountSorter) Sort(rows []CountRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if s.field == SortByCount && a.Count != b.Count {
			if s.order == SortDescending {
				return a.Count > b.Count
			}
			return a.Count < b.Count
		}
		if a.Name == b.Name {
			return false
		}
		if s.field == SortByName && s.order == SortDescending {
			return a.Name > b.Name
		}
		return a.Name < b.Name
	})
}
