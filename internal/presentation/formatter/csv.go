package formatter

import (
	"encoding/csv"
	"io"
	"strconv"
)

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Format writes one record per day of traffic.
func (f *CSVFormatter) Format(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"date", "label", "queries", "responses"}); err != nil {
		return err
	}
	for _, row := range dailyRows(report) {
		record := []string{
			row.Date,
			row.Label,
			strconv.Itoa(row.Queries),
			strconv.Itoa(row.Responses),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
