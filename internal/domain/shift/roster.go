package shift

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// ParseRosterCSV reads a roster grid of the form
//
//	user_id,2024-01-08,2024-01-09,...
//	u-123,morning,,afternoon
//
// into upsert rows. Empty cells produce rows with an empty type, which the
// store's merge semantics skip. Unknown shift type labels are an error.
func ParseRosterCSV(r io.Reader) ([]UpsertRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("roster header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("roster header needs a user column and at least one date")
	}

	dates := make([]time.Time, 0, len(header)-1)
	for _, cell := range header[1:] {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(cell))
		if err != nil {
			return nil, fmt.Errorf("roster header date %q: %w", cell, err)
		}
		dates = append(dates, date)
	}

	var out []UpsertRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster line %d: %w", line, err)
		}
		userID := strings.TrimSpace(record[0])
		if userID == "" {
			return nil, fmt.Errorf("roster line %d: missing user", line)
		}
		for i, date := range dates {
			value := ""
			if i+1 < len(record) {
				value = strings.TrimSpace(record[i+1])
			}
			if value != "" && !ValidType(value) {
				return nil, fmt.Errorf("roster line %d: unknown shift type %q", line, value)
			}
			out = append(out, UpsertRow{UserID: userID, Date: date, Type: value})
		}
	}
	return out, nil
}
