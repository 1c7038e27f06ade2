package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// timestampLayouts covers the date renderings seen in tracker exports:
// ISO-8601 variants, Jira's web export and US spreadsheet locales.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2/Jan/06 3:04 PM",
	"2/Jan/06 15:04",
	"2/Jan/06",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// numericTime converts a bare number found in a timestamp column.
// Nil means numbers are not valid timestamps for the source format.
type numericTime func(v float64) (time.Time, error)

// excelSerial interprets numbers as Excel serial dates (1900 date system).
func excelSerial(v float64) (time.Time, error) {
	return excelize.ExcelDateToTime(v, false)
}

// epochMillis interprets numbers as milliseconds since the Unix epoch,
// the default date encoding of dataframe JSON exports.
func epochMillis(v float64) (time.Time, error) {
	return time.UnixMilli(int64(v)).UTC(), nil
}

// parseTimestamp parses a cell from a timestamp column. Empty cells yield nil.
func parseTimestamp(raw string, numeric numericTime) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if missingValue(s) || strings.EqualFold(s, "nat") || strings.EqualFold(s, "null") {
		return nil, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}

	if numeric != nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			t, err := numeric(v)
			if err != nil {
				return nil, err
			}
			return &t, nil
		}
	}

	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}
