package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var periodLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/01",
	"01/02/2006",
	"Jan 2006",
	"January 2006",
}

// parsePeriod reads a period cell. Periods are dates or months; times of day
// are kept but zones are normalised to UTC.
func parsePeriod(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// Raw workbook cells carry dates as serial day numbers.
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 1 {
		if t, err := excelize.ExcelDateToTime(v, false); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised period %q", s)
}

// monthLabel formats a period for narratives, e.g. "2025-06".
func monthLabel(t time.Time) string {
	return t.Format("2006-01")
}
