package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var errEmptyBoundary = errors.New("empty date")

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseBoundary parses a calendar start or end value. Date-only values are
// all-day and are placed at local midnight of loc. Naive date-times are
// localized to loc.
func parseBoundary(v string, loc *time.Location) (t time.Time, allDay bool, err error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false, errEmptyBoundary
	}
	if !strings.Contains(v, "T") {
		t, err = time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse date %q: %w", v, err)
		}
		return t, true, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err = time.ParseInLocation(layout, v, loc); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("parse date-time %q: %w", v, err)
}

// MonthWindow returns local midnight of the first day of month and of the
// following month, the half-open window a month's report covers.
func MonthWindow(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// DurationHours returns the billable hours of an event. All-day events count
// allDayHours for each calendar day they span.
func DurationHours(start, end time.Time, allDay bool, allDayHours float64) float64 {
	if allDay {
		days := int(end.Sub(start).Hours()/24 + 0.5)
		if days < 1 {
			days = 1
		}
		return float64(days) * allDayHours
	}
	return end.Sub(start).Seconds() / 3600
}
