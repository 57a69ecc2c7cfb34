package utils

import (
	"fmt"
	"time"

	"github.com/username/cashflow/src/models"
)

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", dateStr, err)
	}
	return t, nil
}

// FormatDate renders t's calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

// DateOf drops the clock part of t, keeping its calendar date in t's location, as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date according to clock.
func Today(clock func() time.Time) time.Time {
	if clock == nil {
		clock = time.Now
	}
	return DateOf(clock())
}

// AddDays moves a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonthsClamped moves a calendar date by n months, keeping the day of month
// when the target month has it and using the target month's last day otherwise
// (Jan 31 + 1 month = Feb 28/29). time.AddDate would normalise into the next month.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := DaysInMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days of month m in year y.
func DaysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
