package domain

import (
	"fmt"
	"time"
)

// WeekID returns the ISO-8601 week identifier (YYYY-Www) for t.
// Weeks start on Monday; the week containing the year's first Thursday is W01,
// so days near a year boundary may belong to the other year's week.
func WeekID(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
