package core

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DaysBetween returns the day count between two calendar dates, inclusive of both
// endpoints: Jan 1 → Jan 3 is 3 days, and a one-day event counts as 1. It never
// clamps: an end date before the start date is an error, not a zero.
func DaysBetween(start, end string) (int, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable start date %q", ErrInvalidEventPeriod, start)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable end date %q", ErrInvalidEventPeriod, end)
	}
	if e.Before(s) {
		return 0, fmt.Errorf("%w: end date %s before start date %s", ErrInvalidEventPeriod, end, start)
	}
	return int(e.Sub(s).Hours()/24) + 1, nil
}
