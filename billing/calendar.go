/*
calendar.go - Business-day resolution for a billed month

PURPOSE:
  Computes the ordered list of business days (Monday-Friday, excluding the
  institution's active holidays) for a year/month. This is the iteration
  domain for the per-person accumulator: holiday dates never appear in it,
  which is why holidays that coincide with an enrollment are reconciled
  separately (see accumulate.go).

CONTRACT:
  - month must be 1-12, otherwise ErrInvalidMonth
  - output is ascending calendar dates
  - no side effects beyond reading the holiday feed; fetch errors propagate
    unrecovered, never as partial results
*/
package billing

import (
	"context"
	"time"
)

// CalendarResolver resolves business days against the holiday feed.
type CalendarResolver struct {
	Feed Feed
}

// BusinessDays returns every Monday-Friday date of the month that is not an
// active holiday, in ascending order.
func (cr CalendarResolver) BusinessDays(ctx context.Context, year int, month int) ([]Date, error) {
	m := NewMonth(year, time.Month(month))
	if !m.Valid() {
		return nil, ErrInvalidMonth
	}

	holidays, err := cr.Feed.HolidaysIn(ctx, m)
	if err != nil {
		return nil, &FeedError{Collection: "holidays", Err: err}
	}

	var active []Date
	for _, h := range holidays {
		if h.Active && !h.Date.IsZero() && m.Contains(h.Date) {
			active = append(active, h.Date)
		}
	}
	return businessDays(m, active), nil
}

// businessDays is the pure resolution over an already-fetched holiday set.
func businessDays(m Month, holidays []Date) []Date {
	holidaySet := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		holidaySet[h.String()] = true
	}

	var days []Date
	for _, d := range m.Days() {
		if d.IsWeekend() || holidaySet[d.String()] {
			continue
		}
		days = append(days, d)
	}
	return days
}
