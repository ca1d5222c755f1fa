package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar-date abstraction (billing is day-granular, never date-time)
// =============================================================================

// Date is a calendar date. All billing comparisons happen on the date
// component only: two Dates are equal when year/month/day match, regardless
// of the wall-clock time carried by the underlying time.Time.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO "2006-01-02" date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.normalize().Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// String returns the ISO date, which is also the key format used when
// indexing entitlement records by day.
func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// =============================================================================
// MONTH - The billing period
// =============================================================================

// Month identifies one billed month. M is 1-12.
type Month struct {
	Year int
	M    time.Month
}

func NewMonth(year int, m time.Month) Month { return Month{Year: year, M: m} }

// Valid reports whether the month number is in 1-12 and the year is sane.
func (m Month) Valid() bool {
	return m.M >= time.January && m.M <= time.December && m.Year > 0
}

func (m Month) First() Date { return NewDate(m.Year, m.M, 1) }

func (m Month) Last() Date {
	t := time.Date(m.Year, m.M+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return DateOf(t)
}

// Days returns every calendar day of the month in ascending order.
func (m Month) Days() []Date {
	var days []Date
	current := m.First()
	last := m.Last()
	for current.BeforeOrEqual(last) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Contains reports whether the date falls inside the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Month() == m.M
}

// Previous returns the month before this one.
func (m Month) Previous() Month {
	t := m.First().Time.AddDate(0, -1, 0)
	return Month{Year: t.Year(), M: t.Month()}
}

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.M)) }

// =============================================================================
// WEEKDAY SET - An enrollment's standing weekdays (subset of Mon-Fri)
// =============================================================================

// WeekdaySet is a bitmask over time.Weekday (Sunday = bit 0).
type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// WorkweekSet is Monday through Friday.
func WorkweekSet() WeekdaySet {
	return NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
}

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) IsEmpty() bool           { return s == 0 }

// Count returns the number of weekdays in the set.
func (s WeekdaySet) Count() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Weekdays returns the members in Sunday-first order.
func (s WeekdaySet) Weekdays() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}
