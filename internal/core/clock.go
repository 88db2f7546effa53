package core

import "time"

// DateLayout is the ISO date format used for record dates. Zero padded, so
// dates compare lexically.
const DateLayout = "2006-01-02"

// Clock supplies "now" so month selection never reads ambient state.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the given location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// FixedDate is a FixedClock at noon UTC on the given day.
func FixedDate(year int, month time.Month, day int) FixedClock {
	return FixedClock(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// Today returns today's date string.
func Today(c Clock) string {
	return c.Now().Format(DateLayout)
}

// CurrentMonth returns the month containing today.
func CurrentMonth(c Clock) Month {
	return MonthOf(c.Now())
}

// IsCurrentMonth is exact key equality with CurrentMonth.
func IsCurrentMonth(c Clock, m Month) bool {
	return m == CurrentMonth(c)
}

// IsUpToToday reports whether date is empty or on/before today.
func IsUpToToday(c Clock, date string) bool {
	return DateUpTo(date, Today(c))
}

// DateUpTo is IsUpToToday against an explicit today string.
func DateUpTo(date, today string) bool {
	return date == "" || date <= today
}
