package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Month is the canonical YYYY-MM time bucket. Lexical order equals
// chronological order only because every constructor zero-pads, so build
// months with NewMonth, MonthOf or ParseMonth and never by concatenation.
type Month string

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// NewMonth builds a month key from integers, normalizing overflowing months
// (month 13 of 2024 is 2025-01, month 0 is December of the previous year).
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// MonthOf returns the month key containing t.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth validates an external month string. It accepts only the zero
// padded YYYY-MM form.
func ParseMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month(s), nil
}

// MustParseMonth is ParseMonth for constants and tests.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MonthOfDate returns the month of a YYYY-MM-DD (or YYYY-MM) string.
func MonthOfDate(date string) (Month, error) {
	if len(date) < 7 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, date)
	}
	return ParseMonth(date[:7])
}

// YearMonth splits the key into its integer parts. An invalid key yields
// year 0, January.
func (m Month) YearMonth() (int, time.Month) {
	if len(m) != 7 {
		return 0, time.January
	}
	y, err := strconv.Atoi(string(m[:4]))
	if err != nil {
		return 0, time.January
	}
	mm, err := strconv.Atoi(string(m[5:]))
	if err != nil || mm < 1 || mm > 12 {
		return y, time.January
	}
	return y, time.Month(mm)
}

// AddMonths moves n months forward (or backward for negative n).
func (m Month) AddMonths(n int) Month {
	y, mm := m.YearMonth()
	total := y*12 + int(mm) - 1 + n
	return NewMonth(total/12, time.Month(total%12+1))
}

// Next is AddMonths(1).
func (m Month) Next() Month {
	return m.AddMonths(1)
}

// Prev is AddMonths(-1).
func (m Month) Prev() Month {
	return m.AddMonths(-1)
}

// FirstDay returns midnight UTC of the first day of the month.
func (m Month) FirstDay() time.Time {
	y, mm := m.YearMonth()
	return time.Date(y, mm, 1, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of calendar days in the month.
func (m Month) DaysIn() int {
	y, mm := m.YearMonth()
	return time.Date(y, mm+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) Before(o Month) bool { return m < o }
func (m Month) After(o Month) bool  { return m > o }

func (m Month) IsZero() bool { return m == "" }

func (m Month) String() string { return string(m) }

// Validate reports whether the key is well formed.
func (m Month) Validate() error {
	_, err := ParseMonth(string(m))
	return err
}

// MonthsBetween returns the number of month steps from `from` to `to`;
// negative when to is earlier.
func MonthsBetween(from, to Month) int {
	fy, fm := from.YearMonth()
	ty, tm := to.YearMonth()
	return (ty*12 + int(tm)) - (fy*12 + int(fm))
}
