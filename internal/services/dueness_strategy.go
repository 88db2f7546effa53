package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a monthly template fires on a given day.
type DuenessChecker interface {
	IsDue(t core.RecurringTemplate, now time.Time) bool
}

// DueDay is the day t fires in now's month. A day past the end of the month
// fires on the last day.
func DueDay(t core.RecurringTemplate, now time.Time) int {
	last := core.MonthOf(now).DaysIn()
	if t.DayOfMonth > last {
		return last
	}
	return t.DayOfMonth
}

// ExactDayChecker fires only on the due day. A missed run is not caught up.
type ExactDayChecker struct{}

func (ExactDayChecker) IsDue(t core.RecurringTemplate, now time.Time) bool {
	return now.Day() == DueDay(t, now)
}

// CatchUpChecker fires on the due day and every later day of the month, so
// a job that missed a day still materializes the record.
type CatchUpChecker struct{}

func (CatchUpChecker) IsDue(t core.RecurringTemplate, now time.Time) bool {
	return now.Day() >= DueDay(t, now)
}

// CheckerFor maps the configured mode name to a checker.
func CheckerFor(mode string) (DuenessChecker, error) {
	switch mode {
	case "", "exact":
		return ExactDayChecker{}, nil
	case "catch_up":
		return CatchUpChecker{}, nil
	}
	return nil, fmt.Errorf("unknown dueness mode: %s", mode)
}
