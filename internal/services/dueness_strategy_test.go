package services

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestDueDay_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name string
		day  int
		now  time.Time
		want int
	}{
		{"mid month", 15, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 15},
		{"31st in april", 31, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 30},
		{"30th in february", 30, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 28},
		{"29th in leap february", 29, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueDay(core.RecurringTemplate{DayOfMonth: tt.day}, tt.now)
			if got != tt.want {
				t.Errorf("DueDay() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCheckers_IsDue(t *testing.T) {
	tmpl := core.RecurringTemplate{DayOfMonth: 10}
	tests := []struct {
		name    string
		checker DuenessChecker
		day     int
		want    bool
	}{
		{"exact before", ExactDayChecker{}, 9, false},
		{"exact on day", ExactDayChecker{}, 10, true},
		{"exact after", ExactDayChecker{}, 11, false},
		{"catch up before", CatchUpChecker{}, 9, false},
		{"catch up on day", CatchUpChecker{}, 10, true},
		{"catch up after", CatchUpChecker{}, 25, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2025, 3, tt.day, 6, 0, 0, 0, time.UTC)
			if got := tt.checker.IsDue(tmpl, now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}

	feb := time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC)
	if !(ExactDayChecker{}).IsDue(core.RecurringTemplate{DayOfMonth: 31}, feb) {
		t.Error("day 31 should fire on the last day of February")
	}
}

func TestCheckerFor(t *testing.T) {
	tests := []struct {
		mode    string
		want    DuenessChecker
		wantErr bool
	}{
		{"", ExactDayChecker{}, false},
		{"exact", ExactDayChecker{}, false},
		{"catch_up", CatchUpChecker{}, false},
		{"weekly", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := CheckerFor(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckerFor(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CheckerFor(%q) = %T, want %T", tt.mode, got, tt.want)
			}
		})
	}
}
