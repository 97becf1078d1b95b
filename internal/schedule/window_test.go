package schedule

import (
	"testing"
	"time"

	"github.com/innovareai/outreach-dispatcher/internal/domain"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%s): %v", name, err)
	}
	return loc
}

func TestInWindow(t *testing.T) {
	pacific := mustLoc(t, "America/Los_Angeles")

	settings := domain.ScheduleSettings{
		Timezone:          "America/Los_Angeles",
		WorkingHoursStart: 5,
		WorkingHoursEnd:   17,
		SkipWeekends:      true,
		SkipHolidays:      true,
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{
			name: "weekday mid-morning",
			now:  time.Date(2026, 3, 4, 10, 30, 0, 0, pacific), // Wednesday
			want: true,
		},
		{
			name: "weekday before window opens",
			now:  time.Date(2026, 3, 4, 4, 59, 0, 0, pacific),
			want: false,
		},
		{
			name: "weekday at exact open",
			now:  time.Date(2026, 3, 4, 5, 0, 0, 0, pacific),
			want: true,
		},
		{
			name: "weekday at exact close",
			now:  time.Date(2026, 3, 4, 17, 0, 0, 0, pacific),
			want: false,
		},
		{
			name: "saturday",
			now:  time.Date(2026, 3, 7, 10, 0, 0, 0, pacific),
			want: false,
		},
		{
			name: "public holiday",
			now:  time.Date(2026, 7, 3, 10, 0, 0, 0, pacific), // July 4th observed
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InWindow(tt.now, settings); got != tt.want {
				t.Errorf("InWindow(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestInWindowWeekendAllowed(t *testing.T) {
	pacific := mustLoc(t, "America/Los_Angeles")
	settings := domain.ScheduleSettings{
		Timezone:          "America/Los_Angeles",
		WorkingHoursStart: 5,
		WorkingHoursEnd:   18,
	}

	// Saturday inside working hours, skip_weekends off
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, pacific)
	if !InWindow(now, settings) {
		t.Error("weekend send should be allowed when skip_weekends is false")
	}
}

func TestInWindowUTCConversion(t *testing.T) {
	// 01:00 UTC on a Thursday is 17:00 Wednesday Pacific, outside the
	// window even though the UTC hour looks fine.
	settings := domain.ScheduleSettings{
		Timezone:          "America/Los_Angeles",
		WorkingHoursStart: 5,
		WorkingHoursEnd:   17,
	}
	now := time.Date(2026, 3, 5, 1, 0, 0, 0, time.UTC)
	if InWindow(now, settings) {
		t.Error("expected 17:00 local to be outside the window")
	}
}

func TestNextOpen(t *testing.T) {
	pacific := mustLoc(t, "America/Los_Angeles")
	settings := domain.ScheduleSettings{
		Timezone:          "America/Los_Angeles",
		WorkingHoursStart: 5,
		WorkingHoursEnd:   17,
		SkipWeekends:      true,
		SkipHolidays:      true,
	}

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "already inside window",
			from: time.Date(2026, 3, 4, 10, 0, 0, 0, pacific),
			want: time.Date(2026, 3, 4, 10, 0, 0, 0, pacific),
		},
		{
			name: "before open rolls forward same day",
			from: time.Date(2026, 3, 4, 3, 0, 0, 0, pacific),
			want: time.Date(2026, 3, 4, 5, 0, 0, 0, pacific),
		},
		{
			name: "after close rolls to next morning",
			from: time.Date(2026, 3, 4, 18, 0, 0, 0, pacific),
			want: time.Date(2026, 3, 5, 5, 0, 0, 0, pacific),
		},
		{
			name: "friday evening rolls over weekend",
			from: time.Date(2026, 3, 6, 19, 0, 0, 0, pacific),
			want: time.Date(2026, 3, 9, 5, 0, 0, 0, pacific), // Monday
		},
		{
			name: "holiday rolls to next business day",
			from: time.Date(2026, 12, 25, 9, 0, 0, 0, pacific),
			want: time.Date(2026, 12, 28, 5, 0, 0, 0, pacific), // Monday after Christmas
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOpen(tt.from, settings)
			if !got.Equal(tt.want) {
				t.Errorf("NextOpen(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	s := normalize(domain.ScheduleSettings{})
	if s.Timezone != DefaultTimezone {
		t.Errorf("timezone = %s, want %s", s.Timezone, DefaultTimezone)
	}
	if s.WorkingHoursStart != DefaultStartHour || s.WorkingHoursEnd != DefaultEndHour {
		t.Errorf("hours = %d-%d, want %d-%d",
			s.WorkingHoursStart, s.WorkingHoursEnd, DefaultStartHour, DefaultEndHour)
	}
}
