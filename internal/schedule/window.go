// Package schedule decides whether a campaign may send right now and,
// if not, when its send window next opens. Working hours are evaluated
// in the campaign's own timezone.
package schedule

import (
	"time"

	"github.com/innovareai/outreach-dispatcher/internal/domain"
)

const (
	// DefaultTimezone is used when a campaign has no timezone configured.
	DefaultTimezone = "America/Los_Angeles"

	// DefaultStartHour opens early to catch East Coast business hours
	// from a Pacific default timezone.
	DefaultStartHour = 5
	DefaultEndHour   = 17
)

// normalize fills zero-valued schedule settings with workspace defaults.
func normalize(s domain.ScheduleSettings) domain.ScheduleSettings {
	if s.Timezone == "" {
		s.Timezone = DefaultTimezone
	}
	if s.WorkingHoursStart == 0 && s.WorkingHoursEnd == 0 {
		s.WorkingHoursStart = DefaultStartHour
		s.WorkingHoursEnd = DefaultEndHour
	}
	return s
}

// location resolves the settings timezone, falling back to UTC on bad data
// rather than failing the cycle.
func location(s domain.ScheduleSettings) *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InWindow reports whether now falls inside the campaign's send window:
// within working hours, and not on a skipped weekend or public holiday.
func InWindow(now time.Time, settings domain.ScheduleSettings) bool {
	s := normalize(settings)
	local := now.In(location(s))

	if s.SkipWeekends && isWeekend(local) {
		return false
	}
	if s.SkipHolidays && IsPublicHoliday(local) {
		return false
	}

	h := local.Hour()
	return h >= s.WorkingHoursStart && h < s.WorkingHoursEnd
}

// NextOpen returns the earliest time at or after from when the send window
// is open. If from is already inside the window it is returned unchanged.
func NextOpen(from time.Time, settings domain.ScheduleSettings) time.Time {
	s := normalize(settings)
	loc := location(s)
	t := from.In(loc)

	for {
		if s.SkipWeekends && isWeekend(t) {
			t = startOfNextDay(t, s.WorkingHoursStart)
			continue
		}
		if s.SkipHolidays && IsPublicHoliday(t) {
			t = startOfNextDay(t, s.WorkingHoursStart)
			continue
		}
		if t.Hour() < s.WorkingHoursStart {
			t = time.Date(t.Year(), t.Month(), t.Day(), s.WorkingHoursStart, 0, 0, 0, t.Location())
			continue
		}
		if t.Hour() >= s.WorkingHoursEnd {
			t = startOfNextDay(t, s.WorkingHoursStart)
			continue
		}
		return t
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func startOfNextDay(t time.Time, hour int) time.Time {
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), hour, 0, 0, 0, t.Location())
}
