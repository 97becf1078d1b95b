package schedule

import "time"

// publicHolidays lists US public holidays the scheduler skips when a
// campaign has skip_holidays enabled. Dates are YYYY-MM-DD in the
// campaign's local timezone.
//
// TODO: load per-country calendars from the workspace settings table once
// campaigns outside the US need holiday skipping.
var publicHolidays = map[string]bool{
	"2025-01-01": true, // New Year's Day
	"2025-01-20": true, // MLK Day
	"2025-02-17": true, // Presidents' Day
	"2025-05-26": true, // Memorial Day
	"2025-06-19": true, // Juneteenth
	"2025-07-04": true, // Independence Day
	"2025-09-01": true, // Labor Day
	"2025-11-27": true, // Thanksgiving
	"2025-12-25": true, // Christmas
	"2026-01-01": true, // New Year's Day
	"2026-01-19": true, // MLK Day
	"2026-02-16": true, // Presidents' Day
	"2026-05-25": true, // Memorial Day
	"2026-06-19": true, // Juneteenth
	"2026-07-03": true, // Independence Day (observed)
	"2026-09-07": true, // Labor Day
	"2026-11-26": true, // Thanksgiving
	"2026-12-25": true, // Christmas
}

// IsPublicHoliday reports whether the local date of t is a public holiday.
func IsPublicHoliday(t time.Time) bool {
	return publicHolidays[t.Format("2006-01-02")]
}
