package fitness

import "time"

// Named reporting periods accepted by chart and leaderboard endpoints.
const (
	PeriodCurrentMonth = "current_month"
	PeriodLastMonth    = "last_month"
	PeriodLast3Months  = "last_3_months"
	PeriodLastYear     = "last_year"
	PeriodAllTime      = "alltime"
)

// ResolveRange maps a named period to an inclusive [start, end] date range.
// Every range ends at today except last_month, which ends on the last day of
// the previous month. Unknown names fall back to the current month.
func ResolveRange(period string, today time.Time) (time.Time, time.Time) {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodLastMonth:
		firstOfThisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		lastOfLastMonth := firstOfThisMonth.AddDate(0, 0, -1)
		start := time.Date(lastOfLastMonth.Year(), lastOfLastMonth.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, lastOfLastMonth
	case PeriodLast3Months:
		firstOfThisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		anchor := firstOfThisMonth.AddDate(0, 0, -60)
		start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, today
	case PeriodLastYear:
		return time.Date(today.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC), today
	case PeriodAllTime:
		return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), today
	default: // current_month
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today
	}
}
