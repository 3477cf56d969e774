// Package calendar decides whether a single item has a delivery due on a given civil date.
//
// Every view that needs to know "is this item delivered on that day" goes through
// IsDeliveryDue; no caller re-derives the weekly/bi-weekly/monthly rules.
package calendar

import (
	"github.com/smallbiznis/recurra/internal/delivery/domain"
)

// IsDeliveryDue reports whether schedule has a delivery on date for a subscription that
// started on start. Malformed schedules are never due.
func IsDeliveryDue(schedule domain.Schedule, start, date domain.Date) bool {
	if domain.ValidateSchedule(schedule) != nil {
		return false
	}

	switch s := schedule.(type) {
	case domain.Weekly:
		return s.Contains(domain.WeekdayOf(date))
	case domain.BiWeekly:
		if domain.WeekdayOf(date) != s.Day {
			return false
		}
		diff := WeekDiff(start, date)
		return diff >= 0 && diff%2 == 0
	case domain.Monthly:
		return date.Day == s.Day
	default:
		return false
	}
}

// WeekDiff returns the number of Monday-start calendar weeks from a to b.
// It is negative when b falls in an earlier week than a.
func WeekDiff(a, b domain.Date) int {
	return domain.MondayOf(b).DaysSince(domain.MondayOf(a)) / 7
}

// DueDates lists the dates of rng on which schedule delivers.
func DueDates(schedule domain.Schedule, start domain.Date, rng domain.DateRange) []domain.Date {
	var out []domain.Date
	for _, d := range rng.Days() {
		if IsDeliveryDue(schedule, start, d) {
			out = append(out, d)
		}
	}
	return out
}
