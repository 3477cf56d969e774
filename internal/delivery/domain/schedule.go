// Package domain contains the snapshot types shared by the delivery scheduling engine.
package domain

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Date is a calendar date without time of day or zone.
type Date = civil.Date

// Frequency is the recurrence class of a subscription item.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "bi-weekly"
	FrequencyMonthly  Frequency = "monthly"
)

// ParseFrequency accepts the canonical names plus the common spellings seen in stored rows.
func ParseFrequency(raw string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "weekly":
		return FrequencyWeekly, nil
	case "bi-weekly", "biweekly", "bi_weekly":
		return FrequencyBiWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return "", ErrUnknownFrequency
	}
}

// Weekday is a lower-case English weekday name.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdayByTime = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

var weekdayAliases = map[string]Weekday{
	"monday": Monday, "mon": Monday,
	"tuesday": Tuesday, "tue": Tuesday,
	"wednesday": Wednesday, "wed": Wednesday,
	"thursday": Thursday, "thu": Thursday,
	"friday": Friday, "fri": Friday,
	"saturday": Saturday, "sat": Saturday,
	"sunday": Sunday, "sun": Sunday,
}

// ParseWeekday normalizes a stored weekday name.
func ParseWeekday(raw string) (Weekday, error) {
	day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrInvalidWeekday
	}
	return day, nil
}

// Valid reports whether w is one of the seven canonical names.
func (w Weekday) Valid() bool {
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// WeekdayOf returns the weekday of a civil date.
func WeekdayOf(d Date) Weekday {
	return weekdayByTime[d.In(time.UTC).Weekday()]
}

// Schedule is the frequency-specific delivery rule of an item.
// Only Weekly, BiWeekly, Monthly and Malformed implement it.
type Schedule interface {
	Frequency() Frequency
	Validate() error
	isSchedule()
}

// Weekly delivers on every listed weekday.
type Weekly struct {
	Days []Weekday
}

func (Weekly) Frequency() Frequency { return FrequencyWeekly }
func (Weekly) isSchedule()          {}

func (w Weekly) Validate() error {
	if len(w.Days) == 0 {
		return ErrEmptyDeliveryDays
	}
	for _, day := range w.Days {
		if !day.Valid() {
			return ErrInvalidWeekday
		}
	}
	return nil
}

// Contains reports whether day is one of the delivery days.
func (w Weekly) Contains(day Weekday) bool {
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// DistinctDays counts the unique delivery days.
func (w Weekly) DistinctDays() int {
	seen := make(map[Weekday]struct{}, len(w.Days))
	for _, d := range w.Days {
		seen[d] = struct{}{}
	}
	return len(seen)
}

// BiWeekly delivers every other week on Day, parity anchored at the subscription start.
type BiWeekly struct {
	Day Weekday
}

func (BiWeekly) Frequency() Frequency { return FrequencyBiWeekly }
func (BiWeekly) isSchedule()          {}

func (b BiWeekly) Validate() error {
	if b.Day == "" {
		return ErrMissingSchedule
	}
	if !b.Day.Valid() {
		return ErrInvalidWeekday
	}
	return nil
}

// Monthly delivers on a fixed day of month. Days past the end of a month never fire.
type Monthly struct {
	Day int
}

func (Monthly) Frequency() Frequency { return FrequencyMonthly }
func (Monthly) isSchedule()          {}

func (m Monthly) Validate() error {
	if m.Day < 1 || m.Day > 31 {
		return ErrInvalidMonthDay
	}
	return nil
}

// Malformed stands in for a stored schedule that could not be decoded. It never validates,
// so the item is skipped with Err as the reason.
type Malformed struct {
	Err error
}

func (Malformed) Frequency() Frequency { return "" }
func (Malformed) isSchedule()          {}

func (m Malformed) Validate() error {
	if m.Err == nil {
		return ErrMissingSchedule
	}
	return m.Err
}

// ValidateSchedule is Validate with a nil check.
func ValidateSchedule(s Schedule) error {
	if s == nil {
		return ErrMissingSchedule
	}
	return s.Validate()
}
