package clock

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/smallbiznis/recurra/internal/config"
)

// BusinessCalendar turns instants into calendar days in the business time zone.
type BusinessCalendar struct {
	clock    Clock
	location *time.Location
}

func NewBusinessCalendar(clk Clock, location *time.Location) *BusinessCalendar {
	if clk == nil {
		clk = New()
	}
	if location == nil {
		location = time.UTC
	}
	return &BusinessCalendar{clock: clk, location: location}
}

// ProvideBusinessCalendar builds the calendar from the configured time zone name.
func ProvideBusinessCalendar(clk Clock, cfg config.Config) (*BusinessCalendar, error) {
	name := strings.TrimSpace(cfg.BusinessTimezone)
	if name == "" {
		name = "UTC"
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", name, err)
	}
	return NewBusinessCalendar(clk, location), nil
}

// Today is the current calendar day in the business time zone.
func (b *BusinessCalendar) Today() civil.Date {
	return b.DateOf(b.clock.Now())
}

// DateOf converts an instant into the business calendar day it falls on.
func (b *BusinessCalendar) DateOf(t time.Time) civil.Date {
	return civil.DateOf(t.In(b.location))
}

func (b *BusinessCalendar) Location() *time.Location {
	return b.location
}

func (b *BusinessCalendar) Now() time.Time {
	return b.clock.Now()
}
