package clock

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/smallbiznis/recurra/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessCalendarTodayUsesBusinessZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:30 UTC on Jan 2 is still Jan 1 in Sao Paulo (UTC-3).
	fake := NewFakeClock(time.Date(2024, time.January, 2, 1, 30, 0, 0, time.UTC))
	cal := NewBusinessCalendar(fake, loc)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 1}, cal.Today())

	fake.Advance(3 * time.Hour)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 2}, cal.Today())
}

func TestProvideBusinessCalendar(t *testing.T) {
	cal, err := ProvideBusinessCalendar(New(), config.Config{BusinessTimezone: ""})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cal.Location())

	_, err = ProvideBusinessCalendar(New(), config.Config{BusinessTimezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestFakeClockSet(t *testing.T) {
	fake := NewFakeClock(time.Time{})
	at := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	fake.Set(at)
	assert.Equal(t, at, fake.Now())
}
