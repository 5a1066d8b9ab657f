package trader

import (
	"time"

	"supertrader/internal/calendar"
)

// MarketGate decides at startup whether trading should proceed today.
type MarketGate interface {
	IsTradableToday(now time.Time) (bool, string)
}

// AlwaysOpen is the gate for venues that trade around the clock.
type AlwaysOpen struct{}

func (AlwaysOpen) IsTradableToday(time.Time) (bool, string) { return true, "" }

// CalendarGate closes on weekends and configured holidays.
type CalendarGate struct {
	Calendar *calendar.Calendar
	// Location, when set, converts now before the date is taken.
	Location *time.Location
}

func NewCalendarGate(holidays map[int][]int, loc *time.Location) CalendarGate {
	return CalendarGate{Calendar: calendar.New(holidays), Location: loc}
}

func (g CalendarGate) IsTradableToday(now time.Time) (bool, string) {
	if g.Location != nil {
		now = now.In(g.Location)
	}
	closed, reason := g.Calendar.IsClosed(now)
	return !closed, reason
}
