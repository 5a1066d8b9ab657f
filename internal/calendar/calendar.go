// Package calendar answers whether an exchange with a fixed holiday table is
// open on a given day.
package calendar

import (
	"fmt"
	"time"
)

// Calendar holds closed dates as 8-digit YYYYMMDD integers grouped by year.
type Calendar struct {
	holidays map[int]map[int]struct{}
}

func New(holidays map[int][]int) *Calendar {
	c := &Calendar{holidays: make(map[int]map[int]struct{}, len(holidays))}
	for year, dates := range holidays {
		set := make(map[int]struct{}, len(dates))
		for _, d := range dates {
			set[d] = struct{}{}
		}
		c.holidays[year] = set
	}
	return c
}

// DateKey renders t as the YYYYMMDD integer used in the holiday table.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	set, ok := c.holidays[t.Year()]
	if !ok {
		return false
	}
	_, closed := set[DateKey(t)]
	return closed
}

// IsClosed reports whether t falls on a weekend or a configured holiday,
// with a short reason for the operator log.
func (c *Calendar) IsClosed(t time.Time) (bool, string) {
	if IsWeekend(t) {
		return true, fmt.Sprintf("%d is a %s", DateKey(t), t.Weekday())
	}
	if c.IsHoliday(t) {
		return true, fmt.Sprintf("%d is a configured holiday", DateKey(t))
	}
	return false, ""
}
