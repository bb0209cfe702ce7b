// Package calendar answers session questions about a single exchange:
// which local days trade and when the session opens.
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	DefaultLocation = "America/New_York"
	DefaultOpen     = "09:30"
)

// Calendar is a weekday-only exchange calendar with a fixed open time.
type Calendar struct {
	loc        *time.Location
	openHour   int
	openMinute int
}

// New builds a calendar for the IANA zone name and an "HH:MM" open time.
func New(zone, open string) (*Calendar, error) {
	if zone == "" {
		zone = DefaultLocation
	}
	if open == "" {
		open = DefaultOpen
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load market location %q: %w", zone, err)
	}
	t, err := time.Parse("15:04", open)
	if err != nil {
		return nil, fmt.Errorf("parse market open %q: %w", open, err)
	}
	return &Calendar{loc: loc, openHour: t.Hour(), openMinute: t.Minute()}, nil
}

// Default is the NYSE-style calendar. It panics only if the embedded zone
// database is broken.
func Default() *Calendar {
	c, err := New(DefaultLocation, DefaultOpen)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Calendar) Location() *time.Location { return c.loc }

// IsTradingDay reports whether t falls on a weekday in market local time.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	switch t.In(c.loc).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// OpenOn returns the session open instant on the local calendar day of t.
func (c *Calendar) OpenOn(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, c.openHour, c.openMinute, 0, 0, c.loc)
}

// NextTradingDay returns local midnight of the first weekday strictly after
// the local day of t.
func (c *Calendar) NextTradingDay(t time.Time) time.Time {
	day := c.midnight(t).AddDate(0, 0, 1)
	for !c.IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// HasOpenedSince reports whether a market session has started between
// purchasedAt and now, i.e. whether the feed's session percent change can be
// attributed to a holding bought at purchasedAt.
//
// Same local day: true once now is at or after today's open on a weekday.
// Earlier day: true once now reaches the open of the first weekday after the
// purchase day.
func (c *Calendar) HasOpenedSince(purchasedAt, now time.Time) bool {
	purchaseDay := c.midnight(purchasedAt)
	today := c.midnight(now)

	switch {
	case purchaseDay.Equal(today):
		return c.IsTradingDay(now) && !now.Before(c.OpenOn(now))
	case purchaseDay.After(today):
		return false
	default:
		return !now.Before(c.OpenOn(c.NextTradingDay(purchasedAt)))
	}
}

func (c *Calendar) midnight(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}
