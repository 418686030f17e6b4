// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"time"
)

// MarketCalendar answers session questions for a single exchange.
// It is a pure value type: no caching, no clock of its own. Callers pass
// the time they care about, which keeps every consumer testable.
type MarketCalendar struct {
	loc       *time.Location
	openHour  int
	openMin   int
	closeHour int
	closeMin  int
	weekdays  map[time.Weekday]bool
}

// NewMarketCalendar builds a calendar from configuration.
func NewMarketCalendar(cfg MarketConfig) (*MarketCalendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid market timezone %s: %w", cfg.Timezone, err)
	}

	openHour, openMin, err := parseWallClock(cfg.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid market open: %w", err)
	}
	closeHour, closeMin, err := parseWallClock(cfg.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid market close: %w", err)
	}

	weekdays := make(map[time.Weekday]bool)
	if len(cfg.Weekdays) == 0 {
		for d := time.Monday; d <= time.Friday; d++ {
			weekdays[d] = true
		}
	} else {
		for _, d := range cfg.Weekdays {
			if d < 0 || d > 6 {
				return nil, fmt.Errorf("invalid market weekday %d", d)
			}
			weekdays[time.Weekday(d)] = true
		}
	}

	return &MarketCalendar{
		loc:       loc,
		openHour:  openHour,
		openMin:   openMin,
		closeHour: closeHour,
		closeMin:  closeMin,
		weekdays:  weekdays,
	}, nil
}

// Location returns the exchange timezone.
func (c *MarketCalendar) Location() *time.Location {
	return c.loc
}

// IsTradingDay reports whether the given instant falls on a trading weekday
// in the exchange timezone. Exchange holidays are not modelled; a holiday
// simply produces empty fetches upstream.
func (c *MarketCalendar) IsTradingDay(t time.Time) bool {
	return c.weekdays[t.In(c.loc).Weekday()]
}

// IsOpen reports whether the market session is live at the given instant.
// The session is the half-open interval [open, close).
func (c *MarketCalendar) IsOpen(now time.Time) bool {
	local := now.In(c.loc)
	if !c.weekdays[local.Weekday()] {
		return false
	}

	open := time.Date(local.Year(), local.Month(), local.Day(), c.openHour, c.openMin, 0, 0, c.loc)
	close := time.Date(local.Year(), local.Month(), local.Day(), c.closeHour, c.closeMin, 0, 0, c.loc)

	return !local.Before(open) && local.Before(close)
}

// SessionDate returns the session date (YYYY-MM-DD) for the given instant
// in the exchange timezone. Off-hours instants map to the calendar day they
// fall on, which is what end-of-day bookkeeping keys on.
func (c *MarketCalendar) SessionDate(now time.Time) string {
	return now.In(c.loc).Format("2006-01-02")
}

// LastTradingDay returns the most recent trading day on or before the given
// instant, walking backwards up to 10 days.
func (c *MarketCalendar) LastTradingDay(t time.Time) time.Time {
	local := t.In(c.loc)
	current := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)

	for i := 0; i < 10; i++ {
		if c.weekdays[current.Weekday()] {
			return current
		}
		current = current.AddDate(0, 0, -1)
	}

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// NextTradingDay returns the next trading day after the given instant,
// walking forward up to 10 days.
func (c *MarketCalendar) NextTradingDay(t time.Time) time.Time {
	local := t.In(c.loc)
	current := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc).AddDate(0, 0, 1)

	for i := 0; i < 10; i++ {
		if c.weekdays[current.Weekday()] {
			return current
		}
		current = current.AddDate(0, 0, 1)
	}

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc).AddDate(0, 0, 1)
}
