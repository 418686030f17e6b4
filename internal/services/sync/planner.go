// Package sync fills the historical candle and delivery series
// incrementally: each run fetches only the window between what is already
// stored and today.
package sync

import "time"

const (
	// DefaultWindowDays is fetched for an instrument with no history.
	DefaultWindowDays = 7

	// MaxWindowDays caps any single fetch, bounding catch-up after long
	// gaps. Older history backfills across successive runs.
	MaxWindowDays = 30
)

// PlanWindow returns how many days to fetch given the latest stored date.
//
//	nil lastDate        -> defaultDays (first sync)
//	lastDate >= today   -> 0 (nothing to do)
//	otherwise           -> days since lastDate + 1, capped at maxDays
//
// The +1 re-fetches the latest stored day on purpose: its figures may have
// been revised upstream, and the store upserts by (symbol, date) so the
// overlap is free.
func PlanWindow(lastDate *time.Time, today time.Time, defaultDays, maxDays int) int {
	if defaultDays <= 0 {
		defaultDays = DefaultWindowDays
	}
	if maxDays <= 0 {
		maxDays = MaxWindowDays
	}

	if lastDate == nil {
		return defaultDays
	}

	last := truncateToDay(*lastDate)
	day := truncateToDay(today)

	if !last.Before(day) {
		return 0
	}

	days := int(day.Sub(last).Hours()/24) + 1
	if days > maxDays {
		return maxDays
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
