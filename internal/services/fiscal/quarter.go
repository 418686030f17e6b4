// Package fiscal implements quarter arithmetic and quarterly result
// comparisons over a configurable fiscal calendar. The default calendar
// starts in April: Q1 is Apr-Jun and Q4 is Jan-Mar of the following
// calendar year.
package fiscal

import (
	"fmt"
	"time"
)

// DefaultStartMonth is the April fiscal-year start.
const DefaultStartMonth = time.April

// Quarter identifies one fiscal quarter. FYStart is the calendar year the
// fiscal year begins in, so Q4 of FYStart 2025 covers Jan-Mar 2026.
type Quarter struct {
	Q       int `json:"quarter"`
	FYStart int `json:"fy_start"`
}

// QuarterOf maps an instant to its fiscal quarter under the given start
// month.
func QuarterOf(t time.Time, startMonth time.Month) Quarter {
	if startMonth < time.January || startMonth > time.December {
		startMonth = DefaultStartMonth
	}

	monthsSinceStart := int(t.Month()) - int(startMonth)
	fyStart := t.Year()
	if monthsSinceStart < 0 {
		monthsSinceStart += 12
		fyStart--
	}

	return Quarter{
		Q:       monthsSinceStart/3 + 1,
		FYStart: fyStart,
	}
}

// Previous returns the immediately preceding quarter. Q1 wraps to Q4 of the
// prior fiscal year.
func (q Quarter) Previous() Quarter {
	if q.Q == 1 {
		return Quarter{Q: 4, FYStart: q.FYStart - 1}
	}
	return Quarter{Q: q.Q - 1, FYStart: q.FYStart}
}

// YearAgo returns the same quarter one fiscal year earlier.
func (q Quarter) YearAgo() Quarter {
	return Quarter{Q: q.Q, FYStart: q.FYStart - 1}
}

// Next returns the following quarter.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Q: 1, FYStart: q.FYStart + 1}
	}
	return Quarter{Q: q.Q + 1, FYStart: q.FYStart}
}

// Valid reports whether the quarter number and year are plausible.
func (q Quarter) Valid() bool {
	return q.Q >= 1 && q.Q <= 4 && q.FYStart >= 1990 && q.FYStart <= 2100
}

// Label renders the conventional short form, e.g. "Q2 FY2526".
func (q Quarter) Label() string {
	return fmt.Sprintf("Q%d FY%02d%02d", q.Q, q.FYStart%100, (q.FYStart+1)%100)
}

func (q Quarter) String() string {
	return q.Label()
}
