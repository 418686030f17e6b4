// Package results watches the corporate announcement feed for quarterly
// results publications and turns each one into a stored comparison.
package results

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/fiscus/internal/services/fiscal"
)

// IsResultsAnnouncement determines whether a filing is a quarterly results
// publication based on keywords in the headline and description.
// Returns the matched keyword for logging.
func IsResultsAnnouncement(headline, description string) (isResults bool, keyword string) {
	headlineUpper := strings.ToUpper(headline)
	descUpper := strings.ToUpper(description)

	// Results keywords - quarterly financial publications
	resultsKeywords := []string{
		"FINANCIAL RESULTS",
		"UNAUDITED FINANCIAL RESULTS",
		"AUDITED FINANCIAL RESULTS",
		"QUARTERLY RESULTS",
		"QUARTER ENDED",
		"RESULTS FOR THE QUARTER",
		"STANDALONE FINANCIAL RESULTS",
		"CONSOLIDATED FINANCIAL RESULTS",
		"OUTCOME OF BOARD MEETING",
	}

	for _, kw := range resultsKeywords {
		if strings.Contains(headlineUpper, kw) || strings.Contains(descUpper, kw) {
			return true, kw
		}
	}

	// Exclude filings that merely schedule a results board meeting
	return false, ""
}

var (
	quarterPattern = regexp.MustCompile(`\bQ([1-4])\b`)
	// "FY26", "FY2526", "FY 2025-26", "FY2025"
	fiscalYearPattern = regexp.MustCompile(`\bFY\s?(\d{4})(?:-(\d{2}))?\b|\bFY\s?(\d{2})\b`)
	// "quarter ended June 2025", "30th September, 2025"
	monthYearPattern = regexp.MustCompile(`(?i)\b(JANUARY|FEBRUARY|MARCH|APRIL|MAY|JUNE|JULY|AUGUST|SEPTEMBER|OCTOBER|NOVEMBER|DECEMBER)[,.]?\s+(\d{4})\b`)
)

var monthsByName = map[string]time.Month{
	"JANUARY": time.January, "FEBRUARY": time.February, "MARCH": time.March,
	"APRIL": time.April, "MAY": time.May, "JUNE": time.June,
	"JULY": time.July, "AUGUST": time.August, "SEPTEMBER": time.September,
	"OCTOBER": time.October, "NOVEMBER": time.November, "DECEMBER": time.December,
}

// ClassifyQuarter extracts the fiscal quarter a results filing reports on
// from its free text. Recognized forms, in order of preference:
//
//	explicit quarter + fiscal year   "Q2 FY2526", "Q2 FY26", "Q2 FY 2025-26"
//	quarter-end month + year         "quarter ended 30 September 2025"
//	explicit quarter only            "Q2 results" (fiscal year inferred from
//	                                 the announcement date)
//
// When no form matches, ok is false. Callers must treat that as a failed
// classification; guessing the current quarter here would silently file
// figures under the wrong period.
func ClassifyQuarter(text string, announcedAt time.Time, startMonth time.Month) (quarter fiscal.Quarter, ok bool) {
	textUpper := strings.ToUpper(text)

	q := 0
	if m := quarterPattern.FindStringSubmatch(textUpper); m != nil {
		q, _ = strconv.Atoi(m[1])
	}

	if q != 0 {
		if fyStart, found := parseFiscalYear(textUpper); found {
			return fiscal.Quarter{Q: q, FYStart: fyStart}, true
		}
	}

	// A quarter-end month pins down both quarter and fiscal year.
	if m := monthYearPattern.FindStringSubmatch(textUpper); m != nil {
		year, _ := strconv.Atoi(m[2])
		if month, known := monthsByName[strings.ToUpper(m[1])]; known && year >= 1990 && year <= 2100 {
			endOfQuarter := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			derived := fiscal.QuarterOf(endOfQuarter, startMonth)
			if q == 0 || q == derived.Q {
				return derived, true
			}
			// Quarter token contradicts the stated month: unclassifiable.
			return fiscal.Quarter{}, false
		}
	}

	if q != 0 {
		// Results land after the quarter closes, so a bare "Q3" seen during
		// Q1 or Q2 belongs to the previous fiscal year.
		current := fiscal.QuarterOf(announcedAt, startMonth)
		fyStart := current.FYStart
		if q >= current.Q {
			fyStart--
		}
		return fiscal.Quarter{Q: q, FYStart: fyStart}, true
	}

	return fiscal.Quarter{}, false
}

// parseFiscalYear reads an FY token and returns the calendar year the fiscal
// year starts in. "FY2526" and "FY 2025-26" are start/end pairs; "FY26" and
// "FY2025" name the closing year.
func parseFiscalYear(textUpper string) (fyStart int, ok bool) {
	m := fiscalYearPattern.FindStringSubmatch(textUpper)
	if m == nil {
		return 0, false
	}

	switch {
	case m[2] != "": // "FY 2025-26"
		start, _ := strconv.Atoi(m[1])
		return start, true
	case m[1] != "": // four digits: "FY2526" or "FY2025"
		value, _ := strconv.Atoi(m[1])
		first, second := value/100, value%100
		if second == (first+1)%100 {
			// Consecutive two-digit pair: start/end form.
			return 2000 + first, true
		}
		// Calendar year of the fiscal close.
		return value - 1, true
	case m[3] != "": // two digits: "FY26"
		end, _ := strconv.Atoi(m[3])
		return 2000 + end - 1, true
	}
	return 0, false
}
