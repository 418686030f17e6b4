package results

import (
	"testing"
	"time"

	"github.com/ternarybob/fiscus/internal/services/fiscal"
)

func TestIsResultsAnnouncement(t *testing.T) {
	tests := []struct {
		name     string
		headline string
		want     bool
	}{
		{
			name:     "unaudited results",
			headline: "Unaudited Financial Results for the quarter ended 30 September 2025",
			want:     true,
		},
		{
			name:     "board meeting outcome",
			headline: "Outcome of Board Meeting - Q2 FY2526",
			want:     true,
		},
		{
			name:     "quarterly results lowercase",
			headline: "quarterly results approved by the board",
			want:     true,
		},
		{
			name:     "agm notice is not results",
			headline: "Notice of Annual General Meeting",
			want:     false,
		},
		{
			name:     "investor presentation is not results",
			headline: "Investor Presentation November 2025",
			want:     false,
		},
		{
			name:     "dividend announcement is not results",
			headline: "Declaration of Interim Dividend",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := IsResultsAnnouncement(tt.headline, "")
			if got != tt.want {
				t.Errorf("IsResultsAnnouncement(%q) = %v, want %v", tt.headline, got, tt.want)
			}
		})
	}
}

func TestClassifyQuarter(t *testing.T) {
	// Announced mid October 2025 = Q3 FY2526.
	announcedAt := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		text   string
		want   fiscal.Quarter
		wantOK bool
	}{
		{
			name:   "explicit quarter and paired fiscal year",
			text:   "Financial Results Q2 FY2526",
			want:   fiscal.Quarter{Q: 2, FYStart: 2025},
			wantOK: true,
		},
		{
			name:   "hyphenated fiscal year",
			text:   "Results for Q2 FY 2025-26",
			want:   fiscal.Quarter{Q: 2, FYStart: 2025},
			wantOK: true,
		},
		{
			name:   "two digit fiscal year names the close",
			text:   "Q2 FY26 Results",
			want:   fiscal.Quarter{Q: 2, FYStart: 2025},
			wantOK: true,
		},
		{
			name:   "four digit calendar close year",
			text:   "Q4 FY2025 audited results",
			want:   fiscal.Quarter{Q: 4, FYStart: 2024},
			wantOK: true,
		},
		{
			name:   "quarter end month pins both fields",
			text:   "Unaudited results for the quarter ended 30th September, 2025",
			want:   fiscal.Quarter{Q: 2, FYStart: 2025},
			wantOK: true,
		},
		{
			name:   "march quarter belongs to prior fiscal year",
			text:   "Results for the quarter ended 31 March 2026",
			want:   fiscal.Quarter{Q: 4, FYStart: 2025},
			wantOK: true,
		},
		{
			name:   "bare quarter infers fiscal year from announcement date",
			text:   "Q2 Results",
			want:   fiscal.Quarter{Q: 2, FYStart: 2025},
			wantOK: true,
		},
		{
			name:   "bare quarter not yet closed maps to prior year",
			text:   "Q3 Results",
			want:   fiscal.Quarter{Q: 3, FYStart: 2024},
			wantOK: true,
		},
		{
			name:   "quarter token contradicting the month is rejected",
			text:   "Q1 results for the quarter ended 30 September 2025",
			wantOK: false,
		},
		{
			name:   "no label at all",
			text:   "Financial Results approved",
			wantOK: false,
		},
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyQuarter(tt.text, announcedAt, time.April)
			if ok != tt.wantOK {
				t.Fatalf("ClassifyQuarter(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ClassifyQuarter(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
