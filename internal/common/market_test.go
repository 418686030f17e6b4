package common

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04:05 -0700", value)
	if err != nil {
		t.Fatalf("failed to parse time %s: %v", value, err)
	}
	return parsed
}

func testCalendar(t *testing.T) *MarketCalendar {
	t.Helper()
	cal, err := NewMarketCalendar(MarketConfig{
		Timezone: "Asia/Kolkata",
		Open:     "09:15",
		Close:    "15:30",
		Weekdays: []int{1, 2, 3, 4, 5},
	})
	if err != nil {
		t.Fatalf("failed to build calendar: %v", err)
	}
	return cal
}

func TestIsOpen(t *testing.T) {
	cal := testCalendar(t)

	tests := []struct {
		name string
		now  string // IST is +0530
		want bool
	}{
		{
			name: "mid session weekday",
			now:  "2026-01-07 11:00:00 +0530", // Wednesday
			want: true,
		},
		{
			name: "exactly at open",
			now:  "2026-01-07 09:15:00 +0530",
			want: true,
		},
		{
			name: "one second before open",
			now:  "2026-01-07 09:14:59 +0530",
			want: false,
		},
		{
			name: "exactly at close is closed",
			now:  "2026-01-07 15:30:00 +0530",
			want: false,
		},
		{
			name: "one minute before close",
			now:  "2026-01-07 15:29:00 +0530",
			want: true,
		},
		{
			name: "saturday during session hours",
			now:  "2026-01-10 11:00:00 +0530",
			want: false,
		},
		{
			name: "sunday during session hours",
			now:  "2026-01-11 11:00:00 +0530",
			want: false,
		},
		{
			name: "weekday before open",
			now:  "2026-01-07 08:00:00 +0530",
			want: false,
		},
		{
			name: "weekday after close",
			now:  "2026-01-07 16:00:00 +0530",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.IsOpen(mustTime(t, tt.now))
			if got != tt.want {
				t.Errorf("IsOpen(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsOpenOtherTimezoneInput(t *testing.T) {
	cal := testCalendar(t)

	// 05:30 UTC on a Wednesday is 11:00 IST, mid session.
	now := mustTime(t, "2026-01-07 05:30:00 +0000")
	if !cal.IsOpen(now) {
		t.Errorf("IsOpen should convert UTC input into the exchange timezone")
	}
}

func TestSessionDate(t *testing.T) {
	cal := testCalendar(t)

	tests := []struct {
		name string
		now  string
		want string
	}{
		{
			name: "during session",
			now:  "2026-01-07 11:00:00 +0530",
			want: "2026-01-07",
		},
		{
			name: "late evening stays on same local day",
			now:  "2026-01-07 23:30:00 +0530",
			want: "2026-01-07",
		},
		{
			name: "utc instant near midnight maps to local day",
			now:  "2026-01-07 19:30:00 +0000", // 01:00 IST next day
			want: "2026-01-08",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.SessionDate(mustTime(t, tt.now))
			if got != tt.want {
				t.Errorf("SessionDate(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestLastTradingDay(t *testing.T) {
	cal := testCalendar(t)

	tests := []struct {
		name string
		now  string
		want string
	}{
		{
			name: "weekday returns same day",
			now:  "2026-01-07 11:00:00 +0530",
			want: "2026-01-07",
		},
		{
			name: "sunday returns friday",
			now:  "2026-01-11 11:00:00 +0530",
			want: "2026-01-09",
		},
		{
			name: "saturday returns friday",
			now:  "2026-01-10 11:00:00 +0530",
			want: "2026-01-09",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.LastTradingDay(mustTime(t, tt.now)).Format("2006-01-02")
			if got != tt.want {
				t.Errorf("LastTradingDay(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestNextTradingDay(t *testing.T) {
	cal := testCalendar(t)

	// Friday rolls over the weekend to Monday.
	got := cal.NextTradingDay(mustTime(t, "2026-01-09 16:00:00 +0530")).Format("2006-01-02")
	if got != "2026-01-12" {
		t.Errorf("NextTradingDay(friday) = %s, want 2026-01-12", got)
	}
}
