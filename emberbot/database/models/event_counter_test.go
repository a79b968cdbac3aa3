package models

import (
	"testing"
	"time"
)

func TestCounterPeriodKey(t *testing.T) {
	ts := time.Date(2026, 8, 31, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))

	tests := []struct {
		name   string
		period string
		want   string
	}{
		{name: "Lifetime", period: PeriodLifetime, want: "lifetime"},
		{name: "DailyUsesUTCDate", period: PeriodDaily, want: "2026-08-31"},
		{name: "Seasonal", period: PeriodSeasonal, want: "season:3"},
		{name: "UnknownFallsBackToLifetime", period: "weekly", want: "lifetime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CounterPeriodKey(tt.period, ts, 3); got != tt.want {
				t.Errorf("CounterPeriodKey(%q) = %q, want %q", tt.period, got, tt.want)
			}
		})
	}
}

func TestCounterPeriodKeyDailyMidnightBoundary(t *testing.T) {
	// 23:30 UTC+2 is 21:30 UTC, same day; 01:30 UTC+2 is the previous UTC day.
	early := time.Date(2026, 9, 1, 1, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
	if got := CounterPeriodKey(PeriodDaily, early, 1); got != "2026-08-31" {
		t.Errorf("CounterPeriodKey() = %q, want %q", got, "2026-08-31")
	}
}
