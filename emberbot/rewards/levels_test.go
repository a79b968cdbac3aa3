package rewards

import "testing"

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		name string
		xp   int64
		want int
	}{
		{name: "Zero", xp: 0, want: 0},
		{name: "Negative", xp: -50, want: 0},
		{name: "BelowFirstLevel", xp: 99, want: 0},
		{name: "ExactFirstLevel", xp: 100, want: 1},
		{name: "MidCurve", xp: 2500, want: 5},
		{name: "JustBelowNext", xp: 3599, want: 5},
		{name: "HighXP", xp: 1000000, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelForXP(tt.xp); got != tt.want {
				t.Errorf("LevelForXP(%d) = %v, want %v", tt.xp, got, tt.want)
			}
		})
	}
}

func TestXPForLevelRoundTrip(t *testing.T) {
	for level := 0; level <= 50; level++ {
		xp := XPForLevel(level)
		if got := LevelForXP(xp); got != level {
			t.Errorf("LevelForXP(XPForLevel(%d)) = %v, want %v", level, got, level)
		}
		if level > 0 {
			if got := LevelForXP(xp - 1); got != level-1 {
				t.Errorf("LevelForXP(%d) = %v, want %v", xp-1, got, level-1)
			}
		}
	}
}

func TestNextLevelXP(t *testing.T) {
	if got := NextLevelXP(0); got != 100 {
		t.Errorf("NextLevelXP(0) = %v, want 100", got)
	}
	if got := NextLevelXP(5); got != 3600 {
		t.Errorf("NextLevelXP(5) = %v, want 3600", got)
	}
}
