package rewards

import "math"

const levelCurveBase = 100

// LevelForXP maps cumulative XP to a level on a quadratic curve: reaching
// level n costs 100*n^2 XP total. Level 0 covers the first 99 XP.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(xp) / levelCurveBase))
}

// XPForLevel is the cumulative XP needed to reach the given level.
func XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	return int64(levelCurveBase) * int64(level) * int64(level)
}

// NextLevelXP is the cumulative XP at which the next level unlocks.
func NextLevelXP(level int) int64 {
	return XPForLevel(level + 1)
}
