package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User holds per-actor economy state. Level is a pure function of XP and is
// recomputed whenever XP changes; stars are granted by achievements.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64  `bun:"id,pk,autoincrement"`
	DiscordID string `bun:"discord_id,notnull,unique"`
	Username  string `bun:"username,notnull"`

	XP            int64 `bun:"xp,notnull,default:0"`
	Level         int   `bun:"level,notnull,default:0"`
	Gold          int64 `bun:"gold,notnull,default:0"`
	SeasonStars   int64 `bun:"season_stars,notnull,default:0"`
	LifetimeStars int64 `bun:"lifetime_stars,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
