package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// AchievementTemplate is the stored form of an achievement definition.
// TriggerConfig is schemaless JSONB here; it is parsed into a typed config
// and validated when the configuration cache loads the partition.
type AchievementTemplate struct {
	bun.BaseModel `bun:"table:achievement_templates,alias:at"`

	ID            string          `bun:"id,pk"`
	Name          string          `bun:"name,notnull"`
	Description   string          `bun:"description"`
	TriggerType   string          `bun:"trigger_type,notnull"`
	TriggerConfig json.RawMessage `bun:"trigger_config,type:jsonb"`

	RewardXP    int64 `bun:"reward_xp,notnull,default:0"`
	RewardGold  int64 `bun:"reward_gold,notnull,default:0"`
	RewardStars int64 `bun:"reward_stars,notnull,default:0"`

	SeriesID    string `bun:"series_id"`
	SeriesOrder int    `bun:"series_order,notnull,default:0"`
	MaxEarners  int    `bun:"max_earners,notnull,default:0"`
	Active      bool   `bun:"active,notnull,default:true"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// UserAchievement records a single earned achievement. The unique
// (user_id, achievement_id) constraint is what makes awards race-safe.
type UserAchievement struct {
	bun.BaseModel `bun:"table:user_achievements,alias:ua"`

	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        string    `bun:"user_id,notnull"`
	AchievementID string    `bun:"achievement_id,notnull"`
	EarnedAt      time.Time `bun:"earned_at,notnull"`
}
