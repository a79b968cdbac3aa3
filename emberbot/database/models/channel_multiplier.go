package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MultiplierScopeChannel     = "channel"
	MultiplierScopeChannelType = "channel_type"

	// WildcardEventType matches any event type within a scope.
	WildcardEventType = "*"
)

// ChannelMultiplier is one reward-multiplier rule. Scope says whether Target
// names a concrete channel or a channel type; EventType may be the wildcard.
type ChannelMultiplier struct {
	bun.BaseModel `bun:"table:channel_multipliers,alias:cm"`

	ID        int64   `bun:"id,pk,autoincrement"`
	Scope     string  `bun:"scope,notnull"`
	Target    string  `bun:"target,notnull"`
	EventType string  `bun:"event_type,notnull"`
	XPMult    float64 `bun:"xp_mult,notnull,default:1"`
	GoldMult  float64 `bun:"gold_mult,notnull,default:1"`

	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Setting is a single named tunable, read only through the configuration
// cache once the process is running.
type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
