package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const (
	PeriodLifetime = "lifetime"
	PeriodSeasonal = "seasonal"
	PeriodDaily    = "daily"
)

// EventCounter is a mutable aggregate over activity_events, maintained
// incrementally on insert and corrected by the reconciliation job.
type EventCounter struct {
	bun.BaseModel `bun:"table:event_counters,alias:ec"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ActorID      string    `bun:"actor_id,notnull"`
	EventType    string    `bun:"event_type,notnull"`
	ChannelGroup string    `bun:"channel_group,notnull"`
	Period       string    `bun:"period,notnull"`
	PeriodKey    string    `bun:"period_key,notnull"`
	Count        int64     `bun:"count,notnull,default:0"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// CounterPeriodKey identifies the bucket a counter row belongs to: lifetime
// counters share one bucket, daily counters bucket by UTC date, seasonal
// counters bucket by season number.
func CounterPeriodKey(period string, ts time.Time, season int64) string {
	switch period {
	case PeriodDaily:
		return ts.UTC().Format("2006-01-02")
	case PeriodSeasonal:
		return fmt.Sprintf("season:%d", season)
	default:
		return PeriodLifetime
	}
}
