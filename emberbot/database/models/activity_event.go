package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// ActivityEvent is an append-only audit row for a processed community event.
// Rows are immutable once written; payload carries event metadata only and
// never raw message content.
type ActivityEvent struct {
	bun.BaseModel `bun:"table:activity_events,alias:ae"`

	ID            int64           `bun:"id,pk,autoincrement"`
	ActorID       string          `bun:"actor_id,notnull"`
	EventType     string          `bun:"event_type,notnull"`
	ChannelID     string          `bun:"channel_id,notnull"`
	ChannelGroup  string          `bun:"channel_group,notnull"`
	TargetID      string          `bun:"target_id"`
	Payload       json.RawMessage `bun:"payload,type:jsonb"`
	SourceEventID string          `bun:"source_event_id,notnull,unique"`
	Timestamp     time.Time       `bun:"timestamp,notnull"`
}
