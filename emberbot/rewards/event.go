package rewards

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventMessage          EventType = "message"
	EventReactionGiven    EventType = "reaction_given"
	EventReactionReceived EventType = "reaction_received"
	EventThreadCreate     EventType = "thread_create"
	EventVoiceTick        EventType = "voice_tick"
	EventMemberJoin       EventType = "member_join"
	EventManualAward      EventType = "manual_award"
)

// EventMetadata are the content attributes the pipeline scores on. Raw
// message content never enters the pipeline; the gateway adapter reduces it
// to these fields.
type EventMetadata struct {
	ContentLength int  `json:"content_length,omitempty"`
	HasCodeBlock  bool `json:"has_code,omitempty"`
	HasLink       bool `json:"has_link,omitempty"`
	HasAttachment bool `json:"has_attachment,omitempty"`
	EmojiCount    int  `json:"emoji_count,omitempty"`

	// Reaction burst attributes, used by the velocity clamp.
	ReactorCount int           `json:"reactor_count,omitempty"`
	TargetAge    time.Duration `json:"target_age,omitempty"`

	// Amount overrides the base reward for manual awards.
	Amount int64 `json:"amount,omitempty"`
}

// Event is the ephemeral input handed to the pipeline by the gateway
// adapter. SourceEventID must be stable and reproducible per logical
// occurrence; it is the idempotency key for the event lake.
type Event struct {
	Type          EventType
	ActorID       string
	ActorName     string
	TargetID      string
	ChannelID     string
	ChannelType   string
	Timestamp     time.Time
	SourceEventID string
	Metadata      EventMetadata
}

// SourceEventID builds the recommended deterministic idempotency key.
func SourceEventID(et EventType, primary string, secondary ...string) string {
	id := fmt.Sprintf("%s_%s", et, primary)
	for _, s := range secondary {
		id += "_" + s
	}
	return id
}

// ChannelGroup is the aggregation key counters use: the channel type when
// the adapter knows it, otherwise the concrete channel.
func (e Event) ChannelGroup() string {
	if e.ChannelType != "" {
		return e.ChannelType
	}
	return e.ChannelID
}
