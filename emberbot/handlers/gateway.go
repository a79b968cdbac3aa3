package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/emberworks/emberbot/emberbot/logger"
	"github.com/emberworks/emberbot/emberbot/rewards"
)

const processTimeout = 15 * time.Second

// GatewayHandler translates Discord gateway events into reward pipeline
// events. It is the only place that sees raw message content.
type GatewayHandler struct {
	pipeline *rewards.Pipeline
	voice    *VoiceTracker
}

func NewGatewayHandler(pipeline *rewards.Pipeline) *GatewayHandler {
	return &GatewayHandler{
		pipeline: pipeline,
		voice:    NewVoiceTracker(),
	}
}

func (h *GatewayHandler) Voice() *VoiceTracker {
	return h.voice
}

// Listeners returns every gateway listener the handler registers.
func (h *GatewayHandler) Listeners() []bot.EventListener {
	return []bot.EventListener{
		bot.NewListenerFunc(h.OnMessageCreate),
		bot.NewListenerFunc(h.OnReactionAdd),
		bot.NewListenerFunc(h.OnThreadCreate),
		bot.NewListenerFunc(h.OnVoiceStateUpdate),
		bot.NewListenerFunc(h.OnMemberJoin),
	}
}

func (h *GatewayHandler) OnMessageCreate(e *events.MessageCreate) {
	msg := e.Message
	if msg.Author.Bot || msg.Author.System || msg.WebhookID != nil {
		return
	}
	if e.GuildID == nil {
		return
	}

	h.submit(rewards.Event{
		Type:          rewards.EventMessage,
		ActorID:       msg.Author.ID.String(),
		ActorName:     msg.Author.Username,
		ChannelID:     msg.ChannelID.String(),
		ChannelType:   h.channelType(e.Client(), msg.ChannelID),
		Timestamp:     time.Now(),
		SourceEventID: rewards.SourceEventID(rewards.EventMessage, msg.ID.String()),
		Metadata:      extractMessageMetadata(msg.Content, len(msg.Attachments)),
	})
}

func (h *GatewayHandler) OnReactionAdd(e *events.GuildMessageReactionAdd) {
	if e.Member.User.Bot {
		return
	}

	var authorID string
	if e.MessageAuthorID != nil {
		authorID = e.MessageAuthorID.String()
	}

	emoji := "emoji"
	if e.Emoji.Name != nil {
		emoji = *e.Emoji.Name
	}

	for _, ev := range reactionRewardEvents(
		e.UserID.String(), authorID,
		e.ChannelID.String(), e.MessageID.String(), emoji,
		h.channelType(e.Client(), e.ChannelID),
		time.Since(e.MessageID.Time()),
		h.reactorCount(e.Client(), e.ChannelID, e.MessageID),
	) {
		h.submit(ev)
	}
}

// reactionRewardEvents builds the giver-side and author-side events for one
// reaction. A self-reaction yields nothing; an unknown author (the gateway
// payload omits it for old messages) yields only the giver side, with an
// empty target. The giver event carries the author as its target so both
// sides read the same anti-gaming pair window.
func reactionRewardEvents(reactorID, authorID, channelID, messageID, emoji, channelType string, targetAge time.Duration, reactorCount int) []rewards.Event {
	if authorID != "" && authorID == reactorID {
		return nil
	}

	evs := []rewards.Event{{
		Type:        rewards.EventReactionGiven,
		ActorID:     reactorID,
		TargetID:    authorID,
		ChannelID:   channelID,
		ChannelType: channelType,
		Timestamp:   time.Now(),
		SourceEventID: rewards.SourceEventID(rewards.EventReactionGiven,
			messageID, reactorID, emoji),
		Metadata: rewards.EventMetadata{TargetAge: targetAge},
	}}
	if authorID == "" {
		return evs
	}

	return append(evs, rewards.Event{
		Type:        rewards.EventReactionReceived,
		ActorID:     authorID,
		TargetID:    reactorID,
		ChannelID:   channelID,
		ChannelType: channelType,
		Timestamp:   time.Now(),
		SourceEventID: rewards.SourceEventID(rewards.EventReactionReceived,
			messageID, reactorID, emoji),
		Metadata: rewards.EventMetadata{
			TargetAge:    targetAge,
			ReactorCount: reactorCount,
		},
	})
}

func (h *GatewayHandler) OnThreadCreate(e *events.ThreadCreate) {
	creatorID := e.ThreadMember.UserID
	if creatorID == 0 {
		return
	}

	h.submit(rewards.Event{
		Type:          rewards.EventThreadCreate,
		ActorID:       creatorID.String(),
		ChannelID:     e.ThreadID.String(),
		ChannelType:   "thread",
		Timestamp:     time.Now(),
		SourceEventID: rewards.SourceEventID(rewards.EventThreadCreate, e.ThreadID.String()),
	})
}

func (h *GatewayHandler) OnVoiceStateUpdate(e *events.GuildVoiceStateUpdate) {
	if e.Member.User.Bot {
		return
	}
	state := e.VoiceState
	if state.ChannelID == nil || state.SelfDeaf || state.GuildDeaf {
		h.voice.Leave(state.UserID.String())
		return
	}
	h.voice.Join(state.UserID.String(), e.Member.User.Username, state.ChannelID.String())
}

func (h *GatewayHandler) OnMemberJoin(e *events.GuildMemberJoin) {
	if e.Member.User.Bot {
		return
	}
	userID := e.Member.User.ID.String()

	h.submit(rewards.Event{
		Type:      rewards.EventMemberJoin,
		ActorID:   userID,
		ActorName: e.Member.User.Username,
		Timestamp: time.Now(),
		SourceEventID: rewards.SourceEventID(rewards.EventMemberJoin,
			e.GuildID.String(), userID),
	})
}

// RunVoiceTicker emits one voice_tick per tracked user per minute. The
// idempotency key carries the minute bucket, so a restart inside the same
// minute cannot double-pay.
func (h *GatewayHandler) RunVoiceTicker(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			minute := now.Unix() / 60
			for _, p := range h.voice.Present() {
				h.submit(rewards.Event{
					Type:        rewards.EventVoiceTick,
					ActorID:     p.UserID,
					ActorName:   p.Username,
					ChannelID:   p.ChannelID,
					ChannelType: "voice",
					Timestamp:   now,
					SourceEventID: rewards.SourceEventID(rewards.EventVoiceTick,
						p.UserID, fmt.Sprintf("%d", minute)),
				})
			}
		}
	}
}

func (h *GatewayHandler) submit(ev rewards.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()

		start := time.Now()
		_, err := h.pipeline.Process(ctx, ev)
		logger.LogEvent(string(ev.Type), ev.ActorID, time.Since(start), err)
	}()
}

func (h *GatewayHandler) channelType(client bot.Client, channelID snowflake.ID) string {
	if ch, ok := client.Caches().Channel(channelID); ok {
		return channelTypeLabel(ch.Type())
	}
	return ""
}

func (h *GatewayHandler) reactorCount(client bot.Client, channelID, messageID snowflake.ID) int {
	msg, ok := client.Caches().Message(channelID, messageID)
	if !ok {
		return 0
	}
	total := 0
	for _, r := range msg.Reactions {
		total += r.Count
	}
	return total
}
