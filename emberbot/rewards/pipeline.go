package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/emberworks/emberbot/emberbot/achievements"
	"github.com/emberworks/emberbot/emberbot/configcache"
	"github.com/emberworks/emberbot/emberbot/database/models"
	"golang.org/x/sync/semaphore"
)

// EventStore is the event-lake surface the pipeline needs. Implemented by
// repositories.EventRepository.
type EventStore interface {
	// Record appends the event and bumps its counters in one unit of work.
	// A duplicate source_event_id reports (false, nil).
	Record(ctx context.Context, row *models.ActivityEvent, season int64) (bool, error)
	CounterValue(ctx context.Context, actorID, eventType, channelGroup, period, periodKey string) (int64, error)
	EventTotal(ctx context.Context, actorID, eventType string) (int64, error)
}

// UserStore applies reward output to per-actor economy state. Implemented
// by repositories.UserRepository.
type UserStore interface {
	ApplyReward(ctx context.Context, discordID, username string, xpDelta, goldDelta int64) (*models.User, error)
	ApplyStars(ctx context.Context, discordID string, stars int64) error
}

// Result is the pipeline output contract. The caller decides whether and
// how to announce any of it.
type Result struct {
	PrimaryDelta   int64
	SecondaryDelta int64
	NewLevel       int
	NewlyEarned    []string
}

// Pipeline is the entry point for one community event: score, persist
// idempotently, update counters and economy state, evaluate achievements.
// Reward computation is pure and runs inline; all storage work happens
// behind a bounded semaphore with a per-call deadline so a stalled call
// cannot pile up unbounded in-flight I/O.
type Pipeline struct {
	cache   *configcache.Cache
	tracker *Tracker
	engine  *achievements.Engine
	events  EventStore
	users   UserStore

	sem            *semaphore.Weighted
	storageTimeout time.Duration
}

func NewPipeline(cache *configcache.Cache, tracker *Tracker, engine *achievements.Engine, events EventStore, users UserStore, workers int64, storageTimeout time.Duration) *Pipeline {
	if workers <= 0 {
		workers = 8
	}
	if storageTimeout <= 0 {
		storageTimeout = 10 * time.Second
	}
	return &Pipeline{
		cache:          cache,
		tracker:        tracker,
		engine:         engine,
		events:         events,
		users:          users,
		sem:            semaphore.NewWeighted(workers),
		storageTimeout: storageTimeout,
	}
}

func (p *Pipeline) Process(ctx context.Context, ev Event) (*Result, error) {
	if ev.SourceEventID == "" {
		return nil, fmt.Errorf("event %s from %s has no source_event_id", ev.Type, ev.ActorID)
	}
	now := ev.Timestamp
	if now.IsZero() {
		now = time.Now()
		ev.Timestamp = now
	}

	snap := p.cache.Snapshot()
	cfg := ConfigFromSnapshot(snap)
	season := snap.SettingInt64("current_season", 1)

	gate := p.tracker.Assess(cfg.Tracker, ev)
	breakdown := Calculate(cfg, ev, gate, snap)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	sctx, cancel := context.WithTimeout(ctx, p.storageTimeout)
	defer cancel()

	payload, err := json.Marshal(ev.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event metadata: %w", err)
	}
	inserted, err := p.events.Record(sctx, &models.ActivityEvent{
		ActorID:       ev.ActorID,
		EventType:     string(ev.Type),
		ChannelID:     ev.ChannelID,
		ChannelGroup:  ev.ChannelGroup(),
		TargetID:      ev.TargetID,
		Payload:       payload,
		SourceEventID: ev.SourceEventID,
		Timestamp:     now,
	}, season)
	if err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}
	if !inserted {
		// Replay of an already-processed event: idempotency contract says
		// this is not an error and has no further effect.
		slog.Debug("Duplicate event ignored",
			slog.String("type", "sys"),
			slog.String("source_event_id", ev.SourceEventID))
		return &Result{}, nil
	}

	user, err := p.users.ApplyReward(sctx, ev.ActorID, ev.ActorName, breakdown.XP, breakdown.Gold)
	if err != nil {
		return nil, fmt.Errorf("failed to apply reward: %w", err)
	}
	levelBefore := LevelForXP(user.XP - breakdown.XP)

	result := &Result{
		PrimaryDelta:   breakdown.XP,
		SecondaryDelta: breakdown.Gold,
	}
	if gate.Reason != "" {
		slog.Debug("Reward suppressed",
			slog.String("type", "sys"),
			slog.String("reason", gate.Reason),
			slog.String("actor_id", ev.ActorID),
			slog.String("event_type", string(ev.Type)))
	}

	ectx := achievements.EvalContext{
		XP:            user.XP,
		Level:         user.Level,
		LifetimeStars: user.LifetimeStars,
		CounterValue: func(eventType, channelGroup, period string) (int64, error) {
			key := models.CounterPeriodKey(period, now, season)
			return p.events.CounterValue(sctx, ev.ActorID, eventType, channelGroup, period, key)
		},
		EventTotal: func(eventType string) (int64, error) {
			return p.events.EventTotal(sctx, ev.ActorID, eventType)
		},
	}

	awarded, err := p.engine.EvaluateUser(sctx, ev.ActorID, snap.Achievements, ectx)
	if err != nil {
		// Achievement evaluation failing must not lose the reward itself;
		// the next event re-evaluates from the same stats.
		slog.Warn("Achievement evaluation aborted",
			slog.String("type", "sys"),
			slog.String("actor_id", ev.ActorID),
			slog.Any("error", err))
	}

	for _, t := range awarded {
		result.NewlyEarned = append(result.NewlyEarned, t.ID)
		if t.RewardXP != 0 || t.RewardGold != 0 {
			user, err = p.users.ApplyReward(sctx, ev.ActorID, ev.ActorName, t.RewardXP, t.RewardGold)
			if err != nil {
				return nil, fmt.Errorf("failed to apply achievement reward %s: %w", t.ID, err)
			}
			result.PrimaryDelta += t.RewardXP
			result.SecondaryDelta += t.RewardGold
		}
		if t.RewardStars > 0 {
			if err := p.users.ApplyStars(sctx, ev.ActorID, t.RewardStars); err != nil {
				return nil, fmt.Errorf("failed to apply achievement stars %s: %w", t.ID, err)
			}
		}
	}

	if user.Level > levelBefore {
		result.NewLevel = user.Level
	}
	return result, nil
}
