package achievements

import (
	"encoding/json"
	"fmt"

	"github.com/emberworks/emberbot/emberbot/database/models"
)

type TriggerType string

const (
	TriggerStatThreshold TriggerType = "stat_threshold"
	TriggerXPMilestone   TriggerType = "xp_milestone"
	TriggerStarMilestone TriggerType = "star_milestone"
	TriggerLevelReached  TriggerType = "level_reached"
	TriggerLevelInterval TriggerType = "level_interval"
	TriggerEventCount    TriggerType = "event_count"
	TriggerFirstEvent    TriggerType = "first_event"
	TriggerManual        TriggerType = "manual"
)

// TriggerConfig is the typed form of a template's trigger_config JSONB.
// One concrete struct exists per trigger type; parsing and validation happen
// when the configuration cache loads the achievements partition, so the
// engine never sees a malformed config.
type TriggerConfig interface {
	validate() error
}

// StatThresholdConfig fires once a named counter reaches Value. Period
// defaults to lifetime; ChannelGroup may be empty only for lifetime, where
// the count spans all groups. Counters are bucketed per group, so a
// seasonal or daily threshold has to name one.
type StatThresholdConfig struct {
	EventType    string `json:"event_type"`
	ChannelGroup string `json:"channel_group,omitempty"`
	Period       string `json:"period,omitempty"`
	Value        int64  `json:"value"`
}

func (c StatThresholdConfig) validate() error {
	if c.EventType == "" {
		return fmt.Errorf("stat_threshold: event_type is required")
	}
	if c.Value <= 0 {
		return fmt.Errorf("stat_threshold: value must be positive, got %d", c.Value)
	}
	switch c.Period {
	case "", models.PeriodLifetime:
	case models.PeriodSeasonal, models.PeriodDaily:
		if c.ChannelGroup == "" {
			return fmt.Errorf("stat_threshold: channel_group is required for period %q", c.Period)
		}
	default:
		return fmt.Errorf("stat_threshold: unknown period %q", c.Period)
	}
	return nil
}

// MilestoneConfig fires once a cumulative total (XP or lifetime stars,
// depending on the trigger type) reaches Value.
type MilestoneConfig struct {
	Value int64 `json:"value"`
}

func (c MilestoneConfig) validate() error {
	if c.Value <= 0 {
		return fmt.Errorf("milestone: value must be positive, got %d", c.Value)
	}
	return nil
}

// LevelReachedConfig fires on an exact level match.
type LevelReachedConfig struct {
	Level int `json:"level"`
}

func (c LevelReachedConfig) validate() error {
	if c.Level <= 0 {
		return fmt.Errorf("level_reached: level must be positive, got %d", c.Level)
	}
	return nil
}

// LevelIntervalConfig fires when the level is a positive multiple of
// Interval. One template is expected per qualifying tier; the unique grant
// constraint makes a single template non-repeatable.
type LevelIntervalConfig struct {
	Interval int `json:"interval"`
}

func (c LevelIntervalConfig) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("level_interval: interval must be positive, got %d", c.Interval)
	}
	return nil
}

// EventCountConfig fires once the lifetime total of an event type reaches
// Value; with the first_event trigger Value is fixed at 1.
type EventCountConfig struct {
	EventType string `json:"event_type"`
	Value     int64  `json:"value"`
}

func (c EventCountConfig) validate() error {
	if c.EventType == "" {
		return fmt.Errorf("event_count: event_type is required")
	}
	if c.Value <= 0 {
		return fmt.Errorf("event_count: value must be positive, got %d", c.Value)
	}
	return nil
}

type manualConfig struct{}

func (manualConfig) validate() error { return nil }

// Template is the validated, in-memory form of an achievement definition as
// held by the configuration cache.
type Template struct {
	ID          string
	Name        string
	Description string
	Trigger     TriggerType
	Config      TriggerConfig

	RewardXP    int64
	RewardGold  int64
	RewardStars int64

	SeriesID    string
	SeriesOrder int
	MaxEarners  int
}

// ParseTemplate converts a stored template row into its typed form,
// rejecting unknown trigger types and malformed configs.
func ParseTemplate(m *models.AchievementTemplate) (Template, error) {
	t := Template{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Trigger:     TriggerType(m.TriggerType),
		RewardXP:    m.RewardXP,
		RewardGold:  m.RewardGold,
		RewardStars: m.RewardStars,
		SeriesID:    m.SeriesID,
		SeriesOrder: m.SeriesOrder,
		MaxEarners:  m.MaxEarners,
	}

	raw := m.TriggerConfig
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var cfg TriggerConfig
	switch t.Trigger {
	case TriggerStatThreshold:
		var c StatThresholdConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return Template{}, fmt.Errorf("template %s: %w", m.ID, err)
		}
		cfg = c
	case TriggerXPMilestone, TriggerStarMilestone:
		var c MilestoneConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return Template{}, fmt.Errorf("template %s: %w", m.ID, err)
		}
		cfg = c
	case TriggerLevelReached:
		var c LevelReachedConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return Template{}, fmt.Errorf("template %s: %w", m.ID, err)
		}
		cfg = c
	case TriggerLevelInterval:
		var c LevelIntervalConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return Template{}, fmt.Errorf("template %s: %w", m.ID, err)
		}
		cfg = c
	case TriggerFirstEvent:
		var c EventCountConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return Template{}, fmt.Errorf("template %s: %w", m.ID, err)
		}
		if c.Value == 0 {
			c.Value = 1
		}
		cfg = c
	case TriggerEventCount:
		var c EventCountConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return Template{}, fmt.Errorf("template %s: %w", m.ID, err)
		}
		cfg = c
	case TriggerManual:
		cfg = manualConfig{}
	default:
		return Template{}, fmt.Errorf("template %s: unknown trigger type %q", m.ID, m.TriggerType)
	}

	if err := cfg.validate(); err != nil {
		return Template{}, fmt.Errorf("template %s: %w", m.ID, err)
	}
	t.Config = cfg
	return t, nil
}

// EvalContext is the read-only state evaluators run against. Counter
// lookups go through closures so the engine stays storage-agnostic.
type EvalContext struct {
	XP            int64
	Level         int
	LifetimeStars int64

	// CounterValue resolves a specific counter; EventTotal sums an event
	// type's lifetime count across channel groups.
	CounterValue func(eventType, channelGroup, period string) (int64, error)
	EventTotal   func(eventType string) (int64, error)
}

// Evaluator decides whether a template's condition currently holds.
type Evaluator func(ctx EvalContext, t Template) (bool, error)

var evaluators = map[TriggerType]Evaluator{
	TriggerStatThreshold: evalStatThreshold,
	TriggerXPMilestone: func(ctx EvalContext, t Template) (bool, error) {
		return ctx.XP >= t.Config.(MilestoneConfig).Value, nil
	},
	TriggerStarMilestone: func(ctx EvalContext, t Template) (bool, error) {
		return ctx.LifetimeStars >= t.Config.(MilestoneConfig).Value, nil
	},
	TriggerLevelReached: func(ctx EvalContext, t Template) (bool, error) {
		return ctx.Level == t.Config.(LevelReachedConfig).Level, nil
	},
	TriggerLevelInterval: func(ctx EvalContext, t Template) (bool, error) {
		interval := t.Config.(LevelIntervalConfig).Interval
		return ctx.Level > 0 && ctx.Level%interval == 0, nil
	},
	TriggerEventCount: evalEventCount,
	TriggerFirstEvent: evalEventCount,
}

func evalStatThreshold(ctx EvalContext, t Template) (bool, error) {
	cfg := t.Config.(StatThresholdConfig)
	period := cfg.Period
	if period == "" {
		period = models.PeriodLifetime
	}

	var (
		count int64
		err   error
	)
	if cfg.ChannelGroup == "" && period == models.PeriodLifetime {
		count, err = ctx.EventTotal(cfg.EventType)
	} else {
		count, err = ctx.CounterValue(cfg.EventType, cfg.ChannelGroup, period)
	}
	if err != nil {
		return false, err
	}
	return count >= cfg.Value, nil
}

func evalEventCount(ctx EvalContext, t Template) (bool, error) {
	cfg := t.Config.(EventCountConfig)
	count, err := ctx.EventTotal(cfg.EventType)
	if err != nil {
		return false, err
	}
	return count >= cfg.Value, nil
}

// Evaluate dispatches to the registered evaluator. Manual templates are
// never auto-evaluated and always report false.
func Evaluate(ctx EvalContext, t Template) (bool, error) {
	if t.Trigger == TriggerManual {
		return false, nil
	}
	eval, ok := evaluators[t.Trigger]
	if !ok {
		return false, fmt.Errorf("no evaluator for trigger type %q", t.Trigger)
	}
	return eval(ctx, t)
}
