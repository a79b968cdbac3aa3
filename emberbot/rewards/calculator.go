package rewards

import (
	"github.com/emberworks/emberbot/emberbot/configcache"
)

// RewardConfig carries the base reward tables and quality tuning used by the
// pure calculator. ConfigFromSnapshot derives one per event from the live
// settings partition.
type RewardConfig struct {
	Quality  QualityConfig
	Tracker  TrackerConfig
	BaseXP   map[EventType]float64
	BaseGold map[EventType]float64
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		Quality: DefaultQualityConfig(),
		Tracker: DefaultTrackerConfig(),
		BaseXP: map[EventType]float64{
			EventMessage:          15,
			EventReactionGiven:    6,
			EventReactionReceived: 10,
			EventThreadCreate:     20,
			EventVoiceTick:        3,
			EventMemberJoin:       0,
		},
		BaseGold: map[EventType]float64{
			EventMessage:          5,
			EventReactionGiven:    2,
			EventReactionReceived: 4,
			EventThreadCreate:     8,
			EventVoiceTick:        1,
			EventMemberJoin:       0,
		},
	}
}

// ConfigFromSnapshot overlays snapshot settings onto the defaults so tuning
// through the settings partition takes effect without a restart.
func ConfigFromSnapshot(snap *configcache.Snapshot) RewardConfig {
	cfg := DefaultRewardConfig()

	cfg.Quality.LongLength = int(snap.SettingInt64("quality_long_length", int64(cfg.Quality.LongLength)))
	cfg.Quality.LongFactor = snap.SettingFloat("quality_long_factor", cfg.Quality.LongFactor)
	cfg.Quality.MediumLength = int(snap.SettingInt64("quality_medium_length", int64(cfg.Quality.MediumLength)))
	cfg.Quality.MediumFactor = snap.SettingFloat("quality_medium_factor", cfg.Quality.MediumFactor)
	cfg.Quality.CodeFactor = snap.SettingFloat("quality_code_factor", cfg.Quality.CodeFactor)
	cfg.Quality.LinkFactor = snap.SettingFloat("quality_link_factor", cfg.Quality.LinkFactor)
	cfg.Quality.AttachmentFactor = snap.SettingFloat("quality_attachment_factor", cfg.Quality.AttachmentFactor)
	cfg.Quality.EmojiSpamCount = int(snap.SettingInt64("quality_emoji_spam_count", int64(cfg.Quality.EmojiSpamCount)))
	cfg.Quality.EmojiSpamFactor = snap.SettingFloat("quality_emoji_spam_factor", cfg.Quality.EmojiSpamFactor)

	cfg.Tracker.PairDailyCap = int(snap.SettingInt64("antigaming_pair_cap", int64(cfg.Tracker.PairDailyCap)))
	cfg.Tracker.VelocityReactors = int(snap.SettingInt64("antigaming_velocity_reactors", int64(cfg.Tracker.VelocityReactors)))
	cfg.Tracker.VelocityCeiling = snap.SettingFloat("antigaming_velocity_ceiling", cfg.Tracker.VelocityCeiling)
	cfg.Tracker.MessageCooldown = snap.SettingDuration("antigaming_message_cooldown_secs", cfg.Tracker.MessageCooldown)

	for et := range cfg.BaseXP {
		cfg.BaseXP[et] = snap.SettingFloat("base_xp_"+string(et), cfg.BaseXP[et])
	}
	for et := range cfg.BaseGold {
		cfg.BaseGold[et] = snap.SettingFloat("base_gold_"+string(et), cfg.BaseGold[et])
	}
	return cfg
}

// Breakdown is the computed reward for one event, with the factors that
// produced it kept for logging.
type Breakdown struct {
	XP   int64
	Gold int64

	Quality    float64
	AntiGaming Assessment
	Multiplier configcache.MultiplierPair
}

// Calculate composes base amount, quality, anti-gaming and channel
// multipliers into the two currency deltas. It is deterministic and does no
// I/O. Fractional results truncate toward zero; the documented end-to-end
// consequence is that 15 XP at quality 1.5 yields 22.
func Calculate(cfg RewardConfig, ev Event, gate Assessment, snap *configcache.Snapshot) Breakdown {
	b := Breakdown{Quality: 1, AntiGaming: gate, Multiplier: configcache.MultiplierPair{XP: 1, Gold: 1}}

	if ev.Type == EventManualAward {
		// Manual awards are operator-decided amounts; modifiers do not apply.
		b.XP = ev.Metadata.Amount
		return b
	}

	baseXP := cfg.BaseXP[ev.Type]
	baseGold := cfg.BaseGold[ev.Type]

	if ev.Type == EventMessage {
		b.Quality = QualityFactor(cfg.Quality, ev.Metadata)
	}
	b.Multiplier = snap.ResolveMultiplier(ev.ChannelID, ev.ChannelType, string(ev.Type))

	xp := baseXP * b.Quality * gate.Factor * b.Multiplier.XP
	gold := baseGold * b.Quality * gate.Factor * b.Multiplier.Gold

	if gate.Ceiling > 0 {
		if xp > gate.Ceiling {
			xp = gate.Ceiling
		}
		if gold > gate.Ceiling {
			gold = gate.Ceiling
		}
	}

	b.XP = int64(xp)
	b.Gold = int64(gold)
	return b
}
