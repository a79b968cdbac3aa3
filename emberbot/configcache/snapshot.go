package configcache

import (
	"strconv"
	"time"

	"github.com/emberworks/emberbot/emberbot/achievements"
	"github.com/emberworks/emberbot/emberbot/database/models"
)

// MultiplierPair is the per-currency reward multiplier resolved for an
// event.
type MultiplierPair struct {
	XP   float64
	Gold float64
}

var defaultMultiplier = MultiplierPair{XP: 1, Gold: 1}

// MultiplierKey identifies one multiplier rule: the scope says whether
// Target is a channel ID or a channel type; EventType may be the wildcard.
type MultiplierKey struct {
	Scope     string
	Target    string
	EventType string
}

// Snapshot is an immutable point-in-time view of the mutable configuration.
// It is never modified after construction; the cache replaces whole
// partitions on invalidation.
type Snapshot struct {
	Multipliers  map[MultiplierKey]MultiplierPair
	Achievements map[string]achievements.Template
	Settings     map[string]string
}

// ResolveMultiplier walks the resolution order, most specific rule first:
// channel+type, channel+wildcard, channel-type+type, channel-type+wildcard,
// then the system default (1.0, 1.0).
func (s *Snapshot) ResolveMultiplier(channelID, channelType, eventType string) MultiplierPair {
	lookups := []MultiplierKey{
		{Scope: models.MultiplierScopeChannel, Target: channelID, EventType: eventType},
		{Scope: models.MultiplierScopeChannel, Target: channelID, EventType: models.WildcardEventType},
		{Scope: models.MultiplierScopeChannelType, Target: channelType, EventType: eventType},
		{Scope: models.MultiplierScopeChannelType, Target: channelType, EventType: models.WildcardEventType},
	}
	for _, key := range lookups {
		if key.Target == "" {
			continue
		}
		if pair, ok := s.Multipliers[key]; ok {
			return pair
		}
	}
	return defaultMultiplier
}

// Setting returns a named tunable, falling back to def when unset.
func (s *Snapshot) Setting(key, def string) string {
	if v, ok := s.Settings[key]; ok {
		return v
	}
	return def
}

func (s *Snapshot) SettingInt64(key string, def int64) int64 {
	if v, ok := s.Settings[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func (s *Snapshot) SettingFloat(key string, def float64) float64 {
	if v, ok := s.Settings[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// SettingDuration reads a tunable stored as integer seconds.
func (s *Snapshot) SettingDuration(key string, def time.Duration) time.Duration {
	if v, ok := s.Settings[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
