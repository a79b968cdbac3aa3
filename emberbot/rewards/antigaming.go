package rewards

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	maxTrackedPairs     = 65536
	maxTrackedCooldowns = 16384

	ReasonSelfInteraction = "self_interaction"
	ReasonPairCap         = "pair_cap"
	ReasonCooldown        = "cooldown"
)

// TrackerConfig holds the anti-gaming thresholds. The tracker itself carries
// no configuration; callers pass the current values on every assessment so
// runtime tuning through the configuration cache takes effect immediately.
type TrackerConfig struct {
	Window           time.Duration
	PairDailyCap     int
	VelocityReactors int
	VelocityMaxAge   time.Duration
	VelocityCeiling  float64
	MessageCooldown  time.Duration
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Window:           24 * time.Hour,
		PairDailyCap:     3,
		VelocityReactors: 10,
		VelocityMaxAge:   5 * time.Minute,
		VelocityCeiling:  5,
		MessageCooldown:  30 * time.Second,
	}
}

// Assessment is the anti-gaming verdict for one event. Factor scales the
// reward (0 suppresses it entirely, Reason says why); Ceiling, when positive,
// clamps the final reward after all other modifiers.
type Assessment struct {
	Factor  float64
	Ceiling float64
	Reason  string
}

type pairWindow struct {
	times []time.Time
}

func (w *pairWindow) prune(cutoff time.Time) {
	kept := w.times[:0]
	for _, ts := range w.times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.times = kept
}

// Tracker maintains the process-local sliding-window state: per-pair
// interaction timestamps and per-actor-per-channel message cooldowns. Both
// maps are LRU-bounded and additionally swept by a background ticker so
// aged-out keys do not accumulate.
type Tracker struct {
	mu        sync.Mutex
	pairs     *lru.Cache
	cooldowns *lru.Cache
}

func NewTracker() *Tracker {
	pairs, _ := lru.New(maxTrackedPairs)
	cooldowns, _ := lru.New(maxTrackedCooldowns)
	return &Tracker{pairs: pairs, cooldowns: cooldowns}
}

// Assess applies the anti-gaming rules to one event and records the
// interaction in the window state. The verdict is pure given the current
// window contents; recording is the only mutation.
func (t *Tracker) Assess(cfg TrackerConfig, ev Event) Assessment {
	now := ev.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	switch ev.Type {
	case EventMessage:
		return t.assessMessage(cfg, ev, now)
	case EventReactionGiven, EventReactionReceived:
		return t.assessReaction(cfg, ev, now)
	default:
		return Assessment{Factor: 1}
	}
}

func (t *Tracker) assessMessage(cfg TrackerConfig, ev Event, now time.Time) Assessment {
	key := ev.ActorID + "|" + ev.ChannelID

	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.cooldowns.Get(key); ok {
		if last := v.(time.Time); now.Sub(last) < cfg.MessageCooldown {
			return Assessment{Reason: ReasonCooldown}
		}
	}
	t.cooldowns.Add(key, now)
	return Assessment{Factor: 1}
}

func (t *Tracker) assessReaction(cfg TrackerConfig, ev Event, now time.Time) Assessment {
	if ev.ActorID == ev.TargetID {
		return Assessment{Reason: ReasonSelfInteraction}
	}

	// The pair is always keyed reactor -> author. For the received side the
	// actor is the author, so the key is reversed, and the giving side has
	// already recorded this interaction.
	reactor, target := ev.ActorID, ev.TargetID
	received := ev.Type == EventReactionReceived
	if received {
		reactor, target = ev.TargetID, ev.ActorID
	}
	key := reactor + "|" + target

	t.mu.Lock()
	defer t.mu.Unlock()

	win := &pairWindow{}
	if v, ok := t.pairs.Get(key); ok {
		win = v.(*pairWindow)
	}
	win.prune(now.Add(-cfg.Window))

	prior := len(win.times)
	if received && prior > 0 {
		prior--
	}

	// The giving side records every attempt, capped or not, so the received
	// side and later attempts read the same window contents.
	if !received {
		win.times = append(win.times, now)
		t.pairs.Add(key, win)
	}

	if prior >= cfg.PairDailyCap {
		return Assessment{Reason: ReasonPairCap}
	}

	a := Assessment{Factor: 1 / float64(1+prior)}
	if received &&
		ev.Metadata.ReactorCount > cfg.VelocityReactors &&
		ev.Metadata.TargetAge > 0 && ev.Metadata.TargetAge < cfg.VelocityMaxAge {
		a.Ceiling = cfg.VelocityCeiling
	}
	return a
}

// Sweep drops pair windows with no interaction inside the window and
// cooldown entries older than the cooldown itself. Returns how many keys
// were evicted.
func (t *Tracker) Sweep(now time.Time, cfg TrackerConfig) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for _, key := range t.pairs.Keys() {
		v, ok := t.pairs.Peek(key)
		if !ok {
			continue
		}
		win := v.(*pairWindow)
		win.prune(now.Add(-cfg.Window))
		if len(win.times) == 0 {
			t.pairs.Remove(key)
			evicted++
		}
	}

	for _, key := range t.cooldowns.Keys() {
		v, ok := t.cooldowns.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(v.(time.Time)) > cfg.MessageCooldown {
			t.cooldowns.Remove(key)
			evicted++
		}
	}
	return evicted
}

// TrackedPairs reports the current window-state size, for monitoring.
func (t *Tracker) TrackedPairs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pairs.Len()
}
