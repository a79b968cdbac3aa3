package configcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/emberworks/emberbot/emberbot/achievements"
)

type fakeLoader struct {
	mu sync.Mutex

	multipliers map[MultiplierKey]MultiplierPair
	settings    map[string]string
	failNext    bool

	loads map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		multipliers: map[MultiplierKey]MultiplierPair{},
		settings:    map[string]string{"current_season": "1"},
		loads:       map[string]int{},
	}
}

func (l *fakeLoader) LoadMultipliers(_ context.Context) (map[MultiplierKey]MultiplierPair, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[PartitionMultipliers]++
	if l.failNext {
		l.failNext = false
		return nil, errors.New("load failed")
	}
	out := make(map[MultiplierKey]MultiplierPair, len(l.multipliers))
	for k, v := range l.multipliers {
		out[k] = v
	}
	return out, nil
}

func (l *fakeLoader) LoadAchievements(_ context.Context) (map[string]achievements.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[PartitionAchievements]++
	return map[string]achievements.Template{}, nil
}

func (l *fakeLoader) LoadSettings(_ context.Context) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[PartitionSettings]++
	out := make(map[string]string, len(l.settings))
	for k, v := range l.settings {
		out[k] = v
	}
	return out, nil
}

func (l *fakeLoader) setMultiplier(key MultiplierKey, pair MultiplierPair) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.multipliers[key] = pair
}

func (l *fakeLoader) loadCount(partition string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[partition]
}

type fakeNotifier struct {
	ch      chan string
	healthy bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan string), healthy: true}
}

func (n *fakeNotifier) Run(ctx context.Context) { <-ctx.Done() }

func (n *fakeNotifier) Notifications() <-chan string { return n.ch }

func (n *fakeNotifier) Healthy() bool { return n.healthy }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCacheStartLoadsAllPartitions(t *testing.T) {
	loader := newFakeLoader()
	notifier := newFakeNotifier()
	c := New(loader, notifier)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	snap := c.Snapshot()
	if snap.Setting("current_season", "") != "1" {
		t.Errorf("settings partition not loaded")
	}
	for _, p := range []string{PartitionMultipliers, PartitionAchievements, PartitionSettings} {
		if loader.loadCount(p) != 1 {
			t.Errorf("partition %s loaded %d times, want 1", p, loader.loadCount(p))
		}
	}
}

func TestCacheStartFailsOnInitialLoadError(t *testing.T) {
	loader := newFakeLoader()
	loader.failNext = true
	c := New(loader, newFakeNotifier())

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() = nil, want error when initial load fails")
	}
}

func TestCacheInvalidationReloadsPartition(t *testing.T) {
	loader := newFakeLoader()
	notifier := newFakeNotifier()
	c := New(loader, notifier)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	key := MultiplierKey{Scope: "channel", Target: "c1", EventType: "*"}
	loader.setMultiplier(key, MultiplierPair{XP: 2, Gold: 2})

	notifier.ch <- PartitionMultipliers

	waitFor(t, func() bool {
		_, ok := c.Snapshot().Multipliers[key]
		return ok
	})

	// Only the notified partition reloaded.
	if got := loader.loadCount(PartitionSettings); got != 1 {
		t.Errorf("settings loaded %d times, want 1", got)
	}
}

func TestCacheIgnoresUnknownPayload(t *testing.T) {
	loader := newFakeLoader()
	notifier := newFakeNotifier()
	c := New(loader, notifier)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	notifier.ch <- "users; DROP TABLE users"
	notifier.ch <- PartitionSettings

	waitFor(t, func() bool { return loader.loadCount(PartitionSettings) == 2 })

	if got := loader.loadCount(PartitionMultipliers); got != 1 {
		t.Errorf("unknown payload triggered a reload: %d loads", got)
	}
}

func TestCacheKeepsLastGoodOnReloadFailure(t *testing.T) {
	loader := newFakeLoader()
	notifier := newFakeNotifier()
	c := New(loader, notifier)

	key := MultiplierKey{Scope: "channel", Target: "c1", EventType: "*"}
	loader.setMultiplier(key, MultiplierPair{XP: 2, Gold: 2})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	loader.mu.Lock()
	loader.failNext = true
	loader.mu.Unlock()

	notifier.ch <- PartitionMultipliers
	waitFor(t, func() bool { return loader.loadCount(PartitionMultipliers) == 2 })

	if _, ok := c.Snapshot().Multipliers[key]; !ok {
		t.Error("failed reload dropped the last-known-good partition")
	}
}

func TestCacheSnapshotAfterStop(t *testing.T) {
	loader := newFakeLoader()
	c := New(loader, newFakeNotifier())

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Stop()
	c.Stop() // idempotent

	if got := c.Snapshot().Setting("current_season", ""); got != "1" {
		t.Errorf("Snapshot() after Stop lost data: %q", got)
	}
}
