package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/emberworks/emberbot/emberbot/configcache"
	"github.com/emberworks/emberbot/emberbot/database/models"
)

type staticCache struct {
	settings map[string]string
}

func (c *staticCache) Snapshot() *configcache.Snapshot {
	return &configcache.Snapshot{Settings: c.settings}
}

type fakeCounterStore struct {
	counters []*models.EventCounter

	// trueCounts maps counter ID to the recomputed value; absent IDs are
	// reported as not computable.
	trueCounts map[int64]int64
	updates    map[int64]int64
}

func (s *fakeCounterStore) ListCounters(context.Context) ([]*models.EventCounter, error) {
	return s.counters, nil
}

func (s *fakeCounterStore) TrueCount(_ context.Context, c *models.EventCounter, _ string, _ time.Time) (int64, bool, error) {
	v, ok := s.trueCounts[c.ID]
	return v, ok, nil
}

func (s *fakeCounterStore) SetCounterValue(_ context.Context, id int64, value int64) error {
	if s.updates == nil {
		s.updates = map[int64]int64{}
	}
	s.updates[id] = value
	return nil
}

func TestReconcilerRepairsDrift(t *testing.T) {
	store := &fakeCounterStore{
		counters: []*models.EventCounter{
			{ID: 1, ActorID: "u1", EventType: "message", Period: models.PeriodLifetime, PeriodKey: "lifetime", Count: 10},
			{ID: 2, ActorID: "u2", EventType: "message", Period: models.PeriodLifetime, PeriodKey: "lifetime", Count: 7},
			{ID: 3, ActorID: "u3", EventType: "message", Period: models.PeriodSeasonal, PeriodKey: "season:0", Count: 4},
		},
		trueCounts: map[int64]int64{
			1: 10, // in sync
			2: 9,  // drifted
			// 3 not computable
		},
	}
	cache := &staticCache{settings: map[string]string{
		"current_season": "1",
		"season_start":   "2026-06-01",
	}}

	report, err := NewReconciler(store, cache).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Checked != 3 || report.Drifted != 1 || report.Repaired != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v, want checked 3, drifted 1, repaired 1, skipped 1", report)
	}
	if got := store.updates[2]; got != 9 {
		t.Errorf("counter 2 repaired to %d, want 9", got)
	}
	if _, touched := store.updates[1]; touched {
		t.Error("in-sync counter was rewritten")
	}
}

func TestReconcilerSkipsAgedDailyBuckets(t *testing.T) {
	oldKey := time.Now().Add(-120 * 24 * time.Hour).Format("2006-01-02")
	store := &fakeCounterStore{
		counters: []*models.EventCounter{
			{ID: 1, ActorID: "u1", EventType: "message", Period: models.PeriodDaily, PeriodKey: oldKey, Count: 5},
		},
		trueCounts: map[int64]int64{1: 0},
	}
	cache := &staticCache{settings: map[string]string{}}

	report, err := NewReconciler(store, cache).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if len(store.updates) != 0 {
		t.Errorf("aged daily counter was rewritten: %v", store.updates)
	}
}
