package jobs

import (
	"context"
	"testing"
	"time"
)

type fakePruner struct {
	remaining int64
	calls     int
	cutoffs   []time.Time
}

func (p *fakePruner) DeleteOlderThan(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	p.calls++
	p.cutoffs = append(p.cutoffs, cutoff)
	n := int64(limit)
	if p.remaining < n {
		n = p.remaining
	}
	p.remaining -= n
	return n, nil
}

func TestRetentionDrainsInBatches(t *testing.T) {
	pruner := &fakePruner{remaining: 2500}
	cache := &staticCache{settings: map[string]string{
		"retention_horizon_days": "90",
		"retention_batch_size":   "1000",
	}}

	r := NewRetention(pruner, cache)
	r.BatchPause = time.Millisecond

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Deleted != 2500 {
		t.Errorf("Deleted = %d, want 2500", report.Deleted)
	}
	if report.Batches != 3 {
		t.Errorf("Batches = %d, want 3", report.Batches)
	}

	// The partial last batch ends the pass without an extra empty call.
	if pruner.calls != 3 {
		t.Errorf("DeleteOlderThan called %d times, want 3", pruner.calls)
	}

	wantCutoff := time.Now().Add(-90 * 24 * time.Hour)
	if diff := pruner.cutoffs[0].Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", pruner.cutoffs[0], wantCutoff)
	}
}

func TestRetentionNothingToDelete(t *testing.T) {
	pruner := &fakePruner{remaining: 0}
	cache := &staticCache{settings: map[string]string{}}

	r := NewRetention(pruner, cache)
	r.BatchPause = time.Millisecond

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Deleted != 0 || report.Batches != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
	if pruner.calls != 1 {
		t.Errorf("DeleteOlderThan called %d times, want 1", pruner.calls)
	}
}

func TestRetentionHonorsCancellation(t *testing.T) {
	pruner := &fakePruner{remaining: 100000}
	cache := &staticCache{settings: map[string]string{
		"retention_batch_size": "10",
	}}

	r := NewRetention(pruner, cache)
	r.BatchPause = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, err := r.Run(ctx); err == nil {
		t.Error("Run() = nil error, want context error after cancel")
	}
}
