package jobs

import (
	"context"
	"time"

	"log/slog"
)

const defaultBatchPause = 500 * time.Millisecond

// LakePruner is the slice of the event repository retention needs.
type LakePruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type RetentionReport struct {
	Deleted int64
	Batches int
}

// Retention deletes lake rows older than the configured horizon in small
// batches, pausing between them so the table never sits under a long lock.
// Aggregate counters are untouched: lifetime and seasonal totals survive the
// raw rows they were built from.
type Retention struct {
	store LakePruner
	cache SnapshotSource

	// BatchPause is overridable for tests.
	BatchPause time.Duration
}

func NewRetention(store LakePruner, cache SnapshotSource) *Retention {
	return &Retention{store: store, cache: cache, BatchPause: defaultBatchPause}
}

func (r *Retention) Run(ctx context.Context) (RetentionReport, error) {
	var report RetentionReport
	start := time.Now()

	snap := r.cache.Snapshot()
	horizonDays := snap.SettingInt64("retention_horizon_days", 90)
	batchSize := int(snap.SettingInt64("retention_batch_size", 5000))
	if batchSize <= 0 {
		batchSize = 5000
	}
	cutoff := time.Now().Add(-time.Duration(horizonDays) * 24 * time.Hour)

	for {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		deleted, err := r.store.DeleteOlderThan(ctx, cutoff, batchSize)
		if err != nil {
			return report, err
		}
		if deleted == 0 {
			break
		}
		report.Deleted += deleted
		report.Batches++

		if deleted < int64(batchSize) {
			break
		}

		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-time.After(r.BatchPause):
		}
	}

	if report.Deleted > 0 {
		slog.Info("Retention pass complete",
			slog.String("type", "db"),
			slog.Int64("deleted", report.Deleted),
			slog.Int("batches", report.Batches),
			slog.Time("cutoff", cutoff),
			slog.Duration("took", time.Since(start)))
	}
	return report, nil
}
