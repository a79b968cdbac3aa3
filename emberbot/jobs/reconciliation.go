package jobs

import (
	"context"
	"time"

	"log/slog"

	"github.com/emberworks/emberbot/emberbot/configcache"
	"github.com/emberworks/emberbot/emberbot/database/models"
)

// CounterStore is the slice of the event repository the reconciler needs.
type CounterStore interface {
	ListCounters(ctx context.Context) ([]*models.EventCounter, error)
	TrueCount(ctx context.Context, c *models.EventCounter, currentSeasonKey string, seasonStart time.Time) (int64, bool, error)
	SetCounterValue(ctx context.Context, id int64, value int64) error
}

// SnapshotSource provides the current configuration snapshot.
type SnapshotSource interface {
	Snapshot() *configcache.Snapshot
}

type ReconcileReport struct {
	Checked  int
	Skipped  int
	Drifted  int
	Repaired int
	Failed   int
}

// Reconciler recomputes aggregate counters from the event lake and repairs
// any that drifted. Counters whose lake rows have aged out of retention are
// skipped rather than zeroed.
type Reconciler struct {
	store CounterStore
	cache SnapshotSource
}

func NewReconciler(store CounterStore, cache SnapshotSource) *Reconciler {
	return &Reconciler{store: store, cache: cache}
}

func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	start := time.Now()

	snap := r.cache.Snapshot()
	season := snap.SettingInt64("current_season", 1)
	currentSeasonKey := models.CounterPeriodKey(models.PeriodSeasonal, time.Now(), season)

	var seasonStart time.Time
	if raw := snap.Setting("season_start", ""); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", raw)
		}
		if err != nil {
			slog.Warn("Invalid season_start setting, seasonal counters will be skipped",
				slog.String("type", "sys"),
				slog.String("value", raw))
		} else {
			seasonStart = parsed
		}
	}

	counters, err := r.store.ListCounters(ctx)
	if err != nil {
		return report, err
	}

	horizon := snap.SettingInt64("retention_horizon_days", 90)
	retentionCutoff := time.Now().Add(-time.Duration(horizon) * 24 * time.Hour)

	for _, c := range counters {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		// Daily buckets older than the retention horizon cannot be
		// recomputed; their lake rows are gone.
		if c.Period == models.PeriodDaily {
			if day, perr := time.Parse("2006-01-02", c.PeriodKey); perr == nil && day.Before(retentionCutoff) {
				report.Skipped++
				continue
			}
		}

		trueCount, computable, err := r.store.TrueCount(ctx, c, currentSeasonKey, seasonStart)
		if err != nil {
			report.Failed++
			slog.Error("Failed to recompute counter",
				slog.String("type", "db"),
				slog.Int64("counter_id", c.ID),
				slog.Any("error", err))
			continue
		}
		if !computable {
			report.Skipped++
			continue
		}
		if trueCount == c.Count {
			continue
		}

		report.Drifted++
		slog.Warn("Counter drift detected",
			slog.String("type", "db"),
			slog.Int64("counter_id", c.ID),
			slog.String("actor_id", c.ActorID),
			slog.String("event_type", c.EventType),
			slog.String("period", c.Period),
			slog.String("period_key", c.PeriodKey),
			slog.Int64("stored", c.Count),
			slog.Int64("recomputed", trueCount))

		if err := r.store.SetCounterValue(ctx, c.ID, trueCount); err != nil {
			report.Failed++
			slog.Error("Failed to repair counter",
				slog.String("type", "db"),
				slog.Int64("counter_id", c.ID),
				slog.Any("error", err))
			continue
		}
		report.Repaired++
	}

	slog.Info("Counter reconciliation complete",
		slog.String("type", "sys"),
		slog.Int("checked", report.Checked),
		slog.Int("skipped", report.Skipped),
		slog.Int("drifted", report.Drifted),
		slog.Int("repaired", report.Repaired),
		slog.Int("failed", report.Failed),
		slog.Duration("took", time.Since(start)))
	return report, nil
}
