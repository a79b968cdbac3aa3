package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/emberworks/emberbot/emberbot/database/models"
	"github.com/uptrace/bun"
)

// EventRepository owns the event lake and its aggregate counters.
type EventRepository struct {
	*BaseRepository
}

func NewEventRepository(db *bun.DB) *EventRepository {
	return &EventRepository{BaseRepository: NewBaseRepository(db)}
}

var counterPeriods = []string{models.PeriodLifetime, models.PeriodSeasonal, models.PeriodDaily}

// Record appends one lake row and, when the row is new, increments the
// lifetime/seasonal/daily counters in the same transaction. Replaying the
// same source_event_id reports (false, nil): exactly one row and one counter
// increment exist per logical event no matter how often it is submitted.
func (r *EventRepository) Record(ctx context.Context, row *models.ActivityEvent, season int64) (bool, error) {
	inserted := false
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (source_event_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Already processed; leave the counters alone.
			return nil
		}
		inserted = true

		now := time.Now()
		for _, period := range counterPeriods {
			counter := &models.EventCounter{
				ActorID:      row.ActorID,
				EventType:    row.EventType,
				ChannelGroup: row.ChannelGroup,
				Period:       period,
				PeriodKey:    models.CounterPeriodKey(period, row.Timestamp, season),
				Count:        1,
				UpdatedAt:    now,
			}
			_, err := tx.NewInsert().
				Model(counter).
				On("CONFLICT (actor_id, event_type, channel_group, period, period_key) DO UPDATE").
				Set("count = event_counters.count + 1").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, r.HandleErrorWithID("record", "activity_event", row.SourceEventID, err)
	}
	return inserted, nil
}

// CounterValue reads one counter; a missing row is simply zero.
func (r *EventRepository) CounterValue(ctx context.Context, actorID, eventType, channelGroup, period, periodKey string) (int64, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	counter := new(models.EventCounter)
	err := r.GetDB().NewSelect().
		Model(counter).
		Where("actor_id = ?", actorID).
		Where("event_type = ?", eventType).
		Where("channel_group = ?", channelGroup).
		Where("period = ?", period).
		Where("period_key = ?", periodKey).
		Scan(timeoutCtx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, r.HandleError("counter_value", "event_counter", err)
	}
	return counter.Count, nil
}

// EventTotal sums an actor's lifetime counters for one event type across
// all channel groups.
func (r *EventRepository) EventTotal(ctx context.Context, actorID, eventType string) (int64, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var total sql.NullInt64
	err := r.GetDB().NewSelect().
		Model((*models.EventCounter)(nil)).
		ColumnExpr("COALESCE(SUM(count), 0)").
		Where("actor_id = ?", actorID).
		Where("event_type = ?", eventType).
		Where("period = ?", models.PeriodLifetime).
		Scan(timeoutCtx, &total)
	if err != nil {
		return 0, r.HandleError("event_total", "event_counter", err)
	}
	return total.Int64, nil
}

// ListCounters returns every counter row, for the reconciliation job.
func (r *EventRepository) ListCounters(ctx context.Context) ([]*models.EventCounter, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var counters []*models.EventCounter
	err := r.GetDB().NewSelect().
		Model(&counters).
		Order("actor_id ASC", "event_type ASC", "period ASC", "period_key ASC").
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("list", "event_counter", err)
	}
	return counters, nil
}

// TrueCount recomputes a counter from the lake rows it aggregates. The
// second return reports whether the bucket is computable: seasonal buckets
// other than the current season have no timestamp boundary left to count by.
func (r *EventRepository) TrueCount(ctx context.Context, c *models.EventCounter, currentSeasonKey string, seasonStart time.Time) (int64, bool, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	q := r.GetDB().NewSelect().
		Model((*models.ActivityEvent)(nil)).
		Where("actor_id = ?", c.ActorID).
		Where("event_type = ?", c.EventType).
		Where("channel_group = ?", c.ChannelGroup)

	switch c.Period {
	case models.PeriodLifetime:
	case models.PeriodDaily:
		day, err := time.Parse("2006-01-02", c.PeriodKey)
		if err != nil {
			return 0, false, nil
		}
		q = q.Where("timestamp >= ?", day).Where("timestamp < ?", day.Add(24*time.Hour))
	case models.PeriodSeasonal:
		if c.PeriodKey != currentSeasonKey || seasonStart.IsZero() {
			return 0, false, nil
		}
		q = q.Where("timestamp >= ?", seasonStart)
	default:
		return 0, false, nil
	}

	count, err := q.Count(timeoutCtx)
	if err != nil {
		return 0, false, r.HandleError("true_count", "activity_event", err)
	}
	return int64(count), true, nil
}

// SetCounterValue overwrites a drifted counter with its recomputed value.
func (r *EventRepository) SetCounterValue(ctx context.Context, id int64, value int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model((*models.EventCounter)(nil)).
		Set("count = ?", value).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("set_value", "event_counter", id, err)
}

// DeleteOlderThan removes at most limit lake rows older than the cutoff,
// oldest first. Retention calls it in batches so no single statement holds a
// long-lived lock on the table.
func (r *EventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.GetDB().ExecContext(timeoutCtx, `
		DELETE FROM activity_events
		WHERE id IN (
			SELECT id FROM activity_events
			WHERE timestamp < ?
			ORDER BY timestamp ASC
			LIMIT ?
		)`, cutoff, limit)
	if err != nil {
		return 0, r.HandleError("delete_batch", "activity_event", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, r.HandleError("delete_batch", "activity_event", err)
	}
	return deleted, nil
}
