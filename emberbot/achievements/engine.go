package achievements

import (
	"context"
	"log/slog"
	"sort"
)

// AwardStore persists earned achievements. Award must be a store-level
// conditional write: the unique (user, achievement) constraint and the
// max_earners guard are enforced in the insert itself, never by a prior
// read, so concurrent evaluations cannot double-award.
type AwardStore interface {
	EarnedIDs(ctx context.Context, userID string) (map[string]bool, error)
	Award(ctx context.Context, userID, achievementID string, maxEarners int) (bool, error)
}

// Engine evaluates achievement templates against a user's live stats and
// awards whatever newly unlocks.
type Engine struct {
	store AwardStore
}

func NewEngine(store AwardStore) *Engine {
	return &Engine{store: store}
}

// EvaluateUser runs every active template the user does not already hold,
// skipping manual triggers and series tiers whose predecessor is unearned.
// A template whose evaluation fails is skipped without aborting the rest.
// Returns the templates newly awarded in this pass.
func (e *Engine) EvaluateUser(ctx context.Context, userID string, templates map[string]Template, ectx EvalContext) ([]Template, error) {
	earned, err := e.store.EarnedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := orderedTemplateIDs(templates)

	var awarded []Template
	for _, id := range ids {
		t := templates[id]
		if t.Trigger == TriggerManual || earned[t.ID] {
			continue
		}
		if seriesGated(t, templates, earned) {
			continue
		}

		ok, err := Evaluate(ectx, t)
		if err != nil {
			slog.Warn("Achievement evaluation failed, skipping template",
				slog.String("type", "sys"),
				slog.String("achievement", t.ID),
				slog.String("user_id", userID),
				slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}

		granted, err := e.store.Award(ctx, userID, t.ID, t.MaxEarners)
		if err != nil {
			return awarded, err
		}
		if !granted {
			// Already held, or max_earners filled by a concurrent award.
			// Either way: not earned this time.
			continue
		}

		earned[t.ID] = true
		awarded = append(awarded, t)
		slog.Info("Achievement earned",
			slog.String("type", "sys"),
			slog.String("achievement", t.ID),
			slog.String("user_id", userID))
	}
	return awarded, nil
}

// orderedTemplateIDs returns the template IDs sorted by (series, series
// order, ID). The ordering must be a total order so series tiers reliably
// unlock lowest-first within one pass.
func orderedTemplateIDs(templates map[string]Template) []string {
	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := templates[ids[i]], templates[ids[j]]
		if a.SeriesID != b.SeriesID {
			return a.SeriesID < b.SeriesID
		}
		if a.SeriesOrder != b.SeriesOrder {
			return a.SeriesOrder < b.SeriesOrder
		}
		return ids[i] < ids[j]
	})
	return ids
}

// seriesGated reports whether t sits behind an unearned predecessor in its
// series. Tiers are earnable strictly in series order.
func seriesGated(t Template, templates map[string]Template, earned map[string]bool) bool {
	if t.SeriesID == "" || t.SeriesOrder <= 1 {
		return false
	}
	for _, other := range templates {
		if other.SeriesID == t.SeriesID && other.SeriesOrder == t.SeriesOrder-1 {
			return !earned[other.ID]
		}
	}
	// Predecessor template missing entirely: keep the tier locked.
	return true
}
