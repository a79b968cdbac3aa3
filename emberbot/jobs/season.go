package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"log/slog"
)

const lastRolledSeasonKey = "last_rolled_season"

// SettingStore reads and writes durable settings rows, bypassing the cache.
// Rollover bookkeeping must never trust a possibly stale snapshot for its
// own marker.
type SettingStore interface {
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// StarResetter zeroes every user's seasonal star total.
type StarResetter interface {
	ResetSeasonStars(ctx context.Context) error
}

// SeasonRollover watches the current_season setting and, when an operator
// advances it, resets seasonal stars exactly once. The rolled-to season is
// recorded durably so a restart cannot re-run the reset.
type SeasonRollover struct {
	settings SettingStore
	users    StarResetter
	cache    SnapshotSource
}

func NewSeasonRollover(settings SettingStore, users StarResetter, cache SnapshotSource) *SeasonRollover {
	return &SeasonRollover{settings: settings, users: users, cache: cache}
}

// Run reports whether a rollover was performed.
func (s *SeasonRollover) Run(ctx context.Context) (bool, error) {
	current := s.cache.Snapshot().SettingInt64("current_season", 1)

	lastRaw, err := s.settings.Setting(ctx, lastRolledSeasonKey)
	if err != nil {
		return false, err
	}
	if lastRaw == "" {
		// First sighting on this deployment: adopt the current season
		// without zeroing anyone.
		return false, s.settings.SetSetting(ctx, lastRolledSeasonKey, strconv.FormatInt(current, 10))
	}
	last, err := strconv.ParseInt(lastRaw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid %s setting %q: %w", lastRolledSeasonKey, lastRaw, err)
	}
	if current == last {
		return false, nil
	}

	start := time.Now()
	if err := s.users.ResetSeasonStars(ctx); err != nil {
		return false, err
	}
	if err := s.settings.SetSetting(ctx, lastRolledSeasonKey, strconv.FormatInt(current, 10)); err != nil {
		return false, err
	}
	slog.Info("Season rolled over",
		slog.String("type", "sys"),
		slog.Int64("from", last),
		slog.Int64("to", current),
		slog.Duration("took", time.Since(start)))
	return true, nil
}
