package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"log/slog"

	"github.com/emberworks/emberbot/emberbot/achievements"
	"github.com/emberworks/emberbot/emberbot/configcache"
	"github.com/emberworks/emberbot/emberbot/database/models"
	"github.com/uptrace/bun"
)

// ConfigRepository loads the configuration partitions the cache serves. It
// implements configcache.Loader.
type ConfigRepository struct {
	*BaseRepository
}

func NewConfigRepository(db *bun.DB) *ConfigRepository {
	return &ConfigRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *ConfigRepository) LoadMultipliers(ctx context.Context) (map[configcache.MultiplierKey]configcache.MultiplierPair, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rules []*models.ChannelMultiplier
	err := r.GetDB().NewSelect().
		Model(&rules).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("load", "channel_multiplier", err)
	}

	multipliers := make(map[configcache.MultiplierKey]configcache.MultiplierPair, len(rules))
	for _, rule := range rules {
		key := configcache.MultiplierKey{
			Scope:     rule.Scope,
			Target:    rule.Target,
			EventType: rule.EventType,
		}
		multipliers[key] = configcache.MultiplierPair{XP: rule.XPMult, Gold: rule.GoldMult}
	}
	return multipliers, nil
}

// LoadAchievements parses every active template into its typed form.
// Malformed templates are logged and skipped so one bad row cannot poison
// the partition.
func (r *ConfigRepository) LoadAchievements(ctx context.Context) (map[string]achievements.Template, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.AchievementTemplate
	err := r.GetDB().NewSelect().
		Model(&rows).
		Where("active = ?", true).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("load", "achievement_template", err)
	}

	templates := make(map[string]achievements.Template, len(rows))
	for _, row := range rows {
		t, err := achievements.ParseTemplate(row)
		if err != nil {
			slog.Warn("Skipping malformed achievement template",
				slog.String("type", "db"),
				slog.String("achievement", row.ID),
				slog.Any("error", err))
			continue
		}
		templates[t.ID] = t
	}
	return templates, nil
}

// Setting reads one setting row straight from the store. Missing keys
// return an empty value, not an error.
func (r *ConfigRepository) Setting(ctx context.Context, key string) (string, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	setting := new(models.Setting)
	err := r.GetDB().NewSelect().
		Model(setting).
		Where("key = ?", key).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", r.HandleErrorWithID("get", "setting", key, err)
	}
	return setting.Value, nil
}

// SetSetting upserts one setting row. The settings table trigger NOTIFYs
// the cache, so the write reaches every consumer shortly after.
func (r *ConfigRepository) SetSetting(ctx context.Context, key, value string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	setting := &models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	_, err := r.GetDB().NewInsert().
		Model(setting).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(timeoutCtx)
	return r.HandleErrorWithID("set", "setting", key, err)
}

func (r *ConfigRepository) LoadSettings(ctx context.Context) (map[string]string, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.Setting
	err := r.GetDB().NewSelect().
		Model(&rows).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("load", "setting", err)
	}

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}
