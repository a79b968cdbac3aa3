package repositories

import (
	"context"
	"time"

	"github.com/emberworks/emberbot/emberbot/database/models"
	"github.com/emberworks/emberbot/emberbot/rewards"
	"github.com/uptrace/bun"
)

// UserRepository owns per-actor economy state.
type UserRepository struct {
	*BaseRepository
}

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{BaseRepository: NewBaseRepository(db)}
}

// GetByDiscordID fetches one user's economy state.
func (r *UserRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	user := new(models.User)
	err := r.GetDB().NewSelect().
		Model(user).
		Where("discord_id = ?", discordID).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "user", discordID, err)
	}
	return user, nil
}

// ApplyReward upserts the user, applies the currency deltas atomically and
// recomputes level from the new XP total. The returned state is
// post-application.
func (r *UserRepository) ApplyReward(ctx context.Context, discordID, username string, xpDelta, goldDelta int64) (*models.User, error) {
	user := new(models.User)
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		seed := &models.User{
			DiscordID: discordID,
			Username:  username,
			XP:        xpDelta,
			Gold:      goldDelta,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if seed.Username == "" {
			seed.Username = discordID
		}
		seed.Level = rewards.LevelForXP(seed.XP)

		err := tx.NewInsert().
			Model(seed).
			On("CONFLICT (discord_id) DO UPDATE").
			Set("xp = users.xp + EXCLUDED.xp").
			Set("gold = users.gold + EXCLUDED.gold").
			Set("updated_at = EXCLUDED.updated_at").
			Returning("*").
			Scan(ctx, user)
		if err != nil {
			return err
		}

		// Level is a pure function of cumulative XP; keep the stored value
		// in line with the new total.
		if level := rewards.LevelForXP(user.XP); level != user.Level {
			user.Level = level
			_, err = tx.NewUpdate().
				Model((*models.User)(nil)).
				Set("level = ?", level).
				Where("discord_id = ?", discordID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, r.HandleErrorWithID("apply_reward", "user", discordID, err)
	}
	return user, nil
}

// ApplyStars adds achievement stars to both the seasonal and lifetime
// totals.
func (r *UserRepository) ApplyStars(ctx context.Context, discordID string, stars int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model((*models.User)(nil)).
		Set("season_stars = season_stars + ?", stars).
		Set("lifetime_stars = lifetime_stars + ?", stars).
		Set("updated_at = ?", time.Now()).
		Where("discord_id = ?", discordID).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("apply_stars", "user", discordID, err)
}

// ResetSeasonStars zeroes every user's seasonal stars, for season rollover.
func (r *UserRepository) ResetSeasonStars(ctx context.Context) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model((*models.User)(nil)).
		Set("season_stars = 0").
		Set("updated_at = ?", time.Now()).
		Where("season_stars <> 0").
		Exec(timeoutCtx)
	return r.HandleError("reset_season_stars", "user", err)
}
