package repositories

import (
	"context"
	"time"

	"github.com/emberworks/emberbot/emberbot/database/models"
	"github.com/uptrace/bun"
)

// AchievementRepository persists earned achievements. It implements
// achievements.AwardStore.
type AchievementRepository struct {
	*BaseRepository
}

func NewAchievementRepository(db *bun.DB) *AchievementRepository {
	return &AchievementRepository{BaseRepository: NewBaseRepository(db)}
}

// EarnedIDs returns the set of achievement IDs the user already holds.
func (r *AchievementRepository) EarnedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var ids []string
	err := r.GetDB().NewSelect().
		Model((*models.UserAchievement)(nil)).
		Column("achievement_id").
		Where("user_id = ?", userID).
		Scan(timeoutCtx, &ids)
	if err != nil {
		return nil, r.HandleErrorWithID("earned_ids", "user_achievement", userID, err)
	}

	earned := make(map[string]bool, len(ids))
	for _, id := range ids {
		earned[id] = true
	}
	return earned, nil
}

// Award grants an achievement with a single conditional insert: the unique
// (user_id, achievement_id) constraint rejects re-awards and the max_earners
// guard sits in the statement itself, so two concurrent evaluations cannot
// both slip past a read-then-act check. Returns false when nothing was
// inserted: already held, or the earner limit was reached first.
func (r *AchievementRepository) Award(ctx context.Context, userID, achievementID string, maxEarners int) (bool, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.GetDB().ExecContext(timeoutCtx, `
		INSERT INTO user_achievements (user_id, achievement_id, earned_at)
		SELECT ?, ?, ?
		WHERE ? <= 0
		   OR (SELECT COUNT(*) FROM user_achievements WHERE achievement_id = ?) < ?
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		userID, achievementID, time.Now(), maxEarners, achievementID, maxEarners)
	if err != nil {
		return false, r.HandleErrorWithID("award", "user_achievement", achievementID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, r.HandleErrorWithID("award", "user_achievement", achievementID, err)
	}
	return affected > 0, nil
}

// EarnerCount reports how many distinct users hold an achievement.
func (r *AchievementRepository) EarnerCount(ctx context.Context, achievementID string) (int, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	count, err := r.GetDB().NewSelect().
		Model((*models.UserAchievement)(nil)).
		Where("achievement_id = ?", achievementID).
		Count(timeoutCtx)
	if err != nil {
		return 0, r.HandleErrorWithID("earner_count", "user_achievement", achievementID, err)
	}
	return count, nil
}
