package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── Achievement Progress ───────────────────────────────────────────────────

// UserAchievements returns a user's progress rows keyed by achievement id.
func (d *DB) UserAchievements(userID string) (map[string]domain.UserAchievement, error) {
	rows, err := d.db.Query(
		`SELECT user_id, achievement_id, current_progress, unlocked_at
		 FROM user_achievements WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.UserAchievement)
	for rows.Next() {
		var ua domain.UserAchievement
		var unlockedAt sql.NullInt64
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.CurrentProgress, &unlockedAt); err != nil {
			return nil, fmt.Errorf("scan user achievement: %w", err)
		}
		ua.UnlockedAt = unixOrZero(unlockedAt)
		out[ua.AchievementID] = ua
	}
	return out, rows.Err()
}

// UpsertAchievementProgress writes the recomputed progress for one
// achievement without touching unlocked_at.
func (t *Tx) UpsertAchievementProgress(userID, achievementID string, progress int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO user_achievements (user_id, achievement_id, current_progress)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id, achievement_id) DO UPDATE SET
			current_progress=excluded.current_progress`,
		userID, achievementID, progress,
	)
	return err
}

// UnlockAchievement sets unlocked_at exactly once. Returns false if the
// achievement was already unlocked; the caller must not award again.
func (t *Tx) UnlockAchievement(userID, achievementID string, now time.Time) (bool, error) {
	res, err := t.tx.Exec(
		`UPDATE user_achievements SET unlocked_at = ?
		 WHERE user_id = ? AND achievement_id = ? AND unlocked_at IS NULL`,
		now.Unix(), userID, achievementID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
