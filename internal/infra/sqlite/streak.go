package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── Weekly Streaks ─────────────────────────────────────────────────────────

const streakQuery = `SELECT user_id, current_streak, longest_streak,
	weekly_points_earned, last_activity_at, last_week, last_year,
	bonuses_claimed FROM user_streaks`

// Streak reads a user's streak state. A user with no row yet gets a zero
// streak, not an error.
func (d *DB) Streak(userID string) (domain.Streak, error) {
	s, err := scanStreak(d.db.QueryRow(streakQuery+` WHERE user_id = ?`, userID))
	if err != nil {
		return domain.Streak{}, err
	}
	if s == nil {
		return domain.Streak{UserID: userID}, nil
	}
	return *s, nil
}

// EnsureStreak lazily creates the streak row.
func (t *Tx) EnsureStreak(userID string) error {
	_, err := t.tx.Exec(`INSERT OR IGNORE INTO user_streaks (user_id) VALUES (?)`, userID)
	return err
}

// StreakRow reads the streak state inside the transaction.
func (t *Tx) StreakRow(userID string) (*domain.Streak, error) {
	return scanStreak(t.tx.QueryRow(streakQuery+` WHERE user_id = ?`, userID))
}

// SaveStreak writes the full streak state. Only ever called inside the claim
// transaction, after the same-week guard has passed.
func (t *Tx) SaveStreak(s domain.Streak) error {
	_, err := t.tx.Exec(
		`UPDATE user_streaks SET
			current_streak = ?, longest_streak = ?, weekly_points_earned = ?,
			last_activity_at = ?, last_week = ?, last_year = ?, bonuses_claimed = ?
		 WHERE user_id = ?`,
		s.CurrentStreak, s.LongestStreak, s.WeeklyPointsEarned,
		nullableUnix(s.LastActivityAt), s.LastWeek, s.LastYear, s.BonusesClaimed,
		s.UserID,
	)
	return err
}

func scanStreak(sc scanner) (*domain.Streak, error) {
	var s domain.Streak
	var lastActivity sql.NullInt64
	err := sc.Scan(&s.UserID, &s.CurrentStreak, &s.LongestStreak,
		&s.WeeklyPointsEarned, &lastActivity, &s.LastWeek, &s.LastYear,
		&s.BonusesClaimed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan streak: %w", err)
	}
	s.LastActivityAt = unixOrZero(lastActivity)
	return &s, nil
}
