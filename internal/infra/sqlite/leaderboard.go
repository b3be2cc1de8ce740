package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── Leaderboard Snapshots ──────────────────────────────────────────────────
// Each (board_type, period_start) partition is rebuilt wholesale inside one
// transaction. Rank ties break on user_id ascending so identical state
// always materializes identical ranks.

// DeleteBoard clears one snapshot partition.
func (t *Tx) DeleteBoard(bt domain.BoardType, periodStart time.Time) error {
	_, err := t.tx.Exec(
		`DELETE FROM leaderboard_cache WHERE board_type = ? AND period_start = ?`,
		string(bt), periodStart.Unix(),
	)
	return err
}

// FillBoardFromStats materializes the points or dinners board from the stats
// projection.
func (t *Tx) FillBoardFromStats(bt domain.BoardType, periodStart, now time.Time) error {
	var valueCol string
	switch bt {
	case domain.BoardPoints:
		valueCol = "total_points"
	case domain.BoardDinners:
		valueCol = "dinners_attended"
	default:
		return fmt.Errorf("board %q is not stats-backed", bt)
	}

	_, err := t.tx.Exec(
		`INSERT INTO leaderboard_cache (board_type, period_start, user_id, rank, value, refreshed_at)
		 SELECT ?, ?, user_id,
			ROW_NUMBER() OVER (ORDER BY `+valueCol+` DESC, user_id ASC),
			`+valueCol+`, ?
		 FROM user_stats`,
		string(bt), periodStart.Unix(), now.Unix(),
	)
	return err
}

// FillBoardMonthly materializes the monthly board by summing each user's
// positive ledger rows since period_start.
func (t *Tx) FillBoardMonthly(periodStart, now time.Time) error {
	_, err := t.tx.Exec(
		`INSERT INTO leaderboard_cache (board_type, period_start, user_id, rank, value, refreshed_at)
		 SELECT ?, ?, user_id,
			ROW_NUMBER() OVER (ORDER BY SUM(points) DESC, user_id ASC),
			SUM(points), ?
		 FROM point_transactions
		 WHERE points > 0 AND created_at >= ?
		 GROUP BY user_id`,
		string(domain.BoardMonthly), periodStart.Unix(), now.Unix(), periodStart.Unix(),
	)
	return err
}

// BoardRefreshedAt returns when a partition was last rebuilt, or zero if it
// has never been materialized.
func (d *DB) BoardRefreshedAt(bt domain.BoardType, periodStart time.Time) (time.Time, error) {
	var refreshed sql.NullInt64
	err := d.db.QueryRow(
		`SELECT MAX(refreshed_at) FROM leaderboard_cache
		 WHERE board_type = ? AND period_start = ?`,
		string(bt), periodStart.Unix(),
	).Scan(&refreshed)
	if err != nil {
		return time.Time{}, err
	}
	return unixOrZero(refreshed), nil
}

// BoardEntries reads a snapshot partition joined with user display info.
func (d *DB) BoardEntries(bt domain.BoardType, periodStart time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := d.db.Query(
		`SELECT lc.rank, lc.user_id, u.display_name, u.avatar_url,
			COALESCE(st.current_tier, 1), lc.value
		 FROM leaderboard_cache lc
		 JOIN users u ON u.id = lc.user_id
		 LEFT JOIN user_stats st ON st.user_id = lc.user_id
		 WHERE lc.board_type = ? AND lc.period_start = ?
		 ORDER BY lc.rank LIMIT ?`,
		string(bt), periodStart.Unix(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.DisplayName, &e.AvatarURL, &e.Tier, &e.Value); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
