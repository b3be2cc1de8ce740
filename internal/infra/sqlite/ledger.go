package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── Points Ledger (transactional) ──────────────────────────────────────────

// StatsDelta is the set of atomic increments one award applies to the stats
// projection. Earned/Spent carry the positive/negative split of Points.
type StatsDelta struct {
	Points int64
	Earned int64
	Spent  int64

	Dinners   int
	Hosted    int
	Reviews   int
	Referrals int
}

// EnsureStats lazily creates the stats row for a user. A valid user id never
// fails with "not found" on its first ledger write.
func (t *Tx) EnsureStats(userID string) error {
	_, err := t.tx.Exec(
		`INSERT OR IGNORE INTO user_stats (user_id) VALUES (?)`, userID,
	)
	return err
}

// StatsRow reads the stats projection inside the transaction.
func (t *Tx) StatsRow(userID string) (*domain.UserStats, error) {
	return scanStats(t.tx.QueryRow(statsQuery+` WHERE user_id = ?`, userID))
}

// InsertTransaction appends an immutable ledger row.
func (t *Tx) InsertTransaction(p domain.PointTransaction) error {
	_, err := t.tx.Exec(
		`INSERT INTO point_transactions (id, user_id, points, type, description, related_id, related_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Points, string(p.Type), p.Description,
		nullStr(p.RelatedID), nullStr(p.RelatedType), p.CreatedAt.Unix(),
	)
	return err
}

// ApplyStatsDelta applies atomic increments to the projection and recomputes
// the denormalized tier from the new total in the same transaction. The
// projection is never written with an absolute total, so concurrent awards
// cannot last-write-wins each other.
func (t *Tx) ApplyStatsDelta(userID string, delta StatsDelta) error {
	_, err := t.tx.Exec(
		`UPDATE user_stats SET
			total_points         = total_points + ?,
			total_points_earned  = total_points_earned + ?,
			total_points_spent   = total_points_spent + ?,
			dinners_attended     = dinners_attended + ?,
			dinners_hosted       = dinners_hosted + ?,
			reviews_posted       = reviews_posted + ?,
			referrals_successful = referrals_successful + ?
		 WHERE user_id = ?`,
		delta.Points, delta.Earned, delta.Spent,
		delta.Dinners, delta.Hosted, delta.Reviews, delta.Referrals,
		userID,
	)
	if err != nil {
		return fmt.Errorf("apply stats delta: %w", err)
	}

	// The tier comes from domain.TierFor so the denormalized column can
	// never diverge from the threshold table.
	var total int64
	if err := t.tx.QueryRow(
		`SELECT total_points FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return fmt.Errorf("read total for tier: %w", err)
	}
	_, err = t.tx.Exec(
		`UPDATE user_stats SET current_tier = ? WHERE user_id = ?`,
		domain.TierFor(total).Tier, userID,
	)
	if err != nil {
		return fmt.Errorf("recompute tier: %w", err)
	}
	return nil
}

// ─── Points Ledger (reads) ──────────────────────────────────────────────────

const statsQuery = `SELECT user_id, total_points, current_tier, dinners_attended,
	dinners_hosted, reviews_posted, referrals_successful,
	total_points_earned, total_points_spent FROM user_stats`

// Stats returns the stats projection for a user, or nil if no ledger write
// has happened yet.
func (d *DB) Stats(userID string) (*domain.UserStats, error) {
	return scanStats(d.db.QueryRow(statsQuery+` WHERE user_id = ?`, userID))
}

// Transactions returns a user's most recent ledger rows, newest first.
func (d *DB) Transactions(userID string, limit int) ([]domain.PointTransaction, error) {
	rows, err := d.db.Query(
		`SELECT id, user_id, points, type, description, related_id, related_type, created_at
		 FROM point_transactions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.PointTransaction
	for rows.Next() {
		var p domain.PointTransaction
		var createdAt int64
		var relID, relType sql.NullString
		err := rows.Scan(&p.ID, &p.UserID, &p.Points, &p.Type, &p.Description,
			&relID, &relType, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		p.RelatedID = strOrEmpty(relID)
		p.RelatedType = strOrEmpty(relType)
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		txs = append(txs, p)
	}
	return txs, rows.Err()
}

// SumTransactions replays the ledger for a user. The result must always equal
// the projection's total_points; reconciliation tests depend on it.
func (d *DB) SumTransactions(userID string) (int64, error) {
	var sum sql.NullInt64
	err := d.db.QueryRow(
		`SELECT SUM(points) FROM point_transactions WHERE user_id = ?`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// CountTransactions returns how many ledger rows a user has of a given type.
func (d *DB) CountTransactions(userID string, txType domain.TransactionType) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM point_transactions WHERE user_id = ? AND type = ?`,
		userID, string(txType),
	).Scan(&n)
	return n, err
}

func scanStats(s scanner) (*domain.UserStats, error) {
	var st domain.UserStats
	err := s.Scan(&st.UserID, &st.TotalPoints, &st.CurrentTier,
		&st.DinnersAttended, &st.DinnersHosted, &st.ReviewsPosted,
		&st.ReferralsSuccessful, &st.TotalPointsEarned, &st.TotalPointsSpent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	return &st, nil
}
