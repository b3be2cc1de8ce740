// Package sqlite provides SQLite-based persistent storage for Fare.
// Uses WAL mode for concurrent reads and crash-safe writes. Multi-step
// mutations (award + stats, quest completion + bonus, redemption + stock)
// run inside an explicit Tx so partial application is impossible.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/fare.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "fare.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer; one connection serializes all mutations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Identity
		`CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			avatar_url   TEXT NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			created_at INTEGER NOT NULL
		)`,

		// Points ledger. Append-only; the balance source of truth
		`CREATE TABLE IF NOT EXISTS point_transactions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			points       INTEGER NOT NULL,
			type         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			related_id   TEXT,
			related_type TEXT,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ptx_user ON point_transactions(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ptx_user_type ON point_transactions(user_id, type)`,

		// Stats projection, mutated only inside the award transaction
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id              TEXT PRIMARY KEY,
			total_points         INTEGER NOT NULL DEFAULT 0,
			current_tier         INTEGER NOT NULL DEFAULT 1,
			dinners_attended     INTEGER NOT NULL DEFAULT 0,
			dinners_hosted       INTEGER NOT NULL DEFAULT 0,
			reviews_posted       INTEGER NOT NULL DEFAULT 0,
			referrals_successful INTEGER NOT NULL DEFAULT 0,
			total_points_earned  INTEGER NOT NULL DEFAULT 0,
			total_points_spent   INTEGER NOT NULL DEFAULT 0
		)`,

		// Achievements (definitions live in code; progress lives here)
		`CREATE TABLE IF NOT EXISTS user_achievements (
			user_id          TEXT NOT NULL,
			achievement_id   TEXT NOT NULL,
			current_progress INTEGER NOT NULL DEFAULT 0,
			unlocked_at      INTEGER,
			PRIMARY KEY (user_id, achievement_id)
		)`,

		// Quest catalog and per-user instances
		`CREATE TABLE IF NOT EXISTS quest_templates (
			id           TEXT PRIMARY KEY,
			type         TEXT NOT NULL,
			title        TEXT NOT NULL,
			total_points INTEGER NOT NULL,
			active       BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS quest_tasks (
			id          TEXT PRIMARY KEY,
			template_id TEXT NOT NULL REFERENCES quest_templates(id),
			text        TEXT NOT NULL,
			points      INTEGER NOT NULL DEFAULT 0,
			order_index INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_qtasks_template ON quest_tasks(template_id, order_index)`,
		`CREATE TABLE IF NOT EXISTS user_quests (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			template_id  TEXT NOT NULL REFERENCES quest_templates(id),
			created_at   INTEGER NOT NULL,
			expires_at   INTEGER NOT NULL,
			completed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uq_user ON user_quests(user_id, expires_at)`,
		`CREATE TABLE IF NOT EXISTS user_quest_progress (
			user_quest_id TEXT NOT NULL REFERENCES user_quests(id),
			task_id       TEXT NOT NULL REFERENCES quest_tasks(id),
			completed     BOOLEAN NOT NULL DEFAULT 0,
			completed_at  INTEGER,
			PRIMARY KEY (user_quest_id, task_id)
		)`,

		// Leaderboard snapshots
		`CREATE TABLE IF NOT EXISTS leaderboard_cache (
			board_type   TEXT NOT NULL,
			period_start INTEGER NOT NULL,
			user_id      TEXT NOT NULL,
			rank         INTEGER NOT NULL,
			value        INTEGER NOT NULL,
			refreshed_at INTEGER NOT NULL,
			PRIMARY KEY (board_type, period_start, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lb_rank ON leaderboard_cache(board_type, period_start, rank)`,

		// Weekly streaks
		`CREATE TABLE IF NOT EXISTS user_streaks (
			user_id              TEXT PRIMARY KEY,
			current_streak       INTEGER NOT NULL DEFAULT 0,
			longest_streak       INTEGER NOT NULL DEFAULT 0,
			weekly_points_earned INTEGER NOT NULL DEFAULT 0,
			last_activity_at     INTEGER,
			last_week            INTEGER NOT NULL DEFAULT 0,
			last_year            INTEGER NOT NULL DEFAULT 0,
			bonuses_claimed      INTEGER NOT NULL DEFAULT 0
		)`,

		// Loyalty shop
		`CREATE TABLE IF NOT EXISTS loyalty_items (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			cost           INTEGER NOT NULL,
			stock_quantity INTEGER,
			available      BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS loyalty_redemptions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			item_id      TEXT NOT NULL REFERENCES loyalty_items(id),
			code         TEXT NOT NULL,
			points_spent INTEGER NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_redemptions_user ON loyalty_redemptions(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// Tx is a write transaction exposing the row-mutating operations. Services
// compose multi-step work (award + projection update, completion check +
// bonus) on one Tx so every check-then-act pair is atomic.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (d *DB) Begin() (*Tx, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise.
func (d *DB) WithTx(fn func(*Tx) error) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixOrZero(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func strOrEmpty(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}
