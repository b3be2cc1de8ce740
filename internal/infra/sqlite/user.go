package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── User Repository ────────────────────────────────────────────────────────

// UpsertUser inserts or updates a user record.
func (d *DB) UpsertUser(u domain.User) error {
	_, err := d.db.Exec(
		`INSERT INTO users (id, display_name, avatar_url, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			display_name=excluded.display_name,
			avatar_url=excluded.avatar_url`,
		u.ID, u.DisplayName, u.AvatarURL, u.CreatedAt.Unix(),
	)
	return err
}

// UserByID retrieves a single user, or nil if absent.
func (d *DB) UserByID(id string) (*domain.User, error) {
	row := d.db.QueryRow(
		`SELECT id, display_name, avatar_url, created_at FROM users WHERE id = ?`, id,
	)
	return scanUser(row)
}

// ListUsers returns all users ordered by creation time.
func (d *DB) ListUsers() ([]domain.User, error) {
	rows, err := d.db.Query(
		`SELECT id, display_name, avatar_url, created_at FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	var createdAt int64
	err := s.Scan(&u.ID, &u.DisplayName, &u.AvatarURL, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// ─── Session Repository ─────────────────────────────────────────────────────

// InsertSession stores a bearer session token for a user.
func (d *DB) InsertSession(s domain.Session) error {
	_, err := d.db.Exec(
		`INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.CreatedAt.Unix(),
	)
	return err
}

// UserForToken resolves a session token to its user, or nil if the token is
// unknown.
func (d *DB) UserForToken(token string) (*domain.User, error) {
	row := d.db.QueryRow(
		`SELECT u.id, u.display_name, u.avatar_url, u.created_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token = ?`, token,
	)
	return scanUser(row)
}
