package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── Quest Catalog ──────────────────────────────────────────────────────────

// UpsertQuestTemplate inserts or updates a catalog template.
func (d *DB) UpsertQuestTemplate(tmpl domain.QuestTemplate) error {
	_, err := d.db.Exec(
		`INSERT INTO quest_templates (id, type, title, total_points, active)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			type=excluded.type,
			title=excluded.title,
			total_points=excluded.total_points,
			active=excluded.active`,
		tmpl.ID, string(tmpl.Type), tmpl.Title, tmpl.TotalPoints, tmpl.Active,
	)
	return err
}

// UpsertQuestTask inserts or updates a template task.
func (d *DB) UpsertQuestTask(task domain.QuestTask) error {
	_, err := d.db.Exec(
		`INSERT INTO quest_tasks (id, template_id, text, points, order_index)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			text=excluded.text,
			points=excluded.points,
			order_index=excluded.order_index`,
		task.ID, task.TemplateID, task.Text, task.Points, task.OrderIndex,
	)
	return err
}

// ActiveTemplates returns the active templates for a cadence.
func (d *DB) ActiveTemplates(qt domain.QuestType) ([]domain.QuestTemplate, error) {
	rows, err := d.db.Query(
		`SELECT id, type, title, total_points, active
		 FROM quest_templates WHERE type = ? AND active = 1 ORDER BY id`,
		string(qt),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tmpls []domain.QuestTemplate
	for rows.Next() {
		var tm domain.QuestTemplate
		if err := rows.Scan(&tm.ID, &tm.Type, &tm.Title, &tm.TotalPoints, &tm.Active); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tmpls = append(tmpls, tm)
	}
	return tmpls, rows.Err()
}

// TemplateTasks returns a template's tasks in display order.
func (d *DB) TemplateTasks(templateID string) ([]domain.QuestTask, error) {
	rows, err := d.db.Query(
		`SELECT id, template_id, text, points, order_index
		 FROM quest_tasks WHERE template_id = ? ORDER BY order_index`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.QuestTask
	for rows.Next() {
		var qt domain.QuestTask
		if err := rows.Scan(&qt.ID, &qt.TemplateID, &qt.Text, &qt.Points, &qt.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan quest task: %w", err)
		}
		tasks = append(tasks, qt)
	}
	return tasks, rows.Err()
}

// ─── User Quests ────────────────────────────────────────────────────────────

const questQuery = `SELECT uq.id, uq.user_id, uq.template_id, qt.type, qt.title,
	qt.total_points, uq.created_at, uq.expires_at, uq.completed_at
	FROM user_quests uq JOIN quest_templates qt ON qt.id = uq.template_id`

// ActiveQuests returns a user's non-expired quests, optionally filtered to
// the given cadences, ordered by expiry.
func (d *DB) ActiveQuests(userID string, types []domain.QuestType, now time.Time) ([]domain.Quest, error) {
	query := questQuery + ` WHERE uq.user_id = ? AND uq.expires_at > ?`
	args := []any{userID, now.Unix()}
	if len(types) > 0 {
		placeholders := strings.Repeat("?,", len(types))
		query += ` AND qt.type IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, qt := range types {
			args = append(args, string(qt))
		}
	}
	query += ` ORDER BY uq.expires_at, uq.id`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []domain.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

// QuestTaskStates returns the tasks of one quest instance joined with their
// completion state.
func (d *DB) QuestTaskStates(userQuestID string) ([]domain.TaskState, error) {
	rows, err := d.db.Query(
		`SELECT qt.id, qt.template_id, qt.text, qt.points, qt.order_index,
			p.completed, p.completed_at
		 FROM user_quest_progress p JOIN quest_tasks qt ON qt.id = p.task_id
		 WHERE p.user_quest_id = ? ORDER BY qt.order_index`,
		userQuestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.TaskState
	for rows.Next() {
		var ts domain.TaskState
		var completedAt sql.NullInt64
		err := rows.Scan(&ts.ID, &ts.TemplateID, &ts.Text, &ts.Points, &ts.OrderIndex,
			&ts.Completed, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("scan task state: %w", err)
		}
		ts.CompletedAt = unixOrZero(completedAt)
		states = append(states, ts)
	}
	return states, rows.Err()
}

// InsertQuestIfNone creates a quest instance unless the user already holds a
// live (unexpired, incomplete) instance of the same template. The existence
// check and insert share the write transaction, which closes the
// double-create race between two concurrent "no active quest" observers.
// Returns false when an existing live instance suppressed the insert.
func (t *Tx) InsertQuestIfNone(q domain.Quest, now time.Time) (bool, error) {
	res, err := t.tx.Exec(
		`INSERT INTO user_quests (id, user_id, template_id, created_at, expires_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
			SELECT 1 FROM user_quests
			WHERE user_id = ? AND template_id = ?
			  AND expires_at > ? AND completed_at IS NULL
		 )`,
		q.ID, q.UserID, q.TemplateID, q.CreatedAt.Unix(), q.ExpiresAt.Unix(),
		q.UserID, q.TemplateID, now.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// InsertQuestProgress seeds the per-task progress rows for a new instance.
func (t *Tx) InsertQuestProgress(userQuestID string, taskIDs []string) error {
	for _, taskID := range taskIDs {
		_, err := t.tx.Exec(
			`INSERT OR IGNORE INTO user_quest_progress (user_quest_id, task_id) VALUES (?, ?)`,
			userQuestID, taskID,
		)
		if err != nil {
			return fmt.Errorf("seed progress row: %w", err)
		}
	}
	return nil
}

// QuestForUser loads one quest instance scoped to its owner, or nil. The
// ownership check is data-scoped: a quest id belonging to another user reads
// as absent.
func (t *Tx) QuestForUser(questID, userID string) (*domain.Quest, error) {
	return scanQuest(t.tx.QueryRow(
		questQuery+` WHERE uq.id = ? AND uq.user_id = ?`, questID, userID,
	))
}

// HasTask reports whether the task belongs to the quest instance.
func (t *Tx) HasTask(userQuestID, taskID string) (bool, error) {
	var one int
	err := t.tx.QueryRow(
		`SELECT 1 FROM user_quest_progress WHERE user_quest_id = ? AND task_id = ?`,
		userQuestID, taskID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// MarkTaskComplete flips one task to completed. Returns false if the task was
// already complete (idempotent re-invocation).
func (t *Tx) MarkTaskComplete(userQuestID, taskID string, now time.Time) (bool, error) {
	res, err := t.tx.Exec(
		`UPDATE user_quest_progress SET completed = 1, completed_at = ?
		 WHERE user_quest_id = ? AND task_id = ? AND completed = 0`,
		now.Unix(), userQuestID, taskID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// TaskCounts returns (total, completed) task counts for a quest instance.
func (t *Tx) TaskCounts(userQuestID string) (total, completed int, err error) {
	err = t.tx.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(completed), 0)
		 FROM user_quest_progress WHERE user_quest_id = ?`,
		userQuestID,
	).Scan(&total, &completed)
	return total, completed, err
}

// CompleteQuest sets completed_at exactly once. Returns false if the quest
// was already completed; the caller must not award the bonus again.
func (t *Tx) CompleteQuest(questID string, now time.Time) (bool, error) {
	res, err := t.tx.Exec(
		`UPDATE user_quests SET completed_at = ?
		 WHERE id = ? AND completed_at IS NULL`,
		now.Unix(), questID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func scanQuest(s scanner) (*domain.Quest, error) {
	var q domain.Quest
	var createdAt, expiresAt int64
	var completedAt sql.NullInt64

	err := s.Scan(&q.ID, &q.UserID, &q.TemplateID, &q.Type, &q.Title,
		&q.TotalPoints, &createdAt, &expiresAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan quest: %w", err)
	}

	q.CreatedAt = time.Unix(createdAt, 0).UTC()
	q.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	q.CompletedAt = unixOrZero(completedAt)
	return &q, nil
}
