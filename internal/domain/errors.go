package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency. The API layer maps
// them onto the 401/404/400 envelope; anything unrecognized becomes a 500
// with the underlying error logged, never surfaced.

var (
	// Auth errors
	ErrUnauthorized = errors.New("authentication required")

	// Ledger errors
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientPoints = errors.New("insufficient points")

	// Achievement errors
	ErrAchievementNotFound = errors.New("achievement not found")

	// Quest errors
	ErrQuestNotFound     = errors.New("quest not found")
	ErrQuestExpired      = errors.New("quest has expired")
	ErrTaskNotFound      = errors.New("quest task not found")
	ErrQuestCreateFailed = errors.New("quest creation yielded no quests")

	// Leaderboard errors
	ErrUnknownBoard = errors.New("unknown leaderboard type")

	// Streak errors
	ErrStreakAlreadyClaimed = errors.New("weekly bonus already claimed this week")

	// Loyalty errors
	ErrItemNotFound    = errors.New("loyalty item not found")
	ErrItemUnavailable = errors.New("loyalty item is not available")
	ErrOutOfStock      = errors.New("loyalty item is out of stock")
)
