// Package domain holds the pure types of the Fare gamification engine.
// No infrastructure dependencies: everything here is plain data plus a
// handful of derivation helpers (tier, ISO week, quest progress).
package domain

import "time"

// ─── Points Ledger Types ────────────────────────────────────────────────────

// TransactionType categorizes a point-earning or point-spending event.
type TransactionType string

const (
	TxBookingCompleted    TransactionType = "booking_completed"
	TxGroupBonus          TransactionType = "group_bonus"
	TxDinnerHosted        TransactionType = "dinner_hosted"
	TxReviewPosted        TransactionType = "review_posted"
	TxReferralSuccess     TransactionType = "referral_success"
	TxFirstDinner         TransactionType = "first_dinner"
	TxQuestCompleted      TransactionType = "quest_completed"
	TxWeeklyStreak        TransactionType = "weekly_streak"
	TxAchievementUnlocked TransactionType = "achievement_unlocked"
	TxLoyaltyRedemption   TransactionType = "loyalty_redemption"
)

// PointTransaction is an immutable ledger record. Rows are only ever
// inserted; the sum of a user's rows is their balance of record.
type PointTransaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Points      int64           `json:"points"` // signed; negative = spend
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	RelatedID   string          `json:"related_id,omitempty"`
	RelatedType string          `json:"related_type,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UserStats is the cached projection over a user's ledger. Owned exclusively
// by the ledger service; mutated only inside the award transaction, so it is
// always reconcilable by replaying point_transactions.
type UserStats struct {
	UserID              string `json:"user_id"`
	TotalPoints         int64  `json:"total_points"`
	CurrentTier         int    `json:"current_tier"`
	DinnersAttended     int    `json:"dinners_attended"`
	DinnersHosted       int    `json:"dinners_hosted"`
	ReviewsPosted       int    `json:"reviews_posted"`
	ReferralsSuccessful int    `json:"referrals_successful"`
	TotalPointsEarned   int64  `json:"total_points_earned"`
	TotalPointsSpent    int64  `json:"total_points_spent"`
}

// ─── Achievement Types ──────────────────────────────────────────────────────

// AchievementCategory groups achievements by theme.
type AchievementCategory string

const (
	CatDining     AchievementCategory = "dining"
	CatSocial     AchievementCategory = "social"
	CatReviews    AchievementCategory = "reviews"
	CatMilestones AchievementCategory = "milestones"
)

// AchievementDef defines a single achievement. Progress is recomputed from a
// UserStats snapshot; MaxProgress is the unlock threshold.
type AchievementDef struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Category    AchievementCategory   `json:"category"`
	Icon        string                `json:"icon"`
	Points      int64                 `json:"points"`
	MaxProgress int64                 `json:"max_progress"`
	Progress    func(UserStats) int64 `json:"-"` // not serialized
	Active      bool                  `json:"active"`
}

// UserAchievement tracks one user's progress toward one achievement.
// UnlockedAt is zero until the first time CurrentProgress reaches
// MaxProgress, and is set exactly once.
type UserAchievement struct {
	UserID          string    `json:"user_id"`
	AchievementID   string    `json:"achievement_id"`
	CurrentProgress int64     `json:"current_progress"`
	UnlockedAt      time.Time `json:"unlocked_at,omitzero"`
}

// Unlocked reports whether the achievement has been earned.
func (ua UserAchievement) Unlocked() bool { return !ua.UnlockedAt.IsZero() }

// ─── Quest Types ────────────────────────────────────────────────────────────

// QuestType is the issuing cadence of a quest template.
type QuestType string

const (
	QuestDaily    QuestType = "daily"
	QuestWeekly   QuestType = "weekly"
	QuestBiweekly QuestType = "biweekly"
	QuestMonthly  QuestType = "monthly"
)

// AllQuestTypes lists every cadence, in display order.
func AllQuestTypes() []QuestType {
	return []QuestType{QuestDaily, QuestWeekly, QuestBiweekly, QuestMonthly}
}

// QuestTemplate is the catalog definition a user quest is issued from.
type QuestTemplate struct {
	ID          string    `json:"id"`
	Type        QuestType `json:"type"`
	Title       string    `json:"title"`
	TotalPoints int64     `json:"total_points"`
	Active      bool      `json:"active"`
}

// QuestTask is one step of a quest template.
type QuestTask struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Text       string `json:"text"`
	Points     int64  `json:"points"`
	OrderIndex int    `json:"order_index"`
}

// TaskState is a task joined with one user quest's completion state.
type TaskState struct {
	QuestTask
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// Quest is a live quest instance for a user, with its tasks.
// CompletedAt is set exactly once, when the last task completes; the
// completion bonus is awarded in the same transaction.
type Quest struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	TemplateID  string      `json:"template_id"`
	Type        QuestType   `json:"type"`
	Title       string      `json:"title"`
	TotalPoints int64       `json:"total_points"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	CompletedAt time.Time   `json:"completed_at,omitzero"`
	Tasks       []TaskState `json:"tasks,omitempty"`
}

// IsExpired reports whether the quest deadline has passed.
func (q Quest) IsExpired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// Completed reports whether every task has been finished.
func (q Quest) Completed() bool { return !q.CompletedAt.IsZero() }

// ProgressPct returns completion percentage over the quest's tasks (0–100).
func (q Quest) ProgressPct() float64 {
	if len(q.Tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range q.Tasks {
		if t.Completed {
			done++
		}
	}
	return float64(done) / float64(len(q.Tasks)) * 100.0
}

// ─── Leaderboard Types ──────────────────────────────────────────────────────

// BoardType selects a leaderboard partition.
type BoardType string

const (
	BoardPoints  BoardType = "points"  // all-time total points
	BoardMonthly BoardType = "monthly" // points earned this calendar month
	BoardDinners BoardType = "dinners" // dinners attended
)

// LeaderboardEntry is one ranked row of a board snapshot joined with user
// display info. Ties are broken by user id ascending, so ranks are stable
// across refreshes of identical state.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Tier        int    `json:"tier"`
	Value       int64  `json:"value"`
	IsMe        bool   `json:"is_me,omitempty"`
}

// ─── Streak Types ───────────────────────────────────────────────────────────

// Streak tracks weekly activity continuity for one user. LastWeek/LastYear
// record the ISO week of the most recent bonus claim; at most one claim per
// ISO week is allowed.
type Streak struct {
	UserID             string    `json:"user_id"`
	CurrentStreak      int       `json:"current_streak"`
	LongestStreak      int       `json:"longest_streak"`
	WeeklyPointsEarned int64     `json:"weekly_points_earned"`
	LastActivityAt     time.Time `json:"last_activity_at,omitzero"`
	LastWeek           int       `json:"last_week"`
	LastYear           int       `json:"last_year"`
	BonusesClaimed     int       `json:"bonuses_claimed"`
}

// ─── Loyalty Types ──────────────────────────────────────────────────────────

// LoyaltyItem is a catalog entry in the points shop. A nil StockQuantity
// means unlimited stock.
type LoyaltyItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Cost          int64  `json:"cost"`
	StockQuantity *int   `json:"stock_quantity,omitempty"`
	Available     bool   `json:"available"`
}

// LoyaltyRedemption records one spend of points against the catalog.
type LoyaltyRedemption struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ItemID      string    `json:"item_id"`
	Code        string    `json:"code"`
	PointsSpent int64     `json:"points_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

// ─── Identity Types ─────────────────────────────────────────────────────────

// User carries the display info joined into leaderboards.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is an opaque bearer token bound to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
