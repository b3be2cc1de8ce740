// Package metrics provides Prometheus metrics for the gamification engine:
// counters and gauges for ledger awards, achievements, quests, streaks,
// loyalty redemptions, and leaderboard refreshes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// PointsAwarded tracks points moved through the ledger by transaction type.
// Spends are counted by their absolute value under their own type.
var PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "points_awarded_total",
	Help:      "Total points moved through the ledger by transaction type.",
}, []string{"type"})

// LedgerTransactions tracks ledger rows written.
var LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "ledger_transactions_total",
	Help:      "Total ledger transactions recorded.",
}, []string{"type"})

// ─── Engagement ─────────────────────────────────────────────────────────────

// AchievementsUnlocked tracks achievement unlocks by category.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
}, []string{"category"})

// QuestsCompleted tracks completed quest instances by cadence.
var QuestsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "quests_completed_total",
	Help:      "Total quests fully completed.",
}, []string{"type"})

// QuestsIssued tracks quest instances created for users.
var QuestsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "quests_issued_total",
	Help:      "Total quest instances issued.",
}, []string{"type"})

// StreakClaims tracks successful weekly streak bonus claims.
var StreakClaims = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "streak_claims_total",
	Help:      "Total weekly streak bonuses claimed.",
})

// ─── Loyalty ────────────────────────────────────────────────────────────────

// Redemptions tracks successful loyalty redemptions.
var Redemptions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "loyalty_redemptions_total",
	Help:      "Total successful loyalty redemptions.",
})

// RedemptionFailures tracks rejected redemptions by reason.
var RedemptionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "loyalty_redemption_failures_total",
	Help:      "Total rejected loyalty redemptions by reason.",
}, []string{"reason"})

// ─── Leaderboard ────────────────────────────────────────────────────────────

// LeaderboardRefreshes tracks snapshot rebuilds by board type.
var LeaderboardRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fare",
	Name:      "leaderboard_refreshes_total",
	Help:      "Total leaderboard snapshot rebuilds.",
}, []string{"board"})

// LeaderboardRefreshSeconds tracks snapshot rebuild duration.
var LeaderboardRefreshSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "fare",
	Name:      "leaderboard_refresh_seconds",
	Help:      "Leaderboard snapshot rebuild duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
})
