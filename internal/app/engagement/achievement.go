// Package engagement implements the Fare engagement engine: achievements,
// quests, and weekly streaks. All three are consumers of the points ledger;
// they never mutate the stats projection directly.
package engagement

import (
	"fmt"
	"time"

	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/metrics"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// AchievementService evaluates achievement progress against the stats
// projection and unlocks idempotently. Evaluation runs after every
// stats-mutating event: recheck-on-every-mutation rather than targeted
// triggers, trading efficiency for correctness.
type AchievementService struct {
	db          *sqlite.DB
	ledger      *ledger.Service
	definitions []domain.AchievementDef
}

// NewAchievementService creates an achievement service with the full catalog.
func NewAchievementService(db *sqlite.DB, lg *ledger.Service) *AchievementService {
	return &AchievementService{
		db:          db,
		ledger:      lg,
		definitions: AllAchievements(),
	}
}

// Evaluate recomputes progress for every active achievement and unlocks the
// ones whose threshold is reached. Unlocking sets unlocked_at and awards the
// achievement's points in one transaction; re-invocation for an already
// unlocked achievement is a no-op.
func (a *AchievementService) Evaluate(userID string) ([]domain.AchievementDef, error) {
	var unlocked []domain.AchievementDef

	// Unlock awards feed back into the stats that milestone achievements are
	// computed from, so a single pass over a stale snapshot can miss a
	// threshold crossed mid-pass. Repeat until a pass unlocks nothing; the
	// catalog size bounds the loop because every extra pass unlocks at least
	// one achievement it has not unlocked before.
	for range a.definitions {
		pass, err := a.evaluatePass(userID)
		if err != nil {
			return nil, err
		}
		unlocked = append(unlocked, pass...)
		if len(pass) == 0 {
			break
		}
	}
	return unlocked, nil
}

func (a *AchievementService) evaluatePass(userID string) ([]domain.AchievementDef, error) {
	stats, err := a.ledger.Stats(userID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	existing, err := a.db.UserAchievements(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	var unlocked []domain.AchievementDef
	for _, def := range a.definitions {
		if !def.Active || def.Progress == nil {
			continue
		}
		if ua, ok := existing[def.ID]; ok && ua.Unlocked() {
			continue
		}

		progress := def.Progress(*stats)
		if progress > def.MaxProgress {
			progress = def.MaxProgress
		}

		err := a.db.WithTx(func(tx *sqlite.Tx) error {
			if err := tx.UpsertAchievementProgress(userID, def.ID, progress); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			if progress < def.MaxProgress {
				return nil
			}

			isNew, err := tx.UnlockAchievement(userID, def.ID, time.Now().UTC())
			if err != nil {
				return err
			}
			if !isNew {
				return nil // lost the race; another evaluation unlocked it
			}

			if def.Points > 0 {
				_, err = a.ledger.AwardTx(tx, userID, def.Points,
					domain.TxAchievementUnlocked, def.Name, def.ID, "achievement")
				if err != nil {
					return fmt.Errorf("award achievement points: %w", err)
				}
			}
			unlocked = append(unlocked, def)
			metrics.AchievementsUnlocked.WithLabelValues(string(def.Category)).Inc()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return unlocked, nil
}

// List returns every active definition joined with the user's progress.
func (a *AchievementService) List(userID string) ([]AchievementView, error) {
	existing, err := a.db.UserAchievements(userID)
	if err != nil {
		return nil, err
	}

	views := make([]AchievementView, 0, len(a.definitions))
	for _, def := range a.definitions {
		if !def.Active {
			continue
		}
		v := AchievementView{Def: def}
		if ua, ok := existing[def.ID]; ok {
			v.CurrentProgress = ua.CurrentProgress
			v.UnlockedAt = ua.UnlockedAt
		}
		views = append(views, v)
	}
	return views, nil
}

// SetProgress overwrites stored progress for one achievement and unlocks if
// the threshold is reached. Serves the explicit progress endpoint for
// achievements tracked client-side rather than derived from stats.
func (a *AchievementService) SetProgress(userID, achievementID string, progress int64) (*AchievementView, error) {
	def, ok := a.definition(achievementID)
	if !ok || !def.Active {
		return nil, domain.ErrAchievementNotFound
	}
	if progress < 0 {
		progress = 0
	}
	if progress > def.MaxProgress {
		progress = def.MaxProgress
	}

	view := AchievementView{Def: def, CurrentProgress: progress}
	err := a.db.WithTx(func(tx *sqlite.Tx) error {
		if err := tx.UpsertAchievementProgress(userID, achievementID, progress); err != nil {
			return err
		}
		if progress < def.MaxProgress {
			return nil
		}
		now := time.Now().UTC()
		isNew, err := tx.UnlockAchievement(userID, achievementID, now)
		if err != nil {
			return err
		}
		if !isNew {
			return nil
		}
		view.UnlockedAt = now
		if def.Points > 0 {
			_, err = a.ledger.AwardTx(tx, userID, def.Points,
				domain.TxAchievementUnlocked, def.Name, def.ID, "achievement")
			if err != nil {
				return err
			}
		}
		metrics.AchievementsUnlocked.WithLabelValues(string(def.Category)).Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Definitions returns the full catalog (for display).
func (a *AchievementService) Definitions() []domain.AchievementDef {
	return a.definitions
}

func (a *AchievementService) definition(id string) (domain.AchievementDef, bool) {
	for _, def := range a.definitions {
		if def.ID == id {
			return def, true
		}
	}
	return domain.AchievementDef{}, false
}

// AchievementView is a definition joined with one user's progress.
type AchievementView struct {
	Def             domain.AchievementDef `json:"definition"`
	CurrentProgress int64                 `json:"current_progress"`
	UnlockedAt      time.Time             `json:"unlocked_at,omitzero"`
}

// ─── Achievement Definitions ────────────────────────────────────────────────
// Stat-derived achievements across 4 categories. Progress is recomputed from
// the UserStats snapshot on every evaluation.

// AllAchievements returns the full achievement catalog.
func AllAchievements() []domain.AchievementDef {
	dinners := func(s domain.UserStats) int64 { return int64(s.DinnersAttended) }
	hosted := func(s domain.UserStats) int64 { return int64(s.DinnersHosted) }
	reviews := func(s domain.UserStats) int64 { return int64(s.ReviewsPosted) }
	referrals := func(s domain.UserStats) int64 { return int64(s.ReferralsSuccessful) }
	earned := func(s domain.UserStats) int64 { return s.TotalPointsEarned }

	return []domain.AchievementDef{
		// ── Dining ─────────────────────────────────────────────────────
		{
			ID: "first_table", Name: "First Table", Category: domain.CatDining,
			Icon: "🍽️", Points: 100, MaxProgress: 1, Progress: dinners, Active: true,
		},
		{
			ID: "dinners_5", Name: "Familiar Face", Category: domain.CatDining,
			Icon: "🥂", Points: 150, MaxProgress: 5, Progress: dinners, Active: true,
		},
		{
			ID: "dinners_20", Name: "Table Fixture", Category: domain.CatDining,
			Icon: "🍷", Points: 400, MaxProgress: 20, Progress: dinners, Active: true,
		},
		{
			ID: "dinners_50", Name: "Fifty Plates", Category: domain.CatDining,
			Icon: "🏆", Points: 1000, MaxProgress: 50, Progress: dinners, Active: true,
		},

		// ── Social ─────────────────────────────────────────────────────
		{
			ID: "first_host", Name: "Open Door", Category: domain.CatSocial,
			Icon: "🏠", Points: 200, MaxProgress: 1, Progress: hosted, Active: true,
		},
		{
			ID: "hosts_10", Name: "House Favorite", Category: domain.CatSocial,
			Icon: "🎉", Points: 500, MaxProgress: 10, Progress: hosted, Active: true,
		},
		{
			ID: "first_referral", Name: "Bring a Friend", Category: domain.CatSocial,
			Icon: "🤝", Points: 150, MaxProgress: 1, Progress: referrals, Active: true,
		},
		{
			ID: "referrals_5", Name: "Connector", Category: domain.CatSocial,
			Icon: "📢", Points: 400, MaxProgress: 5, Progress: referrals, Active: true,
		},

		// ── Reviews ────────────────────────────────────────────────────
		{
			ID: "first_review", Name: "Critic's Debut", Category: domain.CatReviews,
			Icon: "✍️", Points: 50, MaxProgress: 1, Progress: reviews, Active: true,
		},
		{
			ID: "reviews_10", Name: "Trusted Voice", Category: domain.CatReviews,
			Icon: "⭐", Points: 250, MaxProgress: 10, Progress: reviews, Active: true,
		},
		{
			ID: "reviews_25", Name: "Resident Critic", Category: domain.CatReviews,
			Icon: "📝", Points: 600, MaxProgress: 25, Progress: reviews, Active: true,
		},

		// ── Milestones ─────────────────────────────────────────────────
		{
			ID: "points_500", Name: "Enthusiast", Category: domain.CatMilestones,
			Icon: "💫", Points: 100, MaxProgress: 500, Progress: earned, Active: true,
		},
		{
			ID: "points_1500", Name: "Gourmand", Category: domain.CatMilestones,
			Icon: "🌟", Points: 250, MaxProgress: 1500, Progress: earned, Active: true,
		},
		{
			ID: "points_4000", Name: "Connoisseur", Category: domain.CatMilestones,
			Icon: "👑", Points: 500, MaxProgress: 4000, Progress: earned, Active: true,
		},
	}
}
