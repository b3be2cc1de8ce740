package engagement

import (
	"fmt"
	"time"

	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/metrics"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// weeklyBonusPoints is awarded once per ISO week per user.
const weeklyBonusPoints = 50

// StreakService tracks consecutive weekly engagement. Weeks follow the ISO
// 8601 calendar in UTC, so a streak is unambiguous across year boundaries.
type StreakService struct {
	db     *sqlite.DB
	ledger *ledger.Service
}

// NewStreakService creates a streak service.
func NewStreakService(db *sqlite.DB, lg *ledger.Service) *StreakService {
	return &StreakService{db: db, ledger: lg}
}

// Current returns the user's streak state, zero-valued for new users.
func (s *StreakService) Current(userID string) (domain.Streak, error) {
	return s.db.Streak(userID)
}

// ClaimWeeklyBonus awards this week's streak bonus. A second claim inside the
// same ISO week returns ErrStreakAlreadyClaimed and awards nothing. The
// streak counter extends only when the previous claim landed in the
// immediately preceding ISO week; otherwise it restarts at one.
func (s *StreakService) ClaimWeeklyBonus(userID string) (domain.Streak, error) {
	now := time.Now().UTC()
	year, week := domain.ISOWeekOf(now)

	var out domain.Streak
	err := s.db.WithTx(func(tx *sqlite.Tx) error {
		if err := tx.EnsureStreak(userID); err != nil {
			return fmt.Errorf("ensure streak: %w", err)
		}
		st, err := tx.StreakRow(userID)
		if err != nil {
			return err
		}

		if st.BonusesClaimed > 0 && domain.SameISOWeek(st.LastYear, st.LastWeek, year, week) {
			return domain.ErrStreakAlreadyClaimed
		}

		prevYear, prevWeek := domain.PreviousISOWeek(now)
		if st.BonusesClaimed > 0 && domain.SameISOWeek(st.LastYear, st.LastWeek, prevYear, prevWeek) {
			st.CurrentStreak++
		} else {
			st.CurrentStreak = 1
		}
		if st.CurrentStreak > st.LongestStreak {
			st.LongestStreak = st.CurrentStreak
		}

		if _, err := s.ledger.AwardTx(tx, userID, weeklyBonusPoints,
			domain.TxWeeklyStreak,
			fmt.Sprintf("Weekly streak bonus (week %d)", week),
			"", ""); err != nil {
			return fmt.Errorf("award streak bonus: %w", err)
		}

		st.WeeklyPointsEarned = weeklyBonusPoints
		st.LastActivityAt = now
		st.LastWeek = week
		st.LastYear = year
		st.BonusesClaimed++
		if err := tx.SaveStreak(*st); err != nil {
			return fmt.Errorf("save streak: %w", err)
		}
		out = *st
		return nil
	})
	if err != nil {
		return domain.Streak{}, err
	}
	metrics.StreakClaims.Inc()
	return out, nil
}
