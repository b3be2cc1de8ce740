// Package activity translates product events into ledger awards. Each hook
// groups its awards into one transaction, so a booking that also triggers a
// group bonus and a first-dinner bonus lands atomically, then re-evaluates
// achievements against the new stats.
package activity

import (
	"fmt"

	"github.com/sharedtable/fare/internal/app/engagement"
	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// Award amounts per event.
const (
	bookingPoints     = 50
	groupBonusPerSeat = 5
	firstDinnerPoints = 100
	reviewPoints      = 25
	referralPoints    = 100
	hostingPoints     = 50
)

// Service owns the event hooks. Each hook returns any achievements the event
// unlocked, so callers can surface them to the user.
type Service struct {
	db           *sqlite.DB
	ledger       *ledger.Service
	achievements *engagement.AchievementService
}

// New creates an activity service.
func New(db *sqlite.DB, lg *ledger.Service, ach *engagement.AchievementService) *Service {
	return &Service{db: db, ledger: lg, achievements: ach}
}

// OnBookingCompleted credits an attended dinner. Bookings with more than one
// guest add a group bonus per extra seat, and a user's first dinner adds a
// one-time welcome bonus.
func (s *Service) OnBookingCompleted(userID, bookingID string, guestCount int) ([]domain.AchievementDef, error) {
	err := s.db.WithTx(func(tx *sqlite.Tx) error {
		if _, err := s.ledger.AwardTx(tx, userID, bookingPoints,
			domain.TxBookingCompleted, "Dinner attended", bookingID, "booking"); err != nil {
			return err
		}

		if guestCount > 1 {
			bonus := int64(guestCount-1) * groupBonusPerSeat
			desc := fmt.Sprintf("Group dinner bonus (%d guests)", guestCount)
			if _, err := s.ledger.AwardTx(tx, userID, bonus,
				domain.TxGroupBonus, desc, bookingID, "booking"); err != nil {
				return err
			}
		}

		stats, err := tx.StatsRow(userID)
		if err != nil {
			return err
		}
		if stats.DinnersAttended == 1 {
			if _, err := s.ledger.AwardTx(tx, userID, firstDinnerPoints,
				domain.TxFirstDinner, "First dinner bonus", bookingID, "booking"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.achievements.Evaluate(userID)
}

// OnReviewPosted credits a published review.
func (s *Service) OnReviewPosted(userID, reviewID string) ([]domain.AchievementDef, error) {
	if _, err := s.ledger.Award(userID, reviewPoints,
		domain.TxReviewPosted, "Review posted", reviewID, "review"); err != nil {
		return nil, err
	}
	return s.achievements.Evaluate(userID)
}

// OnReferralSuccess credits the referrer once the referred user completes
// their first dinner.
func (s *Service) OnReferralSuccess(referrerID, referredID string) ([]domain.AchievementDef, error) {
	if _, err := s.ledger.Award(referrerID, referralPoints,
		domain.TxReferralSuccess, "Referral joined their first dinner", referredID, "user"); err != nil {
		return nil, err
	}
	return s.achievements.Evaluate(referrerID)
}

// OnDinnerHosted credits hosting a dinner.
func (s *Service) OnDinnerHosted(userID, dinnerID string) ([]domain.AchievementDef, error) {
	if _, err := s.ledger.Award(userID, hostingPoints,
		domain.TxDinnerHosted, "Dinner hosted", dinnerID, "dinner"); err != nil {
		return nil, err
	}
	return s.achievements.Evaluate(userID)
}
