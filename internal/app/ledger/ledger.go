// Package ledger implements the points ledger, the source of truth for
// every point a user earns or spends. Each award appends an immutable
// transaction row and updates the stats projection in the same database
// transaction, so the projection is always reconcilable by replay.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/metrics"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// Service manages the points ledger and its stats projection.
type Service struct {
	db *sqlite.DB
}

// NewService creates a ledger service.
func NewService(db *sqlite.DB) *Service {
	return &Service{db: db}
}

// Award appends a transaction and updates the projection atomically.
// Negative points are a valid spend; a spend that would drive the balance
// below zero fails with domain.ErrInsufficientPoints and writes nothing.
func (s *Service) Award(userID string, points int64, txType domain.TransactionType, description, relatedID, relatedType string) (*domain.PointTransaction, error) {
	var out *domain.PointTransaction
	err := s.db.WithTx(func(tx *sqlite.Tx) error {
		p, err := s.AwardTx(tx, userID, points, txType, description, relatedID, relatedType)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// AwardTx is Award composed into a caller-owned transaction. Quest bonuses,
// streak bonuses, and loyalty spends use this so their completion-state
// mutation and the award commit or roll back together.
func (s *Service) AwardTx(tx *sqlite.Tx, userID string, points int64, txType domain.TransactionType, description, relatedID, relatedType string) (*domain.PointTransaction, error) {
	if err := tx.EnsureStats(userID); err != nil {
		return nil, fmt.Errorf("ensure stats: %w", err)
	}

	if points < 0 {
		stats, err := tx.StatsRow(userID)
		if err != nil {
			return nil, fmt.Errorf("read stats: %w", err)
		}
		if stats.TotalPoints+points < 0 {
			return nil, domain.ErrInsufficientPoints
		}
	}

	p := domain.PointTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Points:      points,
		Type:        txType,
		Description: description,
		RelatedID:   relatedID,
		RelatedType: relatedType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.InsertTransaction(p); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.ApplyStatsDelta(userID, deltaFor(points, txType)); err != nil {
		return nil, err
	}

	metrics.LedgerTransactions.WithLabelValues(string(txType)).Inc()
	if points >= 0 {
		metrics.PointsAwarded.WithLabelValues(string(txType)).Add(float64(points))
	} else {
		metrics.PointsAwarded.WithLabelValues(string(txType)).Add(float64(-points))
	}

	return &p, nil
}

// deltaFor maps one transaction onto its projection increments. The activity
// counters follow the transaction type: a booking increments dinners
// attended, a review increments reviews posted, and so on.
func deltaFor(points int64, txType domain.TransactionType) sqlite.StatsDelta {
	delta := sqlite.StatsDelta{Points: points}
	if points >= 0 {
		delta.Earned = points
	} else {
		delta.Spent = -points
	}

	switch txType {
	case domain.TxBookingCompleted:
		delta.Dinners = 1
	case domain.TxDinnerHosted:
		delta.Hosted = 1
	case domain.TxReviewPosted:
		delta.Reviews = 1
	case domain.TxReferralSuccess:
		delta.Referrals = 1
	}
	return delta
}

// Stats returns the user's projection, lazily creating it on first read so a
// brand-new user sees zeros instead of "not found".
func (s *Service) Stats(userID string) (*domain.UserStats, error) {
	stats, err := s.db.Stats(userID)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		return stats, nil
	}

	err = s.db.WithTx(func(tx *sqlite.Tx) error {
		return tx.EnsureStats(userID)
	})
	if err != nil {
		return nil, fmt.Errorf("initialize stats: %w", err)
	}
	return s.db.Stats(userID)
}

// History returns the user's most recent transactions, newest first.
func (s *Service) History(userID string, limit int) ([]domain.PointTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.db.Transactions(userID, limit)
}

// Reconcile replays the ledger and reports whether the projection matches.
// A mismatch means a stats write escaped the award transaction, which is a bug.
func (s *Service) Reconcile(userID string) (projected, replayed int64, ok bool, err error) {
	stats, err := s.db.Stats(userID)
	if err != nil {
		return 0, 0, false, err
	}
	if stats == nil {
		return 0, 0, true, nil
	}
	sum, err := s.db.SumTransactions(userID)
	if err != nil {
		return 0, 0, false, err
	}
	return stats.TotalPoints, sum, stats.TotalPoints == sum, nil
}
