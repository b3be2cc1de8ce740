// Package loyalty runs the point-redemption shop. Redeeming is the only
// operation that spends points, and the whole of it (availability check,
// stock decrement, balance check, ledger debit, redemption record) commits
// or rolls back as one transaction.
package loyalty

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/metrics"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// Service is the loyalty shop.
type Service struct {
	db     *sqlite.DB
	ledger *ledger.Service
}

// New creates a loyalty service.
func New(db *sqlite.DB, lg *ledger.Service) *Service {
	return &Service{db: db, ledger: lg}
}

// Items returns the full catalog, cheapest first.
func (s *Service) Items() ([]domain.LoyaltyItem, error) {
	return s.db.LoyaltyItems()
}

// Redemptions returns a user's redemption history, newest first.
func (s *Service) Redemptions(userID string) ([]domain.LoyaltyRedemption, error) {
	return s.db.Redemptions(userID, 50)
}

// Redeem spends points on one catalog item and returns the redemption record
// and the remaining balance. Stock-limited items decrement conditionally, so
// two racing claims on the last unit resolve to exactly one redemption and
// one ErrOutOfStock.
func (s *Service) Redeem(userID, itemID string) (*domain.LoyaltyRedemption, int64, error) {
	now := time.Now().UTC()
	var (
		redemption domain.LoyaltyRedemption
		remaining  int64
	)

	err := s.db.WithTx(func(tx *sqlite.Tx) error {
		item, err := tx.LoyaltyItemRow(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		if !item.Available {
			return domain.ErrItemUnavailable
		}

		if item.StockQuantity != nil {
			taken, err := tx.DecrementStock(itemID)
			if err != nil {
				return err
			}
			if !taken {
				return domain.ErrOutOfStock
			}
		}

		// The debit also re-checks the balance under the same
		// transaction, so a failed check rolls the decrement back too.
		if _, err := s.ledger.AwardTx(tx, userID, -item.Cost,
			domain.TxLoyaltyRedemption, item.Name, itemID, "loyalty_item"); err != nil {
			return err
		}

		redemption = domain.LoyaltyRedemption{
			ID:          uuid.NewString(),
			UserID:      userID,
			ItemID:      itemID,
			Code:        redemptionCode(),
			PointsSpent: item.Cost,
			CreatedAt:   now,
		}
		if err := tx.InsertRedemption(redemption); err != nil {
			return fmt.Errorf("record redemption: %w", err)
		}

		stats, err := tx.StatsRow(userID)
		if err != nil {
			return err
		}
		remaining = stats.TotalPoints
		return nil
	})
	if err != nil {
		switch err {
		case domain.ErrItemNotFound, domain.ErrItemUnavailable:
			metrics.RedemptionFailures.WithLabelValues("unavailable").Inc()
		case domain.ErrOutOfStock:
			metrics.RedemptionFailures.WithLabelValues("out_of_stock").Inc()
		case domain.ErrInsufficientPoints:
			metrics.RedemptionFailures.WithLabelValues("insufficient_points").Inc()
		}
		return nil, 0, err
	}

	metrics.Redemptions.Inc()
	return &redemption, remaining, nil
}

// redemptionCode derives a short voucher code from a fresh UUID.
func redemptionCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "FARE-" + strings.ToUpper(raw[:8])
}
