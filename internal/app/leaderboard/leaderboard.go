// Package leaderboard serves ranked boards from materialized snapshots.
// Reads never rank live rows; a stale partition is rebuilt wholesale in one
// transaction, then served from the cache like any other read.
package leaderboard

import (
	"time"

	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/metrics"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// DefaultLimit is the number of entries returned when the caller does not ask
// for a specific page size.
const DefaultLimit = 100

// Service refreshes and reads leaderboard snapshots.
type Service struct {
	db  *sqlite.DB
	ttl time.Duration
}

// New creates a leaderboard service. ttl bounds snapshot staleness; zero or
// negative falls back to one minute.
func New(db *sqlite.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{db: db, ttl: ttl}
}

// Read returns up to limit entries of the requested board, refreshing the
// snapshot first when it is older than the TTL. viewerID marks the caller's
// own row with IsMe.
func (s *Service) Read(bt domain.BoardType, viewerID string, limit int) ([]domain.LeaderboardEntry, error) {
	switch bt {
	case domain.BoardPoints, domain.BoardMonthly, domain.BoardDinners:
	default:
		return nil, domain.ErrUnknownBoard
	}
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	now := time.Now().UTC()
	periodStart := boardPeriodStart(bt, now)

	refreshed, err := s.db.BoardRefreshedAt(bt, periodStart)
	if err != nil {
		return nil, err
	}
	if now.Sub(refreshed) > s.ttl {
		if err := s.refresh(bt, periodStart, now); err != nil {
			return nil, err
		}
	}

	entries, err := s.db.BoardEntries(bt, periodStart, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].UserID == viewerID {
			entries[i].IsMe = true
		}
	}
	return entries, nil
}

// refresh rebuilds one snapshot partition. Delete and fill share a
// transaction, so concurrent readers see either the old snapshot or the new
// one, never a half-built board.
func (s *Service) refresh(bt domain.BoardType, periodStart, now time.Time) error {
	start := time.Now()
	err := s.db.WithTx(func(tx *sqlite.Tx) error {
		if err := tx.DeleteBoard(bt, periodStart); err != nil {
			return err
		}
		if bt == domain.BoardMonthly {
			return tx.FillBoardMonthly(periodStart, now)
		}
		return tx.FillBoardFromStats(bt, periodStart, now)
	})
	if err != nil {
		return err
	}
	metrics.LeaderboardRefreshes.WithLabelValues(string(bt)).Inc()
	metrics.LeaderboardRefreshSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// boardPeriodStart maps a board to its snapshot partition key. All-time
// boards share the epoch partition; the monthly board partitions on the
// first of the current calendar month.
func boardPeriodStart(bt domain.BoardType, now time.Time) time.Time {
	if bt == domain.BoardMonthly {
		return domain.StartOfMonth(now)
	}
	return time.Unix(0, 0).UTC()
}
