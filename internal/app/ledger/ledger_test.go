package ledger

import (
	"errors"
	"testing"

	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db)
}

// ─── Awards ─────────────────────────────────────────────────────────────────

func TestAward_AppendsAndProjects(t *testing.T) {
	svc := newTestService(t)

	tx, err := svc.Award("u1", 50, domain.TxBookingCompleted, "Dinner attended", "b1", "booking")
	if err != nil {
		t.Fatalf("Award() error: %v", err)
	}
	if tx.ID == "" || tx.Points != 50 {
		t.Errorf("transaction = %+v, want 50 points with an ID", tx)
	}

	stats, err := svc.Stats("u1")
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalPoints != 50 {
		t.Errorf("TotalPoints = %d, want 50", stats.TotalPoints)
	}
	if stats.DinnersAttended != 1 {
		t.Errorf("DinnersAttended = %d, want 1", stats.DinnersAttended)
	}
}

func TestAward_ActivityCounters(t *testing.T) {
	svc := newTestService(t)

	svc.Award("u1", 50, domain.TxBookingCompleted, "", "", "")
	svc.Award("u1", 50, domain.TxDinnerHosted, "", "", "")
	svc.Award("u1", 25, domain.TxReviewPosted, "", "", "")
	svc.Award("u1", 100, domain.TxReferralSuccess, "", "", "")

	stats, err := svc.Stats("u1")
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.DinnersAttended != 1 || stats.DinnersHosted != 1 ||
		stats.ReviewsPosted != 1 || stats.ReferralsSuccessful != 1 {
		t.Errorf("counters = %+v, want one of each", stats)
	}
}

func TestAward_InsufficientPointsWritesNothing(t *testing.T) {
	svc := newTestService(t)

	svc.Award("u1", 100, domain.TxBookingCompleted, "", "", "")

	_, err := svc.Award("u1", -200, domain.TxLoyaltyRedemption, "too expensive", "i1", "loyalty_item")
	if !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Fatalf("Award(-200) error = %v, want ErrInsufficientPoints", err)
	}

	stats, _ := svc.Stats("u1")
	if stats.TotalPoints != 100 {
		t.Errorf("TotalPoints after failed spend = %d, want 100", stats.TotalPoints)
	}
	txs, _ := svc.History("u1", 10)
	if len(txs) != 1 {
		t.Errorf("ledger rows after failed spend = %d, want 1", len(txs))
	}
}

func TestAward_SpendToExactlyZero(t *testing.T) {
	svc := newTestService(t)

	svc.Award("u1", 100, domain.TxBookingCompleted, "", "", "")
	if _, err := svc.Award("u1", -100, domain.TxLoyaltyRedemption, "", "", ""); err != nil {
		t.Fatalf("spend to zero should succeed: %v", err)
	}

	stats, _ := svc.Stats("u1")
	if stats.TotalPoints != 0 {
		t.Errorf("TotalPoints = %d, want 0", stats.TotalPoints)
	}
}

// ─── Stats & History ────────────────────────────────────────────────────────

func TestStats_NewUserGetsZeros(t *testing.T) {
	svc := newTestService(t)

	stats, err := svc.Stats("brand-new")
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalPoints != 0 || stats.CurrentTier != 1 {
		t.Errorf("new user stats = %+v, want zeros at tier 1", stats)
	}
}

func TestHistory_NewestFirstWithClamp(t *testing.T) {
	svc := newTestService(t)

	for i := 0; i < 5; i++ {
		svc.Award("u1", 10, domain.TxReviewPosted, "", "", "")
	}

	txs, err := svc.History("u1", 3)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(txs) != 3 {
		t.Errorf("len(History(3)) = %d, want 3", len(txs))
	}

	// Out-of-range limits fall back to the default window.
	txs, _ = svc.History("u1", -1)
	if len(txs) != 5 {
		t.Errorf("len(History(-1)) = %d, want all 5", len(txs))
	}
}

// ─── Reconciliation ─────────────────────────────────────────────────────────

func TestReconcile_ProjectionMatchesReplay(t *testing.T) {
	svc := newTestService(t)

	svc.Award("u1", 50, domain.TxBookingCompleted, "", "", "")
	svc.Award("u1", 25, domain.TxReviewPosted, "", "", "")
	svc.Award("u1", -40, domain.TxLoyaltyRedemption, "", "", "")

	projected, replayed, ok, err := svc.Reconcile("u1")
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if !ok || projected != 35 || replayed != 35 {
		t.Errorf("Reconcile() = (%d, %d, %v), want (35, 35, true)", projected, replayed, ok)
	}
}

func TestReconcile_UnknownUserIsConsistent(t *testing.T) {
	svc := newTestService(t)

	_, _, ok, err := svc.Reconcile("nobody")
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if !ok {
		t.Error("a user with no rows should reconcile cleanly")
	}
}
