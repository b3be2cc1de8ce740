package activity

import (
	"testing"

	"github.com/sharedtable/fare/internal/app/engagement"
	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

func newTestActivity(t *testing.T) (*Service, *ledger.Service) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	lg := ledger.NewService(db)
	ach := engagement.NewAchievementService(db, lg)
	return New(db, lg, ach), lg
}

func TestOnBookingCompleted_FirstGroupDinner(t *testing.T) {
	svc, lg := newTestActivity(t)

	// Three guests: 50 booking + 10 group bonus + 100 first dinner, plus
	// the first_table achievement's 100.
	unlocked, err := svc.OnBookingCompleted("u1", "b1", 3)
	if err != nil {
		t.Fatalf("OnBookingCompleted() error: %v", err)
	}

	stats, _ := lg.Stats("u1")
	if stats.TotalPoints != 260 {
		t.Errorf("TotalPoints = %d, want 260", stats.TotalPoints)
	}
	if stats.DinnersAttended != 1 {
		t.Errorf("DinnersAttended = %d, want 1", stats.DinnersAttended)
	}

	found := false
	for _, def := range unlocked {
		if def.ID == "first_table" {
			found = true
		}
	}
	if !found {
		t.Error("first booking should unlock first_table")
	}

	txs, _ := lg.History("u1", 10)
	if len(txs) != 4 {
		t.Errorf("ledger rows = %d, want 4 (booking, group, first dinner, achievement)", len(txs))
	}
}

func TestOnBookingCompleted_SoloSecondDinner(t *testing.T) {
	svc, lg := newTestActivity(t)

	if _, err := svc.OnBookingCompleted("u1", "b1", 1); err != nil {
		t.Fatalf("first booking error: %v", err)
	}
	before, _ := lg.Stats("u1")

	if _, err := svc.OnBookingCompleted("u1", "b2", 1); err != nil {
		t.Fatalf("second booking error: %v", err)
	}

	after, _ := lg.Stats("u1")
	if after.TotalPoints-before.TotalPoints != bookingPoints {
		t.Errorf("second dinner added %d, want just the booking %d",
			after.TotalPoints-before.TotalPoints, bookingPoints)
	}
	if after.DinnersAttended != 2 {
		t.Errorf("DinnersAttended = %d, want 2", after.DinnersAttended)
	}
}

func TestOnReviewPosted(t *testing.T) {
	svc, lg := newTestActivity(t)

	unlocked, err := svc.OnReviewPosted("u1", "r1")
	if err != nil {
		t.Fatalf("OnReviewPosted() error: %v", err)
	}

	stats, _ := lg.Stats("u1")
	if stats.ReviewsPosted != 1 {
		t.Errorf("ReviewsPosted = %d, want 1", stats.ReviewsPosted)
	}

	// first_review unlocks on the first review.
	found := false
	for _, def := range unlocked {
		if def.ID == "first_review" {
			found = true
		}
	}
	if !found {
		t.Error("first review should unlock first_review")
	}
}

func TestOnReferralSuccess_CreditsReferrer(t *testing.T) {
	svc, lg := newTestActivity(t)

	if _, err := svc.OnReferralSuccess("referrer", "newcomer"); err != nil {
		t.Fatalf("OnReferralSuccess() error: %v", err)
	}

	referrer, _ := lg.Stats("referrer")
	if referrer.ReferralsSuccessful != 1 {
		t.Errorf("ReferralsSuccessful = %d, want 1", referrer.ReferralsSuccessful)
	}

	newcomer, _ := lg.Stats("newcomer")
	if newcomer.TotalPoints != 0 {
		t.Errorf("referred user points = %d, want 0", newcomer.TotalPoints)
	}
}

func TestOnDinnerHosted(t *testing.T) {
	svc, lg := newTestActivity(t)

	if _, err := svc.OnDinnerHosted("u1", "d1"); err != nil {
		t.Fatalf("OnDinnerHosted() error: %v", err)
	}

	stats, _ := lg.Stats("u1")
	if stats.DinnersHosted != 1 {
		t.Errorf("DinnersHosted = %d, want 1", stats.DinnersHosted)
	}
}
