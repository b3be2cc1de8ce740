package loyalty

import (
	"errors"
	"strings"
	"testing"

	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

func newTestShop(t *testing.T) (*Service, *sqlite.DB, *ledger.Service) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	lg := ledger.NewService(db)
	return New(db, lg), db, lg
}

func seedItem(t *testing.T, db *sqlite.DB, item domain.LoyaltyItem) {
	t.Helper()
	if err := db.UpsertLoyaltyItem(item); err != nil {
		t.Fatalf("UpsertLoyaltyItem() error: %v", err)
	}
}

func TestRedeem_HappyPath(t *testing.T) {
	svc, db, lg := newTestShop(t)
	seedItem(t, db, domain.LoyaltyItem{ID: "drink", Name: "Free drink", Cost: 200, Available: true})
	lg.Award("u1", 500, domain.TxBookingCompleted, "", "", "")

	red, remaining, err := svc.Redeem("u1", "drink")
	if err != nil {
		t.Fatalf("Redeem() error: %v", err)
	}
	if remaining != 300 {
		t.Errorf("remaining = %d, want 300", remaining)
	}
	if red.PointsSpent != 200 || !strings.HasPrefix(red.Code, "FARE-") {
		t.Errorf("redemption = %+v, want 200 spent with FARE- code", red)
	}

	history, err := svc.Redemptions("u1")
	if err != nil {
		t.Fatalf("Redemptions() error: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("len(history) = %d, want 1", len(history))
	}
}

func TestRedeem_InsufficientPointsLeavesEverything(t *testing.T) {
	svc, db, lg := newTestShop(t)
	ten := 10
	seedItem(t, db, domain.LoyaltyItem{ID: "seat", Name: "Chef seat", Cost: 500, StockQuantity: &ten, Available: true})
	lg.Award("u1", 450, domain.TxBookingCompleted, "", "", "")

	_, _, err := svc.Redeem("u1", "seat")
	if !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Fatalf("error = %v, want ErrInsufficientPoints", err)
	}

	// Balance, stock, and history must all be untouched.
	stats, _ := lg.Stats("u1")
	if stats.TotalPoints != 450 {
		t.Errorf("TotalPoints = %d, want 450", stats.TotalPoints)
	}
	items, _ := svc.Items()
	if *items[0].StockQuantity != 10 {
		t.Errorf("stock = %d, want 10 (rolled back)", *items[0].StockQuantity)
	}
	history, _ := svc.Redemptions("u1")
	if len(history) != 0 {
		t.Errorf("len(history) = %d, want 0", len(history))
	}
}

func TestRedeem_LastUnitThenOutOfStock(t *testing.T) {
	svc, db, lg := newTestShop(t)
	one := 1
	seedItem(t, db, domain.LoyaltyItem{ID: "seat", Name: "Last seat", Cost: 100, StockQuantity: &one, Available: true})
	lg.Award("u1", 1000, domain.TxBookingCompleted, "", "", "")

	if _, _, err := svc.Redeem("u1", "seat"); err != nil {
		t.Fatalf("first Redeem() error: %v", err)
	}

	_, _, err := svc.Redeem("u1", "seat")
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("second Redeem() error = %v, want ErrOutOfStock", err)
	}

	items, _ := svc.Items()
	if *items[0].StockQuantity != 0 {
		t.Errorf("stock = %d, want exactly 0", *items[0].StockQuantity)
	}
}

func TestRedeem_UnlimitedStock(t *testing.T) {
	svc, db, lg := newTestShop(t)
	seedItem(t, db, domain.LoyaltyItem{ID: "drink", Name: "Free drink", Cost: 50, Available: true})
	lg.Award("u1", 200, domain.TxBookingCompleted, "", "", "")

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Redeem("u1", "drink"); err != nil {
			t.Fatalf("Redeem() error: %v", err)
		}
	}

	stats, _ := lg.Stats("u1")
	if stats.TotalPoints != 50 {
		t.Errorf("TotalPoints = %d, want 50 after three redemptions", stats.TotalPoints)
	}
}

func TestRedeem_UnknownItem(t *testing.T) {
	svc, _, lg := newTestShop(t)
	lg.Award("u1", 500, domain.TxBookingCompleted, "", "", "")

	_, _, err := svc.Redeem("u1", "ghost")
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("error = %v, want ErrItemNotFound", err)
	}
}

func TestRedeem_UnavailableItem(t *testing.T) {
	svc, db, lg := newTestShop(t)
	seedItem(t, db, domain.LoyaltyItem{ID: "retired", Name: "Retired perk", Cost: 100, Available: false})
	lg.Award("u1", 500, domain.TxBookingCompleted, "", "", "")

	_, _, err := svc.Redeem("u1", "retired")
	if !errors.Is(err, domain.ErrItemUnavailable) {
		t.Errorf("error = %v, want ErrItemUnavailable", err)
	}
}

func TestItems_OrderedByCost(t *testing.T) {
	svc, db, _ := newTestShop(t)
	seedItem(t, db, domain.LoyaltyItem{ID: "big", Name: "Big", Cost: 900, Available: true})
	seedItem(t, db, domain.LoyaltyItem{ID: "small", Name: "Small", Cost: 100, Available: true})

	items, err := svc.Items()
	if err != nil {
		t.Fatalf("Items() error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "small" {
		t.Errorf("items = %+v, want cheapest first", items)
	}
}
