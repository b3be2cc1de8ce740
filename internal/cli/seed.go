package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sharedtable/fare/internal/app/engagement"
	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/daemon"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo users, session tokens, and the loyalty catalog",
	Long: `Seed writes a small demo dataset into the local database: three users
with printed session tokens, the default quest catalog, and a starter
loyalty catalog. Safe to run repeatedly.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Database.Dir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	users := []domain.User{
		{ID: "demo-alice", DisplayName: "Alice Chen", AvatarURL: "https://i.pravatar.cc/150?u=alice", CreatedAt: now},
		{ID: "demo-bruno", DisplayName: "Bruno Costa", AvatarURL: "https://i.pravatar.cc/150?u=bruno", CreatedAt: now},
		{ID: "demo-chiara", DisplayName: "Chiara Ricci", AvatarURL: "https://i.pravatar.cc/150?u=chiara", CreatedAt: now},
	}
	for _, u := range users {
		if err := db.UpsertUser(u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		token := uuid.NewString()
		if err := db.InsertSession(domain.Session{Token: token, UserID: u.ID, CreatedAt: now}); err != nil {
			return fmt.Errorf("seed session for %s: %w", u.ID, err)
		}
		fmt.Printf("%-12s token: %s\n", u.ID, token)
	}

	quests := engagement.NewQuestService(db, ledger.NewService(db))
	if err := quests.EnsureCatalog(); err != nil {
		return err
	}

	for _, item := range seedLoyaltyItems() {
		if err := db.UpsertLoyaltyItem(item); err != nil {
			return fmt.Errorf("seed item %s: %w", item.ID, err)
		}
	}

	fmt.Println("seeded quest catalog and loyalty items")
	return nil
}

func seedLoyaltyItems() []domain.LoyaltyItem {
	five := 5
	return []domain.LoyaltyItem{
		{ID: "free-drink", Name: "Free welcome drink", Description: "One complimentary drink at your next dinner", Cost: 200, Available: true},
		{ID: "priority-booking", Name: "Priority booking week", Description: "Front of the queue for seven days", Cost: 500, Available: true},
		{ID: "chefs-table", Name: "Chef's table seat", Description: "A seat at a partner chef's table", Cost: 1500, StockQuantity: &five, Available: true},
	}
}
