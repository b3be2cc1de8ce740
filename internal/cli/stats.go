package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/daemon"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reconcileCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show a user's points, tier, and activity counters",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	db, lg, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := lg.Stats(args[0])
	if err != nil {
		return err
	}
	tier := domain.TierFor(stats.TotalPoints)

	fmt.Printf("user:      %s\n", stats.UserID)
	fmt.Printf("points:    %d (earned %d, spent %d)\n",
		stats.TotalPoints, stats.TotalPointsEarned, stats.TotalPointsSpent)
	fmt.Printf("tier:      %d %s", tier.Tier, tier.Name)
	if tier.PointsToNext > 0 {
		fmt.Printf(" (%d to next)", tier.PointsToNext)
	}
	fmt.Println()
	fmt.Printf("dinners:   %d attended, %d hosted\n", stats.DinnersAttended, stats.DinnersHosted)
	fmt.Printf("reviews:   %d\n", stats.ReviewsPosted)
	fmt.Printf("referrals: %d\n", stats.ReferralsSuccessful)
	return nil
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <user-id>",
	Short: "Replay a user's ledger and compare against the stats projection",
	Args:  cobra.ExactArgs(1),
	RunE:  runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	db, lg, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	projected, replayed, ok, err := lg.Reconcile(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("MISMATCH: projection %d, ledger replay %d", projected, replayed)
	}
	fmt.Printf("ok: projection %d matches ledger replay\n", projected)
	return nil
}

func openLedger() (*sqlite.DB, *ledger.Service, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlite.Open(cfg.Database.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, ledger.NewService(db), nil
}
