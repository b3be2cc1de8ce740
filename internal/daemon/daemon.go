package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sharedtable/fare/internal/api"
	"github.com/sharedtable/fare/internal/app/activity"
	"github.com/sharedtable/fare/internal/app/engagement"
	"github.com/sharedtable/fare/internal/app/leaderboard"
	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/app/loyalty"
	"github.com/sharedtable/fare/internal/health"
	_ "github.com/sharedtable/fare/internal/infra/metrics" // Register Prometheus metrics
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// Daemon is the Fare gamification runtime. It wires together all services.
type Daemon struct {
	Config Config
	Log    *slog.Logger
	DB     *sqlite.DB
	Server *api.Server

	Ledger      *ledger.Service
	Achievement *engagement.AchievementService
	Quest       *engagement.QuestService
	Streak      *engagement.StreakService
	Board       *leaderboard.Service
	Shop        *loyalty.Service
	Activity    *activity.Service
	Health      *health.Checker

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	log := NewLogger(cfg.Logging)

	dbDir := cfg.Database.Dir
	if dbDir == "" {
		dbDir = fareHome()
	}
	db, err := sqlite.Open(dbDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	lg := ledger.NewService(db)
	ach := engagement.NewAchievementService(db, lg)
	quests := engagement.NewQuestService(db, lg)
	streaks := engagement.NewStreakService(db, lg)
	boards := leaderboard.New(db, cfg.RefreshTTL())
	shop := loyalty.New(db, lg)
	act := activity.New(db, lg, ach)

	// The quest catalog must exist before the first ActiveQuests call.
	if err := quests.EnsureCatalog(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed quest catalog: %w", err)
	}

	checker := health.NewChecker(db, dbDir, func() (string, error) {
		users, err := db.ListUsers()
		if err != nil || len(users) == 0 {
			return "", err
		}
		return users[0].ID, nil
	})

	srv := api.NewServer(db, log, lg, ach, quests, streaks, boards, shop, act)
	srv.SetHealth(checker)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:      cfg,
		Log:         log,
		DB:          db,
		Server:      srv,
		Ledger:      lg,
		Achievement: ach,
		Quest:       quests,
		Streak:      streaks,
		Board:       boards,
		Shop:        shop,
		Activity:    act,
		Health:      checker,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.Server.Host, d.Config.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	d.Log.Info("fare serving", "addr", addr, "metrics", d.Config.Telemetry.Prometheus)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
