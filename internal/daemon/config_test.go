package daemon

import (
	"log/slog"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("FARE_HOME", t.TempDir())
	cfg := DefaultConfig()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 8480 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8480)
	}
	if cfg.Leaderboard.RefreshTTL != "60s" {
		t.Errorf("Leaderboard.RefreshTTL = %q, want %q", cfg.Leaderboard.RefreshTTL, "60s")
	}
	if !cfg.Telemetry.Prometheus {
		t.Error("Telemetry.Prometheus should default on")
	}
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("FARE_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.Port != 8480 {
		t.Errorf("Server.Port = %d, want default 8480", cfg.Server.Port)
	}
}

func TestSaveThenLoadConfig(t *testing.T) {
	t.Setenv("FARE_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Server.Port = 9000
	cfg.Leaderboard.RefreshTTL = "5m"
	cfg.Logging.Level = "debug"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", got.Server.Port)
	}
	if got.Leaderboard.RefreshTTL != "5m" {
		t.Errorf("RefreshTTL = %q, want 5m", got.Leaderboard.RefreshTTL)
	}
	if got.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", got.Logging.Level)
	}
}

func TestRefreshTTL_Parsing(t *testing.T) {
	cfg := Config{Leaderboard: LeaderboardConfig{RefreshTTL: "90s"}}
	if got := cfg.RefreshTTL(); got != 90*time.Second {
		t.Errorf("RefreshTTL() = %v, want 90s", got)
	}

	cfg.Leaderboard.RefreshTTL = "not-a-duration"
	if got := cfg.RefreshTTL(); got != time.Minute {
		t.Errorf("RefreshTTL(invalid) = %v, want 1m fallback", got)
	}

	cfg.Leaderboard.RefreshTTL = "-5s"
	if got := cfg.RefreshTTL(); got != time.Minute {
		t.Errorf("RefreshTTL(negative) = %v, want 1m fallback", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		" Debug ": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
