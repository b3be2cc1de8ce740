// Package api provides the HTTP server for the Fare gamification engine.
// Every gamification response uses a {success, data, error} envelope, and
// every gamification route requires a bearer session token.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sharedtable/fare/internal/app/activity"
	"github.com/sharedtable/fare/internal/app/engagement"
	"github.com/sharedtable/fare/internal/app/leaderboard"
	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/app/loyalty"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/health"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// Server is the Fare HTTP API server.
type Server struct {
	db             *sqlite.DB
	log            *slog.Logger
	ledger         *ledger.Service
	achievements   *engagement.AchievementService
	quests         *engagement.QuestService
	streaks        *engagement.StreakService
	boards         *leaderboard.Service
	shop           *loyalty.Service
	activity       *activity.Service
	health         *health.Checker
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(
	db *sqlite.DB,
	log *slog.Logger,
	lg *ledger.Service,
	ach *engagement.AchievementService,
	quests *engagement.QuestService,
	streaks *engagement.StreakService,
	boards *leaderboard.Service,
	shop *loyalty.Service,
	act *activity.Service,
) *Server {
	return &Server{
		db:           db,
		log:          log,
		ledger:       lg,
		achievements: ach,
		quests:       quests,
		streaks:      streaks,
		boards:       boards,
		shop:         shop,
		activity:     act,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches the periodic health checker to /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/gamification", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/stats", s.handleStats)
		r.Get("/transactions", s.handleTransactions)

		r.Get("/achievements", s.handleAchievements)
		r.Post("/achievements/{id}/progress", s.handleAchievementProgress)

		r.Get("/quests", s.handleQuests)
		r.Post("/quests/{questID}/tasks/{taskID}/complete", s.handleCompleteTask)

		r.Get("/leaderboard", s.handleLeaderboard)

		r.Get("/streak", s.handleStreak)
		r.Post("/streak/claim", s.handleClaimStreak)

		r.Get("/loyalty/items", s.handleLoyaltyItems)
		r.Get("/loyalty/redemptions", s.handleRedemptions)
		r.Post("/loyalty/items/{id}/redeem", s.handleRedeem)
	})

	// Service-to-service event hooks. The booking, review, and referral
	// systems call these when their own state machines settle.
	r.Route("/api/events", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/booking-completed", s.handleBookingCompleted)
		r.Post("/review-posted", s.handleReviewPosted)
		r.Post("/referral-success", s.handleReferralSuccess)
		r.Post("/dinner-hosted", s.handleDinnerHosted)
	})

	return r
}

// handleHealth reports liveness, with per-check detail when the periodic
// checker is attached. An unhealthy check degrades the status code so load
// balancers rotate the instance out.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status := http.StatusOK
	overall := "ok"
	if !s.health.IsHealthy() {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": s.health.Statuses(),
	})
}

// ─── Response Envelope ──────────────────────────────────────────────────────

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeErr maps domain sentinels onto the HTTP taxonomy. Anything
// unrecognized is a 500 with the detail logged, not surfaced.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAchievementNotFound),
		errors.Is(err, domain.ErrQuestNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInsufficientPoints),
		errors.Is(err, domain.ErrQuestExpired),
		errors.Is(err, domain.ErrUnknownBoard),
		errors.Is(err, domain.ErrStreakAlreadyClaimed),
		errors.Is(err, domain.ErrItemUnavailable),
		errors.Is(err, domain.ErrOutOfStock):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
	}

	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
