package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sharedtable/fare/internal/domain"
)

// ─── Stats & Ledger ─────────────────────────────────────────────────────────

type statsResponse struct {
	Stats *domain.UserStats `json:"stats"`
	Tier  domain.TierInfo   `json:"tier"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	stats, err := s.ledger.Stats(user.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, statsResponse{
		Stats: stats,
		Tier:  domain.TierFor(stats.TotalPoints),
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := s.ledger.History(user.ID, limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if txs == nil {
		txs = []domain.PointTransaction{}
	}
	s.writeData(w, txs)
}

// ─── Achievements ───────────────────────────────────────────────────────────

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	views, err := s.achievements.List(user.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, views)
}

func (s *Server) handleAchievementProgress(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		Progress int64 `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid JSON body"})
		return
	}

	view, err := s.achievements.SetProgress(user.ID, chi.URLParam(r, "id"), req.Progress)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, view)
}

// ─── Quests ─────────────────────────────────────────────────────────────────

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var types []domain.QuestType
	if raw := r.URL.Query().Get("type"); raw != "" {
		qt := domain.QuestType(raw)
		valid := false
		for _, known := range domain.AllQuestTypes() {
			if qt == known {
				valid = true
				break
			}
		}
		if !valid {
			writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "unknown quest type"})
			return
		}
		types = []domain.QuestType{qt}
	}

	quests, err := s.quests.ActiveQuests(user.ID, types)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if quests == nil {
		quests = []domain.Quest{}
	}
	s.writeData(w, quests)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	quest, err := s.quests.CompleteTask(user.ID,
		chi.URLParam(r, "questID"), chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, quest)
}

// ─── Leaderboards ───────────────────────────────────────────────────────────

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	board := r.URL.Query().Get("type")
	if board == "" {
		board = string(domain.BoardPoints)
	}
	entries, err := s.boards.Read(domain.BoardType(board), user.ID, limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	s.writeData(w, entries)
}

// ─── Streaks ────────────────────────────────────────────────────────────────

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	streak, err := s.streaks.Current(user.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, streak)
}

func (s *Server) handleClaimStreak(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	streak, err := s.streaks.ClaimWeeklyBonus(user.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, streak)
}

// ─── Loyalty Shop ───────────────────────────────────────────────────────────

func (s *Server) handleLoyaltyItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.shop.Items()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if items == nil {
		items = []domain.LoyaltyItem{}
	}
	s.writeData(w, items)
}

func (s *Server) handleRedemptions(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	reds, err := s.shop.Redemptions(user.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if reds == nil {
		reds = []domain.LoyaltyRedemption{}
	}
	s.writeData(w, reds)
}

type redeemResponse struct {
	Redemption      *domain.LoyaltyRedemption `json:"redemption"`
	RemainingPoints int64                     `json:"remaining_points"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	redemption, remaining, err := s.shop.Redeem(user.ID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, redeemResponse{Redemption: redemption, RemainingPoints: remaining})
}

// ─── Event Hooks ────────────────────────────────────────────────────────────

type eventResponse struct {
	Unlocked []domain.AchievementDef `json:"unlocked_achievements"`
}

func newEventResponse(unlocked []domain.AchievementDef) eventResponse {
	if unlocked == nil {
		unlocked = []domain.AchievementDef{}
	}
	return eventResponse{Unlocked: unlocked}
}

func (s *Server) handleBookingCompleted(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		BookingID  string `json:"booking_id"`
		GuestCount int    `json:"guest_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "booking_id is required"})
		return
	}
	if req.GuestCount < 1 {
		req.GuestCount = 1
	}

	unlocked, err := s.activity.OnBookingCompleted(user.ID, req.BookingID, req.GuestCount)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, newEventResponse(unlocked))
}

func (s *Server) handleReviewPosted(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		ReviewID string `json:"review_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReviewID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "review_id is required"})
		return
	}

	unlocked, err := s.activity.OnReviewPosted(user.ID, req.ReviewID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, newEventResponse(unlocked))
}

func (s *Server) handleReferralSuccess(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		ReferredUserID string `json:"referred_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReferredUserID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "referred_user_id is required"})
		return
	}

	unlocked, err := s.activity.OnReferralSuccess(user.ID, req.ReferredUserID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, newEventResponse(unlocked))
}

func (s *Server) handleDinnerHosted(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		DinnerID string `json:"dinner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DinnerID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "dinner_id is required"})
		return
	}

	unlocked, err := s.activity.OnDinnerHosted(user.ID, req.DinnerID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeData(w, newEventResponse(unlocked))
}
