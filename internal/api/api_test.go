package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sharedtable/fare/internal/app/activity"
	"github.com/sharedtable/fare/internal/app/engagement"
	"github.com/sharedtable/fare/internal/app/leaderboard"
	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/app/loyalty"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

const testToken = "tok-alice"

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.DB, *ledger.Service) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Now().UTC()
	if err := db.UpsertUser(domain.User{ID: "alice", DisplayName: "Alice", CreatedAt: now}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := db.InsertSession(domain.Session{Token: testToken, UserID: "alice", CreatedAt: now}); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	lg := ledger.NewService(db)
	ach := engagement.NewAchievementService(db, lg)
	quests := engagement.NewQuestService(db, lg)
	if err := quests.EnsureCatalog(); err != nil {
		t.Fatalf("EnsureCatalog: %v", err)
	}
	streaks := engagement.NewStreakService(db, lg)
	boards := leaderboard.New(db, time.Minute)
	shop := loyalty.New(db, lg)
	act := activity.New(db, lg, ach)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(db, log, lg, ach, quests, streaks, boards, shop, act).Handler())
	t.Cleanup(srv.Close)
	return srv, db, lg
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token, body string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

// ─── Auth ───────────────────────────────────────────────────────────────────

func TestAuth_MissingToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/gamification/stats", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if env.Success || env.Error == "" {
		t.Errorf("envelope = %+v, want failure with message", env)
	}
}

func TestAuth_UnknownToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodGet, "/api/gamification/stats", "tok-forged", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

// ─── Stats ──────────────────────────────────────────────────────────────────

func TestStats_Envelope(t *testing.T) {
	srv, _, lg := newTestServer(t)
	lg.Award("alice", 120, domain.TxBookingCompleted, "", "", "")

	resp, env := doRequest(t, srv, http.MethodGet, "/api/gamification/stats", testToken, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("status = %d success = %v, want 200 ok", resp.StatusCode, env.Success)
	}

	raw, _ := json.Marshal(env.Data)
	var data statsResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Stats.TotalPoints != 120 {
		t.Errorf("TotalPoints = %d, want 120", data.Stats.TotalPoints)
	}
	if data.Tier.Tier != 2 || data.Tier.Name != "Regular" {
		t.Errorf("tier = %+v, want 2 Regular", data.Tier)
	}
}

// ─── Quests ─────────────────────────────────────────────────────────────────

func TestQuests_ListAndComplete(t *testing.T) {
	srv, _, lg := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/gamification/quests?type=daily", testToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}

	raw, _ := json.Marshal(env.Data)
	var quests []domain.Quest
	if err := json.Unmarshal(raw, &quests); err != nil {
		t.Fatalf("decode quests: %v", err)
	}
	if len(quests) != 1 || len(quests[0].Tasks) != 2 {
		t.Fatalf("quests = %+v, want one daily quest with 2 tasks", quests)
	}

	q := quests[0]
	for _, task := range q.Tasks {
		path := "/api/gamification/quests/" + q.ID + "/tasks/" + task.ID + "/complete"
		resp, _ := doRequest(t, srv, http.MethodPost, path, testToken, "{}")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("complete %s status = %d, want 200", task.ID, resp.StatusCode)
		}
	}

	stats, _ := lg.Stats("alice")
	if stats.TotalPoints != q.TotalPoints {
		t.Errorf("TotalPoints = %d, want quest bonus %d", stats.TotalPoints, q.TotalPoints)
	}
}

func TestQuests_UnknownType(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodGet, "/api/gamification/quests?type=hourly", testToken, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

func TestLeaderboard_UnknownBoard(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodGet, "/api/gamification/leaderboard?type=galactic", testToken, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLeaderboard_MarksViewer(t *testing.T) {
	srv, _, lg := newTestServer(t)
	lg.Award("alice", 300, domain.TxBookingCompleted, "", "", "")

	_, env := doRequest(t, srv, http.MethodGet, "/api/gamification/leaderboard?type=points", testToken, "")
	raw, _ := json.Marshal(env.Data)
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsMe {
		t.Errorf("entries = %+v, want alice flagged as viewer", entries)
	}
}

// ─── Loyalty ────────────────────────────────────────────────────────────────

func TestRedeem_FlowAndErrors(t *testing.T) {
	srv, db, lg := newTestServer(t)
	if err := db.UpsertLoyaltyItem(domain.LoyaltyItem{ID: "drink", Name: "Free drink", Cost: 200, Available: true}); err != nil {
		t.Fatalf("UpsertLoyaltyItem: %v", err)
	}
	lg.Award("alice", 250, domain.TxBookingCompleted, "", "", "")

	resp, env := doRequest(t, srv, http.MethodPost, "/api/gamification/loyalty/items/drink/redeem",
		testToken, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("redeem status = %d, want 200", resp.StatusCode)
	}

	raw, _ := json.Marshal(env.Data)
	var data redeemResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode redeem: %v", err)
	}
	if data.RemainingPoints != 50 {
		t.Errorf("remaining = %d, want 50", data.RemainingPoints)
	}

	// Second redemption exceeds the balance.
	resp, env = doRequest(t, srv, http.MethodPost, "/api/gamification/loyalty/items/drink/redeem",
		testToken, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("over-spend status = %d, want 400", resp.StatusCode)
	}
	if env.Success {
		t.Error("over-spend should report failure")
	}

	resp, _ = doRequest(t, srv, http.MethodPost, "/api/gamification/loyalty/items/ghost/redeem",
		testToken, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown item status = %d, want 404", resp.StatusCode)
	}
}

// ─── Streak ─────────────────────────────────────────────────────────────────

func TestStreak_ClaimThenConflict(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/gamification/streak/claim", testToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first claim status = %d, want 200", resp.StatusCode)
	}

	resp, env := doRequest(t, srv, http.MethodPost, "/api/gamification/streak/claim", testToken, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("second claim status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(env.Error, "already claimed") {
		t.Errorf("error = %q, want already-claimed message", env.Error)
	}
}

// ─── Events ─────────────────────────────────────────────────────────────────

func TestEvents_BookingCompleted(t *testing.T) {
	srv, _, lg := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodPost, "/api/events/booking-completed",
		testToken, `{"booking_id":"b1","guest_count":3}`)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("status = %d success = %v, want 200 ok", resp.StatusCode, env.Success)
	}

	stats, _ := lg.Stats("alice")
	// 50 booking + 10 group + 100 first dinner + 100 first_table unlock.
	if stats.TotalPoints != 260 {
		t.Errorf("TotalPoints = %d, want 260", stats.TotalPoints)
	}
}

func TestEvents_MissingBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/events/review-posted", testToken, `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
