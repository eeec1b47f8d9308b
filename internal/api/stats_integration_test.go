//go:build integration

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/testutil"
	"github.com/neuralos/neuralos/internal/user"
)

func TestStatsHandler(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	notes := note.New(db.Pool, testutil.NewLogger())
	users := user.New(db.Pool, testutil.NewLogger())
	h := &statsHandler{notes: notes, users: users, logger: testutil.NewLogger()}

	if _, err := notes.Create(ctx, "alice", "t", "body", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := users.LogSearch(ctx, "alice", "query", 1); err != nil {
			t.Fatalf("LogSearch: %v", err)
		}
	}
	// Another owner's searches must not bleed into alice's counts.
	if err := users.LogSearch(ctx, "bob", "query", 1); err != nil {
		t.Fatalf("LogSearch: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyOwner, "alice"))
	rec := httptest.NewRecorder()
	h.getStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var stats note.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.TotalNotes != 1 {
		t.Errorf("total_notes = %d, want 1", stats.TotalNotes)
	}
	if stats.SearchesThisWeek != 2 {
		t.Errorf("searches_this_week = %d, want 2", stats.SearchesThisWeek)
	}
	if stats.AIInsights != stats.SearchesThisWeek {
		t.Errorf("ai_insights = %d, want the weekly search count %d",
			stats.AIInsights, stats.SearchesThisWeek)
	}
}
