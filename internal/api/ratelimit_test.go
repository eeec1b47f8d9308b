package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neuralos/neuralos/internal/testutil"
)

func TestRateLimiterAllow(t *testing.T) {
	// Near-zero refill so the burst is all we get.
	rl := newRateLimiter(0.0001, 3)

	for i := 0; i < 3; i++ {
		if !rl.allow("203.0.113.9") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if rl.allow("203.0.113.9") {
		t.Error("request allowed after burst exhausted")
	}

	// A different IP has its own bucket.
	if !rl.allow("203.0.113.10") {
		t.Error("fresh IP denied")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(0.0001, 2)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rateLimitMiddleware(rl, false, testutil.NewLogger())(next)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do(); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after burst", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 missing Retry-After header")
	}
}
