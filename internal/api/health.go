package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// health reports process liveness. No dependencies are checked.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness reports whether the server can actually serve: the database
// must answer a ping. A nil pool (memory backend without persistence)
// degrades to liveness.
func readiness(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}

		stat := pool.Stat()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ready",
			"db_total_conns":    stat.TotalConns(),
			"db_idle_conns":     stat.IdleConns(),
			"db_acquired_conns": stat.AcquiredConns(),
		})
	})
}
