package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/user"
)

type statsHandler struct {
	notes  *note.Store
	users  *user.Store
	logger *slog.Logger
}

func (h *statsHandler) getStats(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	stats, err := h.notes.Stats(r.Context(), owner)
	if err != nil {
		h.logger.Error("loading stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load stats")
		return
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	stats.SearchesThisWeek, err = h.users.SearchesSince(r.Context(), owner, weekAgo)
	if err != nil {
		h.logger.Error("counting searches", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load stats")
		return
	}
	// Insights are generated per answered search, one apiece.
	stats.AIInsights = stats.SearchesThisWeek

	writeJSON(w, http.StatusOK, stats)
}
