package api

import (
	"log/slog"
	"net/http"

	"github.com/neuralos/neuralos/internal/user"
)

type preferencesHandler struct {
	users  *user.Store
	logger *slog.Logger
}

func (h *preferencesHandler) get(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	prefs, err := h.users.GetPreferences(r.Context(), owner)
	if err != nil {
		h.logger.Error("loading preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *preferencesHandler) put(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var prefs user.Preferences
	if !decodeJSON(w, r, &prefs) {
		return
	}

	if err := h.users.PutPreferences(r.Context(), owner, prefs); err != nil {
		h.logger.Error("saving preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not save preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
