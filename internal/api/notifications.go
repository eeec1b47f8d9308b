package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/neuralos/neuralos/internal/user"
)

type notificationHandler struct {
	users  *user.Store
	logger *slog.Logger
}

type createNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    string `json:"type"`
}

func (h *notificationHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	unreadOnly := q.Get("unread_only") == "true"
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, err := h.users.ListNotifications(r.Context(), owner, unreadOnly, limit)
	if err != nil {
		h.logger.Error("listing notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list notifications")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *notificationHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req createNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "empty_title", "notification title must not be empty")
		return
	}

	n, err := h.users.CreateNotification(r.Context(), owner, req.Title, req.Message, req.Kind)
	if err != nil {
		h.logger.Error("creating notification", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_notification", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *notificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "notification id must be a UUID")
		return
	}

	if err := h.users.MarkRead(r.Context(), owner, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "notification not found")
			return
		}
		h.logger.Error("marking notification read", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *notificationHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.users.MarkAllRead(r.Context(), owner); err != nil {
		h.logger.Error("marking notifications read", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
