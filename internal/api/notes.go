package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/neuralos/neuralos/internal/indexer"
	"github.com/neuralos/neuralos/internal/note"
)

type noteHandler struct {
	notes  *note.Store
	worker *indexer.Worker
	logger *slog.Logger
}

type createNoteRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"content"`
	Tags  []string `json:"tags"`
}

type patchNoteRequest struct {
	Title      *string   `json:"title"`
	Body       *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	IsFavorite *bool     `json:"is_favorite"`
	IsArchived *bool     `json:"is_archived"`
	IsDeleted  *bool     `json:"is_deleted"`
}

func (req patchNoteRequest) patch() note.Patch {
	return note.Patch{
		Title:      req.Title,
		Body:       req.Body,
		Tags:       req.Tags,
		IsFavorite: req.IsFavorite,
		IsArchived: req.IsArchived,
		IsDeleted:  req.IsDeleted,
	}
}

func (h *noteHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req createNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.notes.Create(r.Context(), owner, req.Title, req.Body, req.Tags)
	if err != nil {
		if errors.Is(err, note.ErrEmptyBody) {
			writeError(w, http.StatusBadRequest, "empty_content", "note content must not be empty")
			return
		}
		h.logger.Error("creating note", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create note")
		return
	}

	h.worker.EnqueueIndex(n)
	writeJSON(w, http.StatusCreated, n)
}

func (h *noteHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := note.ListOptions{
		Filter: q.Get("filter_type"),
		Search: q.Get("search"),
	}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))

	notes, err := h.notes.List(r.Context(), owner, opts)
	if err != nil {
		h.logger.Error("listing notes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list notes")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *noteHandler) get(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	n, err := h.notes.Get(r.Context(), owner, id)
	if err != nil {
		h.writeStoreError(w, err, "loading note")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *noteHandler) patch(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	var req patchNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := req.patch()

	n, err := h.notes.Update(r.Context(), owner, id, p)
	if err != nil {
		h.writeStoreError(w, err, "updating note")
		return
	}

	// Trash transitions and content changes both touch the vector:
	// trashed notes must never surface in answers, restored or edited
	// ones need a fresh embedding.
	switch {
	case p.IsDeleted != nil && *p.IsDeleted:
		h.worker.EnqueueDeindex(id)
	case p.IsDeleted != nil || p.ContentChanged():
		h.worker.EnqueueIndex(n)
	}
	writeJSON(w, http.StatusOK, n)
}

// delete moves the note to trash, or with ?permanent=true removes the
// row outright. Both paths remove the vector so trashed notes never
// surface in answers.
func (h *noteHandler) delete(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	var err error
	if r.URL.Query().Get("permanent") == "true" {
		err = h.notes.HardDelete(r.Context(), owner, id)
	} else {
		err = h.notes.SoftDelete(r.Context(), owner, id)
	}
	if err != nil {
		h.writeStoreError(w, err, "deleting note")
		return
	}

	h.worker.EnqueueDeindex(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *noteHandler) restore(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	if err := h.notes.Restore(r.Context(), owner, id); err != nil {
		h.writeStoreError(w, err, "restoring note")
		return
	}

	// The vector was removed on soft delete; rebuild it.
	n, err := h.notes.Get(r.Context(), owner, id)
	if err != nil {
		h.writeStoreError(w, err, "loading restored note")
		return
	}
	h.worker.EnqueueIndex(n)
	writeJSON(w, http.StatusOK, n)
}

func (h *noteHandler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	val, err := h.notes.ToggleFavorite(r.Context(), owner, id)
	if err != nil {
		h.writeStoreError(w, err, "toggling favorite")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_favorite": val})
}

func (h *noteHandler) toggleArchive(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	val, err := h.notes.ToggleArchive(r.Context(), owner, id)
	if err != nil {
		h.writeStoreError(w, err, "toggling archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_archived": val})
}

func (h *noteHandler) emptyTrash(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	ids, err := h.notes.EmptyTrash(r.Context(), owner)
	if err != nil {
		h.logger.Error("emptying trash", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not empty trash")
		return
	}

	for _, id := range ids {
		h.worker.EnqueueDeindex(id)
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_count": len(ids)})
}

func (h *noteHandler) ownerAndID(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "note id must be a UUID")
		return "", uuid.Nil, false
	}
	return owner, id, true
}

func (h *noteHandler) writeStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, note.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "note not found")
	case errors.Is(err, note.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "note was modified concurrently")
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not "+op)
	}
}
