package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/neuralos/neuralos/internal/llm"
	"github.com/neuralos/neuralos/internal/rag"
	"github.com/neuralos/neuralos/internal/user"
)

type answerHandler struct {
	engine *rag.Engine
	users  *user.Store
	logger *slog.Logger
}

// answer handles GET /api/v1/answer?q=...&k=... and runs the retrieval
// pipeline for the authenticated owner.
func (h *answerHandler) answer(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	q := r.URL.Query().Get("q")
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))

	result, err := h.engine.Answer(r.Context(), owner, q, k)
	if err != nil {
		h.writeAnswerError(w, err)
		return
	}

	// Analytics must never fail an answered query, and the request
	// context may be done by the time the response is written.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.users.LogSearch(ctx, owner, q, len(result.Sources)); err != nil {
			h.logger.Warn("could not log search", "error", err)
		}
	}()

	writeJSON(w, http.StatusOK, result)
}

func (h *answerHandler) writeAnswerError(w http.ResponseWriter, err error) {
	if errors.Is(err, rag.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "empty_query", "query parameter q is required")
		return
	}

	var stageErr *rag.StageError
	stage := "answer"
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	switch {
	case errors.Is(err, llm.ErrRateLimited):
		w.Header().Set("Retry-After", "10")
		writeError(w, http.StatusTooManyRequests, "upstream_rate_limited", "the model is rate limiting requests, try again shortly")
	case errors.Is(err, llm.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", "the "+stage+" stage timed out")
	case errors.Is(err, llm.ErrContentFiltered):
		writeError(w, http.StatusUnprocessableEntity, "content_filtered", "the model declined to answer this query")
	default:
		h.logger.Error("answer pipeline failed", "stage", stage, "error", err)
		writeError(w, http.StatusBadGateway, "pipeline_error", "the "+stage+" stage failed")
	}
}
