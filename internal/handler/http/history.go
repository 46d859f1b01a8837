package http

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/errors"
	"github.com/windfall/accent_coach/internal/middleware"
	"github.com/windfall/accent_coach/internal/repository"
	"github.com/windfall/accent_coach/pkg/response"
)

// HistoryHandler serves a user's past attempts. Every route requires a user
// whose token signature was verified, so history is unavailable when no
// JWT secret is configured.
type HistoryHandler struct {
	log     zerolog.Logger
	history repository.HistoryStore
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(log zerolog.Logger, history repository.HistoryStore) *HistoryHandler {
	return &HistoryHandler{log: log, history: history}
}

func (h *HistoryHandler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetVerifiedUserID(r.Context())
	if userID == "" {
		writeError(h.log, w, errors.Unauthorized("a verified token is required"))
		return "", false
	}
	return userID, true
}

// List handles GET /api/v1/history?limit=N
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(h.log, w, errors.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	attempts, err := h.history.List(r.Context(), userID, limit)
	if err != nil {
		writeError(h.log, w, errors.InternalWrap("failed to list history", err))
		return
	}

	response.JSONWithMeta(w, http.StatusOK, attempts, &response.Meta{
		PerPage: limit,
		Total:   len(attempts),
	})
}

// Get handles GET /api/v1/history/{id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	attempt, err := h.history.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, attempt)
}

// Delete handles DELETE /api/v1/history/{id}
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	if err := h.history.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.storeError(w, err)
		return
	}

	response.NoContent(w)
}

// Clear handles DELETE /api/v1/history
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	if err := h.history.Clear(r.Context(), userID); err != nil {
		writeError(h.log, w, errors.InternalWrap("failed to clear history", err))
		return
	}

	response.NoContent(w)
}

func (h *HistoryHandler) storeError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, repository.ErrNotFound) {
		writeError(h.log, w, errors.NotFound("attempt"))
		return
	}
	writeError(h.log, w, errors.InternalWrap("history store error", err))
}
