package http

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/errors"
	"github.com/windfall/accent_coach/internal/repository"
	"github.com/windfall/accent_coach/pkg/response"
)

// SentenceHandler serves the practice sentence catalogue.
type SentenceHandler struct {
	log       zerolog.Logger
	sentences repository.SentenceRepository
}

// NewSentenceHandler creates a new SentenceHandler.
func NewSentenceHandler(log zerolog.Logger, sentences repository.SentenceRepository) *SentenceHandler {
	return &SentenceHandler{log: log, sentences: sentences}
}

// List handles GET /api/v1/sentences
func (h *SentenceHandler) List(w http.ResponseWriter, r *http.Request) {
	sentences, err := h.sentences.List(r.Context())
	if err != nil {
		writeError(h.log, w, errors.InternalWrap("failed to list sentences", err))
		return
	}
	if sentences == nil {
		sentences = []repository.Sentence{}
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"sentences": sentences,
	})
}

// Get handles GET /api/v1/sentences/{id}
func (h *SentenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(h.log, w, errors.Validation("invalid sentence id"))
		return
	}

	sentence, err := h.sentences.GetByID(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			writeError(h.log, w, errors.NotFound("sentence"))
			return
		}
		writeError(h.log, w, errors.InternalWrap("failed to get sentence", err))
		return
	}

	response.JSON(w, http.StatusOK, sentence)
}
