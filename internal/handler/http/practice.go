package http

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/assessment"
	"github.com/windfall/accent_coach/internal/errors"
	"github.com/windfall/accent_coach/internal/middleware"
	"github.com/windfall/accent_coach/internal/service"
	"github.com/windfall/accent_coach/pkg/response"
)

// PracticeHandler serves the assessment and coaching endpoints.
type PracticeHandler struct {
	log            zerolog.Logger
	practice       *service.PracticeService
	maxUploadBytes int64
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(log zerolog.Logger, practice *service.PracticeService, maxUploadBytes int64) *PracticeHandler {
	return &PracticeHandler{
		log:            log,
		practice:       practice,
		maxUploadBytes: maxUploadBytes,
	}
}

// readAttempt parses the multipart form shared by analyze and assess.
//
// Fields: "audio" (file), "reference_text", optional "strictness" (1-5,
// out of range values are clamped).
func (h *PracticeHandler) readAttempt(w http.ResponseWriter, r *http.Request) (service.AnalyzeRequest, error) {
	var req service.AnalyzeRequest

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return req, errors.Validation("audio file too large")
		}
		return req, errors.Validation("failed to parse multipart form")
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return req, errors.Validation("audio file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return req, errors.Validation("failed to read audio file")
	}

	req.Audio = data
	req.Filename = header.Filename
	req.ContentType = header.Header.Get("Content-Type")
	req.ReferenceText = strings.TrimSpace(r.FormValue("reference_text"))
	req.UserID = middleware.GetVerifiedUserID(r.Context())

	if raw := strings.TrimSpace(r.FormValue("strictness")); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.Validation("strictness must be an integer between 1 and 5")
		}
		req.Strictness = assessment.ClampStrictness(level)
	}

	return req, nil
}

// Analyze handles POST /api/v1/analyze
func (h *PracticeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.readAttempt(w, r)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	result, err := h.practice.Analyze(r.Context(), req)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Assess handles POST /api/v1/assess
func (h *PracticeHandler) Assess(w http.ResponseWriter, r *http.Request) {
	req, err := h.readAttempt(w, r)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	scores, err := h.practice.Assess(r.Context(), req)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, scores)
}

// CoachRequest is the body of POST /api/v1/coach.
type CoachRequest struct {
	ReferenceText string            `json:"reference_text"`
	Scores        assessment.Scores `json:"scores"`
}

// Coach handles POST /api/v1/coach
func (h *PracticeHandler) Coach(w http.ResponseWriter, r *http.Request) {
	var req CoachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(h.log, w, errors.Validation("invalid request body"))
		return
	}

	tips, err := h.practice.Coach(r.Context(), req.ReferenceText, req.Scores)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"coaching": tips,
	})
}
