package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/assessment"
	"github.com/windfall/accent_coach/internal/audio"
	"github.com/windfall/accent_coach/internal/coaching"
	"github.com/windfall/accent_coach/internal/errors"
	"github.com/windfall/accent_coach/internal/observe"
	"github.com/windfall/accent_coach/internal/repository"
)

// Stage is a step of the analyze pipeline.
type Stage string

const (
	StageReceived   Stage = "received"
	StageNormalized Stage = "normalized"
	StageAssessed   Stage = "assessed"
	StageCoached    Stage = "coached"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// AttemptCompletedEvent is published after a successful analysis.
const AttemptCompletedEvent = "attempt.completed"

// Uploader stores a finished recording and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Publisher emits attempt events.
type Publisher interface {
	Publish(ctx context.Context, data any, attrs map[string]string) error
}

// AnalyzeRequest is one recorded attempt.
type AnalyzeRequest struct {
	Audio         []byte
	Filename      string
	ContentType   string
	ReferenceText string
	// Strictness of 0 selects the configured default.
	Strictness int
	UserID     string
}

// ScoreSummary holds the three headline scores.
type ScoreSummary struct {
	Pronunciation float64 `json:"pronunciation"`
	Fluency       float64 `json:"fluency"`
	Completeness  float64 `json:"completeness"`
}

// AnalysisResult is returned by Analyze.
type AnalysisResult struct {
	AttemptID       string            `json:"attempt_id"`
	Scores          ScoreSummary      `json:"scores"`
	Coaching        string            `json:"coaching"`
	MockMode        bool              `json:"mock_mode"`
	MockDetails     *string           `json:"mock_details"`
	AzureDebug      *assessment.Debug `json:"azure_debug,omitempty"`
	StrictnessLevel int               `json:"strictness_level,omitempty"`
	AudioURL        string            `json:"audio_url,omitempty"`
}

// AttemptEvent is the payload of AttemptCompletedEvent.
type AttemptEvent struct {
	Type          string    `json:"type"`
	AttemptID     string    `json:"attempt_id"`
	UserID        string    `json:"user_id,omitempty"`
	ReferenceText string    `json:"reference_text"`
	Pronunciation float64   `json:"pronunciation"`
	Fluency       float64   `json:"fluency"`
	Completeness  float64   `json:"completeness"`
	MockMode      bool      `json:"mock_mode"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PracticeService runs the normalize, assess and coach pipeline.
type PracticeService struct {
	normalizer        *audio.Normalizer
	assessor          *assessment.Assessor
	coach             *coaching.Coach
	history           repository.HistoryStore
	uploader          Uploader
	publisher         Publisher
	tempDir           string
	defaultStrictness int
	metrics           *observe.Metrics
	log               zerolog.Logger
	now               func() time.Time
}

// PracticeOption configures optional collaborators.
type PracticeOption func(*PracticeService)

// WithHistory records successful attempts in store.
func WithHistory(store repository.HistoryStore) PracticeOption {
	return func(s *PracticeService) { s.history = store }
}

// WithUploader uploads the canonical recording of successful attempts.
func WithUploader(u Uploader) PracticeOption {
	return func(s *PracticeService) { s.uploader = u }
}

// WithPublisher publishes an event per successful attempt.
func WithPublisher(p Publisher) PracticeOption {
	return func(s *PracticeService) { s.publisher = p }
}

// WithTempDir sets the parent of per-attempt workspaces.
func WithTempDir(dir string) PracticeOption {
	return func(s *PracticeService) { s.tempDir = dir }
}

// WithDefaultStrictness sets the level used when a request has none.
func WithDefaultStrictness(level int) PracticeOption {
	return func(s *PracticeService) { s.defaultStrictness = level }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *observe.Metrics) PracticeOption {
	return func(s *PracticeService) { s.metrics = m }
}

// NewPracticeService creates a new PracticeService.
func NewPracticeService(
	normalizer *audio.Normalizer,
	assessor *assessment.Assessor,
	coach *coaching.Coach,
	log zerolog.Logger,
	opts ...PracticeOption,
) *PracticeService {
	s := &PracticeService{
		normalizer:        normalizer,
		assessor:          assessor,
		coach:             coach,
		defaultStrictness: assessment.DefaultStrictness,
		log:               log,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PracticeService) strictness(level int) int {
	if level == 0 {
		level = s.defaultStrictness
	}
	return assessment.ClampStrictness(level)
}

func validate(req AnalyzeRequest) error {
	if len(req.Audio) == 0 {
		return errors.Validation("audio file is required")
	}
	if strings.TrimSpace(req.ReferenceText) == "" {
		return errors.Validation("reference_text is required")
	}
	return nil
}

// normalize converts the upload inside ws.
func (s *PracticeService) normalize(ctx context.Context, ws *audio.Workspace, req AnalyzeRequest) (*audio.Canonical, error) {
	start := time.Now()
	container := audio.DetectContainer(req.Filename, req.ContentType)
	canonical, err := s.normalizer.Normalize(ctx, ws, req.Audio, container)
	if s.metrics != nil {
		s.metrics.ObserveDuration(ctx, s.metrics.AudioConversionDuration, start, observe.Attr("container", string(container)))
	}
	if err != nil {
		return nil, errors.AudioProcessing(err)
	}
	return canonical, nil
}

// assess maps an Outcome onto the error contract: soft outcomes become a 400
// carrying the inline message, provider failures pass through typed.
func assess(outcome assessment.Outcome) (assessment.Scores, error) {
	switch outcome.Kind {
	case assessment.OutcomeProviderFailure:
		return assessment.Scores{}, outcome.Failure
	case assessment.OutcomeSoftError:
		return assessment.Scores{}, errors.Validation(outcome.Scores.Error)
	default:
		return outcome.Scores, nil
	}
}

// Analyze runs one attempt end to end. Every temporary file is removed before
// it returns.
func (s *PracticeService) Analyze(ctx context.Context, req AnalyzeRequest) (result *AnalysisResult, err error) {
	attemptID := uuid.NewString()
	stage := StageReceived
	start := time.Now()

	ctx, span := observe.StartSpan(ctx, "practice.Analyze")
	defer span.End()

	log := s.log.With().
		Str("attempt_id", attemptID).
		Str("trace_id", observe.TraceID(ctx)).
		Logger()

	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveDuration(ctx, s.metrics.PipelineDuration, start)
		}
		if err != nil {
			log.Warn().Err(err).Str("stage", string(stage)).Msg("Analysis failed")
			s.metrics.RecordAttempt(ctx, string(StageFailed), false)
			return
		}
		s.metrics.RecordAttempt(ctx, string(StageCompleted), result.MockMode)
	}()

	if err := validate(req); err != nil {
		return nil, err
	}

	ws, err := audio.NewWorkspace(s.tempDir)
	if err != nil {
		return nil, errors.InternalWrap("failed to create workspace", err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			log.Error().Err(cerr).Str("dir", ws.Dir()).Msg("Failed to remove workspace")
		}
	}()

	canonical, err := s.normalize(ctx, ws, req)
	if err != nil {
		return nil, err
	}
	stage = StageNormalized
	log.Debug().Int64("bytes", canonical.Size).Str("stage", string(stage)).Msg("Recording normalized")

	level := s.strictness(req.Strictness)
	scores, err := assess(s.assessor.Assess(ctx, canonical.Path, req.ReferenceText, level))
	if err != nil {
		return nil, err
	}
	stage = StageAssessed

	tips, err := s.coach.Tips(ctx, req.ReferenceText, scores)
	if err != nil {
		return nil, err
	}
	stage = StageCoached

	result = &AnalysisResult{
		AttemptID: attemptID,
		Scores: ScoreSummary{
			Pronunciation: scores.Pronunciation,
			Fluency:       scores.Fluency,
			Completeness:  scores.Completeness,
		},
		Coaching:        tips,
		MockMode:        scores.MockData,
		AzureDebug:      scores.Debug,
		StrictnessLevel: scores.StrictnessLevel,
	}
	if scores.MockData {
		details := scores.Details
		result.MockDetails = &details
	}

	result.AudioURL = s.upload(ctx, log, attemptID, req.UserID, canonical)
	s.record(ctx, log, req, result)
	s.publish(ctx, log, req, result)

	stage = StageCompleted
	log.Info().
		Str("stage", string(stage)).
		Float64("pronunciation", result.Scores.Pronunciation).
		Bool("mock", result.MockMode).
		Dur("took", time.Since(start)).
		Msg("Analysis completed")

	return result, nil
}

// Assess normalizes and grades a recording without coaching.
func (s *PracticeService) Assess(ctx context.Context, req AnalyzeRequest) (*assessment.Scores, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ws, err := audio.NewWorkspace(s.tempDir)
	if err != nil {
		return nil, errors.InternalWrap("failed to create workspace", err)
	}
	defer ws.Close()

	canonical, err := s.normalize(ctx, ws, req)
	if err != nil {
		return nil, err
	}

	scores, err := assess(s.assessor.Assess(ctx, canonical.Path, req.ReferenceText, s.strictness(req.Strictness)))
	if err != nil {
		return nil, err
	}
	return &scores, nil
}

// Coach returns tips for already computed scores.
func (s *PracticeService) Coach(ctx context.Context, referenceText string, scores assessment.Scores) (string, error) {
	if strings.TrimSpace(referenceText) == "" {
		return "", errors.Validation("reference_text is required")
	}
	return s.coach.Tips(ctx, referenceText, scores)
}

func (s *PracticeService) upload(ctx context.Context, log zerolog.Logger, attemptID, userID string, canonical *audio.Canonical) string {
	if s.uploader == nil {
		return ""
	}
	data, err := os.ReadFile(canonical.Path)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read recording for upload")
		return ""
	}
	if userID == "" {
		userID = "anonymous"
	}
	url, err := s.uploader.Upload(ctx, fmt.Sprintf("recordings/%s/%s.wav", userID, attemptID), data, "audio/wav")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upload recording")
		return ""
	}
	return url
}

func (s *PracticeService) record(ctx context.Context, log zerolog.Logger, req AnalyzeRequest, result *AnalysisResult) {
	if s.history == nil || req.UserID == "" {
		return
	}
	err := s.history.Save(ctx, req.UserID, repository.Attempt{
		ID:              result.AttemptID,
		UserID:          req.UserID,
		ReferenceText:   req.ReferenceText,
		Pronunciation:   result.Scores.Pronunciation,
		Fluency:         result.Scores.Fluency,
		Completeness:    result.Scores.Completeness,
		StrictnessLevel: result.StrictnessLevel,
		MockMode:        result.MockMode,
		Coaching:        result.Coaching,
		AudioURL:        result.AudioURL,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to save attempt history")
	}
}

func (s *PracticeService) publish(ctx context.Context, log zerolog.Logger, req AnalyzeRequest, result *AnalysisResult) {
	if s.publisher == nil {
		return
	}
	event := AttemptEvent{
		Type:          AttemptCompletedEvent,
		AttemptID:     result.AttemptID,
		UserID:        req.UserID,
		ReferenceText: req.ReferenceText,
		Pronunciation: result.Scores.Pronunciation,
		Fluency:       result.Scores.Fluency,
		Completeness:  result.Scores.Completeness,
		MockMode:      result.MockMode,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event, map[string]string{"event_type": AttemptCompletedEvent}); err != nil {
		log.Warn().Err(err).Msg("Failed to publish attempt event")
	}
}
