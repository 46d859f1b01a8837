package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/windfall/accent_coach/internal/errors"
)

// Reason is the outcome of a single recognition attempt.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonRecognizedSpeech
	ReasonNoMatch
	ReasonCanceled
)

// RecognizerConfig describes how the remote service should grade a recording.
type RecognizerConfig struct {
	ReferenceText   string
	Language        string
	GradingSystem   string
	Granularity     string
	PhonemeAlphabet string
	EnableMiscue    bool
	EnableProsody   bool
}

// DefaultRecognizerConfig grades on a hundred point scale at phoneme level,
// with miscue detection, IPA phonemes and prosody.
func DefaultRecognizerConfig(referenceText, language string) RecognizerConfig {
	if language == "" {
		language = "en-US"
	}
	return RecognizerConfig{
		ReferenceText:   referenceText,
		Language:        language,
		GradingSystem:   "HundredMark",
		Granularity:     "Phoneme",
		PhonemeAlphabet: "IPA",
		EnableMiscue:    true,
		EnableProsody:   true,
	}
}

// Recognition is the raw result of a recognition attempt.
type Recognition struct {
	Reason Reason

	// Scores reported by the service for the best hypothesis.
	Pronunciation float64
	Fluency       float64
	Completeness  float64

	// RawJSON is the detailed payload, parsed with ParseDetailed.
	RawJSON []byte

	// CancellationDetails is set when Reason is ReasonCanceled.
	CancellationDetails string
}

// Recognizer runs one recognition against a canonical WAV file. Transport
// level failures are returned as errors; service level failures are returned
// as a ReasonCanceled recognition.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string, cfg RecognizerConfig) (*Recognition, error)
}

// LiveProvider grades recordings with a remote Recognizer.
type LiveProvider struct {
	recognizer Recognizer
	language   string
	log        zerolog.Logger
}

// NewLiveProvider creates a LiveProvider.
func NewLiveProvider(recognizer Recognizer, language string, log zerolog.Logger) *LiveProvider {
	return &LiveProvider{
		recognizer: recognizer,
		language:   language,
		log:        log,
	}
}

// Name implements Provider.
func (p *LiveProvider) Name() string { return "azure" }

// Assess implements Provider.
func (p *LiveProvider) Assess(ctx context.Context, audioPath, referenceText string, strictness int) Outcome {
	rec, err := p.recognizer.Recognize(ctx, audioPath, DefaultRecognizerConfig(referenceText, p.language))
	if err != nil {
		return p.fromError(err)
	}

	switch rec.Reason {
	case ReasonRecognizedSpeech:
		return ok(Scores{
			Pronunciation:   AdjustScore(rec.Pronunciation, strictness),
			Fluency:         AdjustScore(rec.Fluency, strictness),
			Completeness:    AdjustScore(rec.Completeness, strictness),
			StrictnessLevel: strictness,
			Debug:           ParseDetailed(rec.RawJSON),
		})
	case ReasonNoMatch:
		return softError("No speech recognized.")
	case ReasonCanceled:
		msg := rec.CancellationDetails
		if msg == "" {
			msg = "Speech analysis canceled"
		}
		if kind := apperrors.Classify(msg); kind.Actionable() {
			p.log.Warn().Str("kind", string(kind)).Str("details", msg).Msg("Assessment canceled by provider")
			return providerFailure(apperrors.NewProviderError(apperrors.ServiceAzureSpeech, kind, msg))
		}
		p.log.Warn().Str("details", msg).Msg("Assessment canceled")
		return softError(fmt.Sprintf("Speech analysis canceled: %s", msg))
	default:
		return softError("Speech analysis failed.")
	}
}

// fromError classifies a transport failure; unmatched failures become an
// inline error so the pipeline keeps going.
func (p *LiveProvider) fromError(err error) Outcome {
	msg := err.Error()
	if kind := apperrors.Classify(msg); kind.Actionable() {
		p.log.Warn().Err(err).Str("kind", string(kind)).Msg("Assessment request failed")
		return providerFailure(apperrors.NewProviderError(apperrors.ServiceAzureSpeech, kind, msg))
	}
	p.log.Error().Err(err).Msg("Assessment request failed")
	return softError(msg)
}

// Mock fallback reasons reported in Scores.Details.
const (
	MockReasonNoCredentials    = "Running in mock mode (No Azure Keys found)"
	MockReasonProviderDisabled = "Running in mock mode (Azure Speech provider disabled)"
)

// Fixed mock values.
const (
	mockPronunciation   = 85
	mockFluency         = 90
	mockCompleteness    = 95
	mockWordAccuracy    = 82.5
	mockPhonemeAccuracy = 85.0
	mockWordSpacing     = 5_000_000 // 500 ms in 100 ns units
	mockWordDuration    = 5_000_000
)

// MockProvider returns deterministic scores without contacting any service.
type MockProvider struct {
	reason string
}

// NewMockProvider creates a MockProvider reporting reason in Scores.Details.
func NewMockProvider(reason string) *MockProvider {
	if reason == "" {
		reason = MockReasonNoCredentials
	}
	return &MockProvider{reason: reason}
}

// Name implements Provider.
func (p *MockProvider) Name() string { return "mock" }

// Assess implements Provider. Strictness does not affect mock scores.
func (p *MockProvider) Assess(_ context.Context, _, referenceText string, _ int) Outcome {
	tokens := strings.Fields(referenceText)
	words := make([]Word, 0, len(tokens))
	for i, tok := range tokens {
		words = append(words, Word{
			Word:          tok,
			AccuracyScore: mockWordAccuracy,
			ErrorType:     "None",
			Offset:        int64(i) * mockWordSpacing,
			Duration:      mockWordDuration,
			Phonemes:      []Phoneme{{Phoneme: "mock", AccuracyScore: mockPhonemeAccuracy}},
		})
	}

	return ok(Scores{
		Pronunciation: mockPronunciation,
		Fluency:       mockFluency,
		Completeness:  mockCompleteness,
		MockData:      true,
		Details:       p.reason,
		Debug: &Debug{
			RecognizedText: referenceText,
			Words:          words,
			OverallMetrics: &OverallMetrics{
				Accuracy:      85.0,
				Fluency:       mockFluency,
				Completeness:  mockCompleteness,
				Pronunciation: mockPronunciation,
			},
		},
	})
}
