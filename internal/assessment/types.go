// Package assessment scores a canonical recording against a reference text.
//
// An [Assessor] clamps the requested strictness and delegates to a [Provider]:
// [LiveProvider] calls a remote [Recognizer] and post-processes its result,
// [MockProvider] returns deterministic data when the remote service is not
// configured. Every call yields an [Outcome] tagged as success, soft error or
// provider failure.
package assessment

import (
	"context"

	apperrors "github.com/windfall/accent_coach/internal/errors"
)

// Phoneme is the accuracy of a single phoneme inside a word.
type Phoneme struct {
	Phoneme       string  `json:"phoneme"`
	AccuracyScore float64 `json:"accuracy_score"`
}

// Word is the per-word breakdown. Offset and Duration are in 100-nanosecond
// units, as reported by the speech service.
type Word struct {
	Word          string    `json:"word"`
	AccuracyScore float64   `json:"accuracy_score"`
	ErrorType     string    `json:"error_type"`
	Offset        int64     `json:"offset"`
	Duration      int64     `json:"duration"`
	Phonemes      []Phoneme `json:"phonemes"`
}

// OverallMetrics are the document-level scores of the best hypothesis.
type OverallMetrics struct {
	Accuracy      float64 `json:"accuracy_score"`
	Fluency       float64 `json:"fluency_score"`
	Completeness  float64 `json:"completeness_score"`
	Pronunciation float64 `json:"pronunciation_score"`
}

// Debug is the structured view of the detailed assessment payload. When the
// payload could not be parsed only Error is set.
type Debug struct {
	RecognizedText string          `json:"recognized_text,omitempty"`
	Words          []Word          `json:"words,omitempty"`
	OverallMetrics *OverallMetrics `json:"overall_metrics,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Scores is the result handed to coaching and to the caller.
type Scores struct {
	Pronunciation   float64 `json:"pronunciation"`
	Fluency         float64 `json:"fluency"`
	Completeness    float64 `json:"completeness"`
	StrictnessLevel int     `json:"strictness_level,omitempty"`
	MockData        bool    `json:"mock_data,omitempty"`
	Details         string  `json:"details,omitempty"`
	Error           string  `json:"error,omitempty"`
	Debug           *Debug  `json:"azure_debug,omitempty"`
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	// OutcomeOK carries usable scores, live or mock.
	OutcomeOK OutcomeKind = iota
	// OutcomeSoftError carries zero scores and an inline error such as
	// "No speech recognized.".
	OutcomeSoftError
	// OutcomeProviderFailure carries a classified provider error.
	OutcomeProviderFailure
)

// String returns the name used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeSoftError:
		return "soft_error"
	case OutcomeProviderFailure:
		return "provider_failure"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of an assessment.
type Outcome struct {
	Kind    OutcomeKind
	Scores  Scores
	Failure *apperrors.ProviderError
}

// Err returns the provider failure, or nil for the other kinds.
func (o Outcome) Err() error {
	if o.Kind == OutcomeProviderFailure && o.Failure != nil {
		return o.Failure
	}
	return nil
}

func ok(scores Scores) Outcome {
	return Outcome{Kind: OutcomeOK, Scores: scores}
}

func softError(msg string) Outcome {
	return Outcome{Kind: OutcomeSoftError, Scores: Scores{Pronunciation: 0, Error: msg}}
}

func providerFailure(pe *apperrors.ProviderError) Outcome {
	return Outcome{Kind: OutcomeProviderFailure, Failure: pe}
}

// Provider produces an Outcome for one recording. strictness is already
// clamped to [MinStrictness, MaxStrictness].
type Provider interface {
	Assess(ctx context.Context, audioPath, referenceText string, strictness int) Outcome
	// Name identifies the provider in logs and health output.
	Name() string
}
