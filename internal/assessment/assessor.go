package assessment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/observe"
)

// Assessor is the entry point for grading a recording.
type Assessor struct {
	provider Provider
	metrics  *observe.Metrics
	log      zerolog.Logger
}

// NewAssessor creates an Assessor. metrics may be nil.
func NewAssessor(provider Provider, metrics *observe.Metrics, log zerolog.Logger) *Assessor {
	return &Assessor{
		provider: provider,
		metrics:  metrics,
		log:      log,
	}
}

// Mock reports whether the configured provider returns mock data.
func (a *Assessor) Mock() bool {
	_, ok := a.provider.(*MockProvider)
	return ok
}

// ProviderName returns the name of the configured provider.
func (a *Assessor) ProviderName() string {
	return a.provider.Name()
}

// Assess grades the canonical WAV at audioPath against referenceText.
// strictness is clamped to [MinStrictness, MaxStrictness] first.
func (a *Assessor) Assess(ctx context.Context, audioPath, referenceText string, strictness int) Outcome {
	level := ClampStrictness(strictness)
	name := a.provider.Name()

	ctx, span := observe.StartSpan(ctx, "assessment.Assess")
	defer span.End()

	start := time.Now()
	out := a.provider.Assess(ctx, audioPath, referenceText, level)
	if a.metrics != nil {
		a.metrics.ObserveDuration(ctx, a.metrics.AssessmentDuration, start, observe.Attr("provider", name))
	}
	a.metrics.RecordProviderRequest(ctx, name, "assessment", out.Kind.String())

	var event *zerolog.Event
	switch out.Kind {
	case OutcomeProviderFailure:
		a.metrics.RecordProviderError(ctx, name, string(out.Failure.Kind))
		event = a.log.Warn().Str("error_type", string(out.Failure.Kind))
	case OutcomeSoftError:
		event = a.log.Info().Str("error", out.Scores.Error)
	default:
		event = a.log.Info().
			Float64("pronunciation", out.Scores.Pronunciation).
			Bool("mock", out.Scores.MockData)
	}
	event.
		Str("provider", name).
		Int("strictness", level).
		Str("outcome", out.Kind.String()).
		Dur("took", time.Since(start)).
		Msg("Pronunciation assessed")

	return out
}
