// Package coaching turns assessment scores into short markdown feedback using
// a language model.
package coaching

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/assessment"
	"github.com/windfall/accent_coach/internal/client"
	apperrors "github.com/windfall/accent_coach/internal/errors"
	"github.com/windfall/accent_coach/internal/observe"
)

// DemoTips is returned when no language model is configured.
const DemoTips = "**Demo Mode:** Great effort! Your pronunciation scores look good. To get personalized coaching tips, add an OpenAI API key to your environment."

// Completer sends one prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Coach produces coaching tips.
type Coach struct {
	completer Completer
	service   apperrors.Service
	metrics   *observe.Metrics
	log       zerolog.Logger
}

// NewCoach creates a Coach backed by completer. Failures are reported as
// coming from service.
func NewCoach(completer Completer, service apperrors.Service, metrics *observe.Metrics, log zerolog.Logger) *Coach {
	return &Coach{
		completer: completer,
		service:   service,
		metrics:   metrics,
		log:       log,
	}
}

// NewDemoCoach creates a Coach that always returns DemoTips.
func NewDemoCoach(log zerolog.Logger) *Coach {
	return &Coach{log: log}
}

// Demo reports whether the coach runs without a language model.
func (c *Coach) Demo() bool {
	return c.completer == nil
}

// Service returns the configured coaching service, or "" in demo mode.
func (c *Coach) Service() apperrors.Service {
	return c.service
}

// Tips returns markdown feedback for an attempt at referenceText.
//
// API failures with an HTTP status are classified and returned as
// *errors.ProviderError. Anything else, such as a dropped connection, is
// folded into the returned text and err is nil.
func (c *Coach) Tips(ctx context.Context, referenceText string, scores assessment.Scores) (string, error) {
	if c.completer == nil {
		return DemoTips, nil
	}

	ctx, span := observe.StartSpan(ctx, "coaching.Tips")
	defer span.End()

	prompt, err := BuildPrompt(referenceText, scores)
	if err != nil {
		return "", apperrors.InternalWrap("failed to build coaching prompt", err)
	}

	start := time.Now()
	tips, err := c.completer.Complete(ctx, "", prompt)
	if c.metrics != nil {
		c.metrics.ObserveDuration(ctx, c.metrics.CoachingDuration, start, observe.Attr("provider", string(c.service)))
	}
	if err == nil {
		c.metrics.RecordProviderRequest(ctx, string(c.service), "coaching", "ok")
		c.log.Debug().Dur("took", time.Since(start)).Int("chars", len(tips)).Msg("Coaching tips generated")
		return tips, nil
	}

	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		kind := apperrors.ClassifyCoaching(apiErr.StatusCode, apiErr.Message)
		c.metrics.RecordProviderRequest(ctx, string(c.service), "coaching", "provider_failure")
		c.metrics.RecordProviderError(ctx, string(c.service), string(kind))
		c.log.Warn().
			Err(err).
			Int("status", apiErr.StatusCode).
			Str("error_type", string(kind)).
			Msg("Coaching request failed")
		return "", apperrors.NewProviderError(c.service, kind, apiErr.Error())
	}

	c.metrics.RecordProviderRequest(ctx, string(c.service), "coaching", "error")
	c.log.Error().Err(err).Msg("Coaching request failed")
	return fmt.Sprintf("Error connecting to Coach: %s", err), nil
}

// BuildPrompt renders the single-turn coaching prompt.
func BuildPrompt(referenceText string, scores assessment.Scores) (string, error) {
	analysis, err := json.Marshal(scores)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are an expert American English Dialect Coach - warm, encouraging, and specific.

CONTEXT:
The student attempted to read: %q
Here is the technical analysis of their speech: %s

TASK:
1. Start with a brief, encouraging observation about what they did well.
2. Analyze the scores (and JSON payload if available) to find specific areas for improvement.
3. Provide 2-3 specific, actionable tips focusing on mouth positioning (tongue, lips, jaw).
4. End with an encouraging note.
5. Use markdown formatting for readability.
6. Keep it concise (under 150 words).
`, referenceText, analysis), nil
}
