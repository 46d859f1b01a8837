// Package observe holds the OpenTelemetry metrics and tracing used across
// the service. Metrics are exported in Prometheus format through
// [InitProvider]; tests build their own [Metrics] with [NewMetrics] and a
// manual reader.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/windfall/accent_coach"

// Metrics holds every instrument the pipeline records to.
type Metrics struct {
	// AudioConversionDuration tracks transcoding to canonical WAV.
	AudioConversionDuration metric.Float64Histogram

	// AssessmentDuration tracks the remote pronunciation assessment call.
	AssessmentDuration metric.Float64Histogram

	// CoachingDuration tracks the language model call.
	CoachingDuration metric.Float64Histogram

	// PipelineDuration tracks a full analyze request.
	PipelineDuration metric.Float64Histogram

	// ProviderRequests counts provider calls. Attributes: provider, kind, status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts classified provider failures. Attributes:
	// provider, kind.
	ProviderErrors metric.Int64Counter

	// Attempts counts finished practice attempts. Attributes: outcome, mock.
	Attempts metric.Int64Counter

	// HTTPRequestDuration is recorded by Middleware. Attributes: method,
	// route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets in seconds; remote assessment of a sentence usually takes
// one to five seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AudioConversionDuration, err = m.Float64Histogram("accent_coach.audio.conversion.duration",
		metric.WithDescription("Latency of converting an upload to canonical WAV."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssessmentDuration, err = m.Float64Histogram("accent_coach.assessment.duration",
		metric.WithDescription("Latency of pronunciation assessment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CoachingDuration, err = m.Float64Histogram("accent_coach.coaching.duration",
		metric.WithDescription("Latency of coaching tip generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("accent_coach.pipeline.duration",
		metric.WithDescription("End-to-end latency of an analyze request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("accent_coach.provider.requests",
		metric.WithDescription("Provider requests by provider, kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("accent_coach.provider.errors",
		metric.WithDescription("Classified provider failures by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.Attempts, err = m.Int64Counter("accent_coach.attempts",
		metric.WithDescription("Practice attempts by outcome."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("accent_coach.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordProviderRequest counts one provider call. A nil receiver is a no-op.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	if m == nil {
		return
	}
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError counts one classified provider failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordAttempt counts one finished attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, outcome string, mock bool) {
	if m == nil {
		return
	}
	m.Attempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.Bool("mock", mock),
		),
	)
}

// ObserveDuration records the time since start on h.
func (m *Metrics) ObserveDuration(ctx context.Context, h metric.Float64Histogram, start time.Time, attrs ...attribute.KeyValue) {
	if m == nil || h == nil {
		return
	}
	h.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
}

// Attr is shorthand for attribute.String.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}
