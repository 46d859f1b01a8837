package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{"HTTP 429 from upstream", KindRateLimit},
		{"Rate Limit reached for region", KindRateLimit},
		{"Too Many Requests", KindRateLimit},
		{"Quota for subscription used up", KindQuotaExceeded},
		{"monthly allowance EXCEEDED", KindQuotaExceeded},
		{"request limit", KindQuotaExceeded},
		{"status 401", KindAuth},
		{"403 Forbidden", KindAuth},
		{"Unauthorized", KindAuth},
		{"Invalid subscription key", KindAuth},
		{"connection reset by peer", KindService},
		{"", KindService},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// "429" beats the quota keywords, quota beats auth keywords.
	assert.Equal(t, KindRateLimit, Classify("429: quota exceeded"))
	assert.Equal(t, KindQuotaExceeded, Classify("401 quota exceeded"))
	assert.Equal(t, KindQuotaExceeded, Classify("invalid limit"))
}

func TestClassify_Deterministic(t *testing.T) {
	inputs := []string{"429", "quota", "401", "boom"}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 5; i++ {
			require.Equal(t, first, Classify(in))
		}
	}
}

func TestClassifyCoaching(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
		want   Kind
	}{
		{"429 plain", http.StatusTooManyRequests, "slow down", KindRateLimit},
		{"429 quota", http.StatusTooManyRequests, "You exceeded your current quota", KindQuotaExceeded},
		{"429 billing", http.StatusTooManyRequests, "billing hard limit reached", KindQuotaExceeded},
		{"401", http.StatusUnauthorized, "Incorrect API key provided", KindAuth},
		{"403", http.StatusForbidden, "country not supported", KindAuth},
		{"500", http.StatusInternalServerError, "The server had an error", KindService},
		{"502 mentioning 429", http.StatusBadGateway, "upstream said 429", KindRateLimit},
		{"400 key not valid", http.StatusBadRequest, "API key not valid. Please pass a valid API key.", KindAuth},
		{"400 context length", http.StatusBadRequest, "maximum context length exceeded", KindQuotaExceeded},
		{"404 model", http.StatusNotFound, "model gemini-9 is not found", KindService},
		{"no status", 0, "quota exceeded", KindQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCoaching(tt.status, tt.msg))
		})
	}
}

func TestKind_Actionable(t *testing.T) {
	assert.True(t, KindRateLimit.Actionable())
	assert.True(t, KindQuotaExceeded.Actionable())
	assert.True(t, KindAuth.Actionable())
	assert.False(t, KindService.Actionable())
}

func TestNewProviderError_MessageNeverLeaksDetails(t *testing.T) {
	raw := "WebSocket upgrade failed: 429 key=abcd1234"
	pe := NewProviderError(ServiceAzureSpeech, KindRateLimit, raw)

	assert.Equal(t, "Azure Speech API rate limit exceeded. Please wait a moment and try again.", pe.Message)
	assert.Equal(t, raw, pe.Details)
	assert.NotContains(t, pe.Message, "abcd1234")
	assert.NotContains(t, pe.Error(), "abcd1234")
}

func TestProviderError_StatusAndCode(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
		code   ErrorCode
	}{
		{KindRateLimit, http.StatusTooManyRequests, ErrRateLimit},
		{KindQuotaExceeded, http.StatusServiceUnavailable, ErrQuotaExceeded},
		{KindAuth, http.StatusBadGateway, ErrProviderAuth},
		{KindService, http.StatusServiceUnavailable, ErrAIService},
	}
	for _, tt := range tests {
		pe := NewProviderError(ServiceOpenAI, tt.kind, "x")
		assert.Equal(t, tt.status, pe.HTTPStatus(), tt.kind)
		assert.Equal(t, tt.code, pe.Code(), tt.kind)
	}
}

func TestAsProviderError_Wrapped(t *testing.T) {
	pe := NewProviderError(ServiceGemini, KindAuth, "bad key")
	wrapped := fmt.Errorf("coach: %w", pe)

	got, ok := AsProviderError(wrapped)
	require.True(t, ok)
	assert.Same(t, pe, got)

	_, ok = AsProviderError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestAppError_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, AudioProcessing(fmt.Errorf("ffmpeg")).HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound("entry").HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, New(ErrUnavailable, "x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal("x").HTTPStatus())
}
