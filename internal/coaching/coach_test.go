package coaching

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/accent_coach/internal/assessment"
	"github.com/windfall/accent_coach/internal/client"
	apperrors "github.com/windfall/accent_coach/internal/errors"
)

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

var sampleScores = assessment.Scores{
	Pronunciation:   78.4,
	Fluency:         81,
	Completeness:    100,
	StrictnessLevel: 3,
	Debug: &assessment.Debug{
		RecognizedText: "She sells seashells.",
		Words: []assessment.Word{
			{Word: "sells", AccuracyScore: 54.2, ErrorType: "Mispronunciation"},
		},
	},
}

func TestTips_DemoNeverCallsRemote(t *testing.T) {
	c := NewDemoCoach(zerolog.Nop())
	tips, err := c.Tips(context.Background(), "Hello", sampleScores)
	require.NoError(t, err)
	assert.Equal(t, DemoTips, tips)
	assert.True(t, c.Demo())
}

func TestTips_Success(t *testing.T) {
	fc := &fakeCompleter{reply: "**Great start!** Try rounding your lips."}
	c := NewCoach(fc, apperrors.ServiceOpenAI, nil, zerolog.Nop())

	tips, err := c.Tips(context.Background(), "She sells seashells.", sampleScores)
	require.NoError(t, err)
	assert.Equal(t, "**Great start!** Try rounding your lips.", tips)
	assert.Equal(t, 1, fc.calls)
	assert.False(t, c.Demo())
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt("She sells seashells.", sampleScores)
	require.NoError(t, err)

	assert.Contains(t, prompt, "expert American English Dialect Coach")
	assert.Contains(t, prompt, `"She sells seashells."`)
	assert.Contains(t, prompt, `"pronunciation":78.4`)
	assert.Contains(t, prompt, `"error_type":"Mispronunciation"`)
	assert.Contains(t, prompt, "2-3 specific, actionable tips")
	assert.Contains(t, prompt, "tongue, lips, jaw")
	assert.Contains(t, prompt, "markdown")
	assert.Contains(t, prompt, "under 150 words")
}

func TestTips_APIErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
		want   apperrors.Kind
	}{
		{"rate limit", http.StatusTooManyRequests, "Rate limit reached for gpt-4o", apperrors.KindRateLimit},
		{"quota", http.StatusTooManyRequests, "You exceeded your current quota", apperrors.KindQuotaExceeded},
		{"auth", http.StatusUnauthorized, "Incorrect API key provided", apperrors.KindAuth},
		{"server", http.StatusInternalServerError, "The server had an error", apperrors.KindService},
		{"bad key as 400", http.StatusBadRequest, "API key not valid. Please pass a valid API key.", apperrors.KindAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{err: &client.APIError{Provider: "openai", StatusCode: tt.status, Message: tt.msg}}
			c := NewCoach(fc, apperrors.ServiceOpenAI, nil, zerolog.Nop())

			tips, err := c.Tips(context.Background(), "Hi", sampleScores)
			assert.Empty(t, tips)
			pe, ok := apperrors.AsProviderError(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, pe.Kind)
			assert.Equal(t, apperrors.ServiceOpenAI, pe.Service)
			assert.Contains(t, pe.Details, tt.msg)
			assert.NotContains(t, pe.Message, tt.msg)
		})
	}
}

func TestTips_OtherErrorsAreInline(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("dial tcp: lookup api.openai.com: no such host")}
	c := NewCoach(fc, apperrors.ServiceOpenAI, nil, zerolog.Nop())

	tips, err := c.Tips(context.Background(), "Hi", sampleScores)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tips, "Error connecting to Coach: "))
	assert.Contains(t, tips, "no such host")
}
