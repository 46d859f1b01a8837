package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/accent_coach/internal/assessment"
)

func writeWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording_converted.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o600))
	return path
}

func newSpeechClient(srv *httptest.Server) *AzureSpeechClient {
	return NewAzureSpeechClient("key", "eastus", 5*time.Second).WithEndpoint(srv.URL + "/speech")
}

func TestAzureSpeech_Recognized(t *testing.T) {
	const body = `{"RecognitionStatus":"Success","NBest":[{"Display":"Hi.","AccuracyScore":80,"FluencyScore":70,"CompletenessScore":100,"PronScore":78.5,"Words":[]}]}`

	var gotHeader http.Header
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotQuery = r.URL.RawQuery
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "RIFF....WAVE", string(data))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	cfg := assessment.DefaultRecognizerConfig("Hi", "en-US")
	rec, err := newSpeechClient(srv).Recognize(context.Background(), writeWAV(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, assessment.ReasonRecognizedSpeech, rec.Reason)
	assert.Equal(t, 78.5, rec.Pronunciation)
	assert.Equal(t, 70.0, rec.Fluency)
	assert.Equal(t, 100.0, rec.Completeness)
	assert.JSONEq(t, body, string(rec.RawJSON))

	assert.Equal(t, "key", gotHeader.Get("Ocp-Apim-Subscription-Key"))
	assert.Contains(t, gotQuery, "format=detailed")
	assert.Contains(t, gotQuery, "language=en-US")

	raw, err := base64.StdEncoding.DecodeString(gotHeader.Get("Pronunciation-Assessment"))
	require.NoError(t, err)
	var params map[string]any
	require.NoError(t, json.Unmarshal(raw, &params))
	assert.Equal(t, "Hi", params["ReferenceText"])
	assert.Equal(t, "HundredMark", params["GradingSystem"])
	assert.Equal(t, "Phoneme", params["Granularity"])
	assert.Equal(t, "IPA", params["PhonemeAlphabet"])
	assert.Equal(t, true, params["EnableMiscue"])
	assert.Equal(t, true, params["EnableProsodyAssessment"])
}

func TestAzureSpeech_NoMatch(t *testing.T) {
	for _, status := range []string{"NoMatch", "InitialSilenceTimeout"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"RecognitionStatus":"` + status + `"}`))
		}))
		rec, err := newSpeechClient(srv).Recognize(context.Background(), writeWAV(t), assessment.DefaultRecognizerConfig("Hi", ""))
		srv.Close()

		require.NoError(t, err)
		assert.Equal(t, assessment.ReasonNoMatch, rec.Reason, status)
	}
}

func TestAzureSpeech_HTTPErrorIsCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec, err := newSpeechClient(srv).Recognize(context.Background(), writeWAV(t), assessment.DefaultRecognizerConfig("Hi", ""))
	require.NoError(t, err)
	assert.Equal(t, assessment.ReasonCanceled, rec.Reason)
	assert.Contains(t, rec.CancellationDetails, "azure speech api error 429")
}

func TestAzureSpeech_MissingCredentials(t *testing.T) {
	c := NewAzureSpeechClient("", "", 0)
	_, err := c.Recognize(context.Background(), "unused.wav", assessment.DefaultRecognizerConfig("Hi", ""))
	require.Error(t, err)
}

func TestAzureChat_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Great job!"}}]}`))
	}))
	defer srv.Close()

	out, err := NewAzureChatClient(srv.URL, "secret", time.Second).Complete(context.Background(), "coach", "tips please")
	require.NoError(t, err)
	assert.Equal(t, "Great job!", out)
}

func TestAzureChat_StatusBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"429","message":"Requests have exceeded the token rate limit"}}`))
	}))
	defer srv.Close()

	_, err := NewAzureChatClient(srv.URL, "secret", time.Second).Complete(context.Background(), "", "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Requests have exceeded the token rate limit", apiErr.Message)
}

func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"**Nice!**"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClientWithBaseURL("sk-test", srv.URL+"/v1").WithModel("gpt-4o")
	out, err := c.Complete(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "**Nice!**", out)
}

func TestOpenAI_ErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota, please check your plan and billing details.","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClientWithBaseURL("sk-test", srv.URL+"/v1").Complete(context.Background(), "", "hello")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "exceeded your current quota")
	assert.Equal(t, "openai", apiErr.Provider)
}

func TestCloudflare_UploadRecording(t *testing.T) {
	var gotMethod, gotPath, gotType, gotCache string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotCache = r.Header.Get("Cache-Control")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewCloudflareClient(context.Background(), "ak", "sk", srv.URL, "recordings-bucket", "https://cdn.example.com/")
	require.NoError(t, err)

	url, err := c.Upload(context.Background(), "recordings/u1/a1.wav", []byte("RIFFdata"), "audio/wav")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/recordings/u1/a1.wav", url)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/recordings-bucket/recordings/u1/a1.wav", gotPath)
	assert.Equal(t, "audio/wav", gotType)
	assert.Equal(t, recordingCacheControl, gotCache)
	assert.Contains(t, string(gotBody), "RIFFdata")
}

func TestCloudflare_ObjectURLWithoutPublicOrigin(t *testing.T) {
	c := &CloudflareClient{}
	assert.Empty(t, c.ObjectURL("k"))
}
