package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/windfall/accent_coach/internal/assessment"
	"github.com/windfall/accent_coach/internal/errors"
)

// AzureSpeechClient wraps the Azure AI Speech short-audio REST API and
// implements assessment.Recognizer.
type AzureSpeechClient struct {
	apiKey   string
	region   string
	endpoint string
	client   *http.Client
}

// NewAzureSpeechClient creates a new Azure Speech client.
func NewAzureSpeechClient(apiKey, region string, timeout time.Duration) *AzureSpeechClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AzureSpeechClient{
		apiKey: apiKey,
		region: region,
		endpoint: (&url.URL{
			Scheme: "https",
			Host:   fmt.Sprintf("%s.stt.speech.microsoft.com", region),
			Path:   "/speech/recognition/conversation/cognitiveservices/v1",
		}).String(),
		client: &http.Client{Timeout: timeout},
	}
}

// WithEndpoint overrides the recognition URL. Used against sovereign clouds
// and in tests.
func (c *AzureSpeechClient) WithEndpoint(endpoint string) *AzureSpeechClient {
	c.endpoint = endpoint
	return c
}

// pronunciationParams is sent base64 encoded in the Pronunciation-Assessment
// header.
type pronunciationParams struct {
	ReferenceText           string `json:"ReferenceText"`
	GradingSystem           string `json:"GradingSystem"`
	Granularity             string `json:"Granularity"`
	Dimension               string `json:"Dimension"`
	EnableMiscue            bool   `json:"EnableMiscue"`
	PhonemeAlphabet         string `json:"PhonemeAlphabet,omitempty"`
	EnableProsodyAssessment bool   `json:"EnableProsodyAssessment,omitempty"`
}

// recognitionResponse is the subset of the detailed response needed to
// derive the top-level scores. The full body is kept for parsing.
type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	NBest             []struct {
		AccuracyScore     float64 `json:"AccuracyScore"`
		FluencyScore      float64 `json:"FluencyScore"`
		CompletenessScore float64 `json:"CompletenessScore"`
		PronScore         float64 `json:"PronScore"`
	} `json:"NBest"`
}

// PronunciationHeader encodes cfg for the Pronunciation-Assessment header.
func PronunciationHeader(cfg assessment.RecognizerConfig) (string, error) {
	jsonBytes, err := json.Marshal(pronunciationParams{
		ReferenceText:           cfg.ReferenceText,
		GradingSystem:           cfg.GradingSystem,
		Granularity:             cfg.Granularity,
		Dimension:               "Comprehensive",
		EnableMiscue:            cfg.EnableMiscue,
		PhonemeAlphabet:         cfg.PhonemeAlphabet,
		EnableProsodyAssessment: cfg.EnableProsody,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}
	return base64.StdEncoding.EncodeToString(jsonBytes), nil
}

// Recognize sends the WAV file at audioPath for pronunciation assessment.
// Non-200 responses and service-side failures come back as a canceled
// recognition carrying the status and body; only transport failures are
// returned as errors.
func (c *AzureSpeechClient) Recognize(ctx context.Context, audioPath string, cfg assessment.RecognizerConfig) (*assessment.Recognition, error) {
	if c.apiKey == "" || c.region == "" {
		return nil, errors.New(errors.ErrAIService, "Azure Speech credentials not configured")
	}

	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("language", cfg.Language)
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audioData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	header, err := PronunciationHeader(cfg)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Pronunciation-Assessment", header)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json;text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &assessment.Recognition{
			Reason:              assessment.ReasonCanceled,
			CancellationDetails: fmt.Sprintf("azure speech api error %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	var result recognitionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch result.RecognitionStatus {
	case "Success":
		if len(result.NBest) == 0 {
			return &assessment.Recognition{Reason: assessment.ReasonNoMatch}, nil
		}
		best := result.NBest[0]
		return &assessment.Recognition{
			Reason:        assessment.ReasonRecognizedSpeech,
			Pronunciation: best.PronScore,
			Fluency:       best.FluencyScore,
			Completeness:  best.CompletenessScore,
			RawJSON:       body,
		}, nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return &assessment.Recognition{Reason: assessment.ReasonNoMatch}, nil
	case "Error":
		return &assessment.Recognition{
			Reason:              assessment.ReasonCanceled,
			CancellationDetails: fmt.Sprintf("azure speech recognition error: %s", string(body)),
		}, nil
	default:
		return &assessment.Recognition{Reason: assessment.ReasonUnknown, RawJSON: body}, nil
	}
}
