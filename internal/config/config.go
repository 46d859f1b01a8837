package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Coaching providers.
const (
	CoachOpenAI      = "openai"
	CoachAzureOpenAI = "azure"
	CoachGemini      = "gemini"
)

// Assessment providers.
const (
	AssessmentAzure = "azure"
	AssessmentMock  = "mock"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8080"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Azure AI Speech (pronunciation assessment)
	AzureSpeechKey      string        `envconfig:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion   string        `envconfig:"AZURE_SPEECH_REGION"`
	AzureSpeechLanguage string        `envconfig:"AZURE_SPEECH_LANGUAGE" default:"en-US"`
	AzureSpeechTimeout  time.Duration `envconfig:"AZURE_SPEECH_TIMEOUT" default:"30s"`
	AssessmentProvider  string        `envconfig:"ASSESSMENT_PROVIDER" default:"azure"`

	// Coaching
	CoachProvider       string        `envconfig:"COACH_PROVIDER" default:"openai"`
	CoachTimeout        time.Duration `envconfig:"COACH_TIMEOUT" default:"60s"`
	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel         string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	AzureOpenAIEndpoint string        `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIKey      string        `envconfig:"AZURE_OPENAI_KEY"`
	GeminiAPIKey        string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel         string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GCPProjectID        string        `envconfig:"GCP_PROJECT_ID"`
	GCPLocation         string        `envconfig:"GCP_LOCATION" default:"us-central1"`

	// Audio
	FFmpegPath     string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	AudioTempDir   string `envconfig:"AUDIO_TEMP_DIR"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// Pipeline
	DefaultStrictness int `envconfig:"DEFAULT_STRICTNESS" default:"3"`

	// Redis (attempt history)
	RedisURL          string        `envconfig:"REDIS_URL"`
	HistoryMaxEntries int           `envconfig:"HISTORY_MAX_ENTRIES" default:"100"`
	HistoryTTL        time.Duration `envconfig:"HISTORY_TTL" default:"720h"`

	// Database (practice sentences)
	DatabaseURL            string        `envconfig:"DATABASE_URL"`
	DatabaseMaxConns       int32         `envconfig:"DATABASE_MAX_CONNS" default:"8"`
	DatabaseConnectTimeout time.Duration `envconfig:"DATABASE_CONNECT_TIMEOUT" default:"5s"`

	// Cloudflare R2 (recording archive)
	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflarePublicURL   string `envconfig:"CLOUDFLARE_PUBLIC_URL"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// Google Cloud Storage (recording archive when R2 is not configured)
	GCSRecordingsBucket string `envconfig:"GCS_RECORDINGS_BUCKET"`

	// Pub/Sub (attempt events)
	PubSubProjectID string `envconfig:"PUBSUB_PROJECT_ID"`
	PubSubTopicID   string `envconfig:"PUBSUB_TOPIC_ID"`

	// Auth
	JWTSecret   string `envconfig:"JWT_SECRET"`
	EnforceAuth bool   `envconfig:"ENFORCE_AUTH" default:"false"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Authorization,Content-Type,X-Request-ID"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated and ranged settings.
func (c *Config) Validate() error {
	switch c.AssessmentProvider {
	case AssessmentAzure, AssessmentMock:
	default:
		return fmt.Errorf("invalid ASSESSMENT_PROVIDER %q (use %s or %s)", c.AssessmentProvider, AssessmentAzure, AssessmentMock)
	}
	switch c.CoachProvider {
	case CoachOpenAI, CoachAzureOpenAI, CoachGemini:
	default:
		return fmt.Errorf("invalid COACH_PROVIDER %q (use %s, %s or %s)", c.CoachProvider, CoachOpenAI, CoachAzureOpenAI, CoachGemini)
	}
	if c.DefaultStrictness < 1 || c.DefaultStrictness > 5 {
		return fmt.Errorf("DEFAULT_STRICTNESS must be between 1 and 5, got %d", c.DefaultStrictness)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AzureSpeechConfigured reports whether both the key and the region are set.
func (c *Config) AzureSpeechConfigured() bool {
	return c.AzureSpeechKey != "" && c.AzureSpeechRegion != ""
}

// CoachConfigured reports whether the selected coaching provider has a credential.
func (c *Config) CoachConfigured() bool {
	switch c.CoachProvider {
	case CoachAzureOpenAI:
		return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIKey != ""
	case CoachGemini:
		return c.GeminiAPIKey != "" || c.GCPProjectID != ""
	default:
		return c.OpenAIAPIKey != ""
	}
}

// CloudflareConfigured reports whether R2 uploads can be enabled.
func (c *Config) CloudflareConfigured() bool {
	return c.CloudflareAccessKeyID != "" && c.CloudflareSecretKey != "" &&
		c.CloudflareR2Endpoint != "" && c.CloudflareBucketName != ""
}

// PubSubConfigured reports whether attempt events can be published.
func (c *Config) PubSubConfigured() bool {
	return c.PubSubProjectID != "" && c.PubSubTopicID != ""
}
