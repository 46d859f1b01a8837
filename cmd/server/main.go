package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/assessment"
	"github.com/windfall/accent_coach/internal/audio"
	"github.com/windfall/accent_coach/internal/client"
	"github.com/windfall/accent_coach/internal/coaching"
	"github.com/windfall/accent_coach/internal/config"
	apperrors "github.com/windfall/accent_coach/internal/errors"
	"github.com/windfall/accent_coach/internal/handler/http"
	"github.com/windfall/accent_coach/internal/logger"
	"github.com/windfall/accent_coach/internal/observe"
	"github.com/windfall/accent_coach/internal/repository"
	"github.com/windfall/accent_coach/internal/server"
	"github.com/windfall/accent_coach/internal/service"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Environment).Str("version", version).Msg("Starting accent_coach")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "accent_coach",
		ServiceVersion: version,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	metrics := telemetry.Metrics

	if cfg.JWTSecret == "" {
		const msg = "JWT_SECRET not set, tokens are not verified and history endpoints are disabled"
		if cfg.IsDevelopment() {
			log.Info().Msg(msg)
		} else {
			log.Warn().Msg(msg)
		}
	}

	// Assessment
	provider := newAssessmentProvider(cfg, log)
	assessor := assessment.NewAssessor(provider, metrics, log)

	// Coaching
	coach, err := newCoach(ctx, cfg, metrics, log)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.CoachProvider).Msg("Failed to initialize coaching provider")
	}

	// Initialize Redis client
	var redisClient *client.RedisClient
	var history repository.HistoryStore
	if cfg.RedisURL != "" {
		redisClient, err = client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Redis client, history kept in memory")
		} else {
			history = repository.NewRedisHistoryStore(redisClient, cfg.HistoryMaxEntries, cfg.HistoryTTL)
			log.Info().Msg("Redis history store initialized")
		}
	}
	if history == nil {
		history = repository.NewInMemoryHistoryStore(cfg.HistoryMaxEntries)
	}

	// Initialize Postgres client
	var postgresClient *client.PostgresClient
	var sentences repository.SentenceRepository
	if cfg.DatabaseURL != "" {
		postgresClient, err = client.NewPostgresClient(ctx, cfg.DatabaseURL, client.PostgresOptions{
			MaxConns:       cfg.DatabaseMaxConns,
			MaxIdleTime:    5 * time.Minute,
			ConnectTimeout: cfg.DatabaseConnectTimeout,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Postgres client")
		} else {
			sentences = repository.NewPostgresSentenceRepository(postgresClient)
			log.Info().Msg("Postgres sentence repository initialized")
		}
	}
	if sentences == nil {
		sentences = repository.NewInMemorySentenceRepository(repository.DefaultSentences)
	}

	opts := []service.PracticeOption{
		service.WithHistory(history),
		service.WithTempDir(cfg.AudioTempDir),
		service.WithDefaultStrictness(cfg.DefaultStrictness),
		service.WithMetrics(metrics),
	}

	// Recording archive: Cloudflare R2 (S3 protocol), else Cloud Storage
	var storageClient *client.StorageClient
	if cfg.CloudflareConfigured() {
		cloudflareClient, err := client.NewCloudflareClient(ctx,
			cfg.CloudflareAccessKeyID,
			cfg.CloudflareSecretKey,
			cfg.CloudflareR2Endpoint,
			cfg.CloudflareBucketName,
			cfg.CloudflarePublicURL,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Cloudflare client")
		} else {
			opts = append(opts, service.WithUploader(cloudflareClient))
			log.Info().Msg("Cloudflare R2 recording archive enabled")
		}
	} else if cfg.GCSRecordingsBucket != "" {
		storageClient, err = client.NewStorageClient(ctx, cfg.GCSRecordingsBucket)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Cloud Storage client")
		} else {
			opts = append(opts, service.WithUploader(storageClient))
			log.Info().Str("bucket", cfg.GCSRecordingsBucket).Msg("Cloud Storage recording archive enabled")
		}
	}

	// Initialize Pub/Sub client
	var pubsubClient *client.PubSubClient
	if cfg.PubSubConfigured() {
		pubsubClient, err = client.NewPubSubClient(ctx, cfg.PubSubProjectID, cfg.PubSubTopicID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Pub/Sub client")
		} else {
			opts = append(opts, service.WithPublisher(pubsubClient))
			log.Info().Str("topic", cfg.PubSubTopicID).Msg("Attempt events enabled")
		}
	}

	normalizer := audio.NewNormalizer(audio.NewFFmpegTranscoder(cfg.FFmpegPath), log)
	practiceService := service.NewPracticeService(normalizer, assessor, coach, log, opts...)

	// Initialize handlers
	healthHandler := http.NewHealthHandler(http.HealthInfo{
		AzureConfigured: cfg.AzureSpeechConfigured(),
		CoachConfigured: !coach.Demo(),
		CoachProvider:   cfg.CoachProvider,
		MockMode:        assessor.Mock(),
	})

	if redisClient != nil {
		healthHandler.AddCheck("redis", redisClient.Ping)
	}
	if postgresClient != nil {
		healthHandler.AddCheck("postgres", postgresClient.Ping)
	}

	httpServer := server.NewHTTPServer(cfg, log, metrics, server.Handlers{
		Health:   healthHandler,
		Practice: http.NewPracticeHandler(log, practiceService, cfg.MaxUploadBytes),
		Sentence: http.NewSentenceHandler(log, sentences),
		History:  http.NewHistoryHandler(log, history),
		Metrics:  telemetry.Handler(),
	})

	// Start server
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Str("assessment_provider", assessor.ProviderName()).
		Str("coach_provider", cfg.CoachProvider).
		Bool("coach_demo", coach.Demo()).
		Msg("Server started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	healthHandler.SetReady(false)
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Close clients
	if pubsubClient != nil {
		pubsubClient.Close()
	}
	if storageClient != nil {
		storageClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if postgresClient != nil {
		postgresClient.Close()
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Telemetry shutdown error")
	}

	log.Info().Msg("Server stopped")
}

// newAssessmentProvider picks the live Azure provider or the mock fallback.
func newAssessmentProvider(cfg *config.Config, log zerolog.Logger) assessment.Provider {
	switch {
	case cfg.AssessmentProvider == config.AssessmentMock:
		log.Warn().Msg("Azure Speech provider disabled, using mock assessment")
		return assessment.NewMockProvider(assessment.MockReasonProviderDisabled)
	case !cfg.AzureSpeechConfigured():
		log.Warn().Msg("AZURE_SPEECH_KEY or AZURE_SPEECH_REGION not set, using mock assessment")
		return assessment.NewMockProvider(assessment.MockReasonNoCredentials)
	}

	speech := client.NewAzureSpeechClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, cfg.AzureSpeechTimeout)
	log.Info().Str("region", cfg.AzureSpeechRegion).Msg("Azure Speech client initialized")
	return assessment.NewLiveProvider(speech, cfg.AzureSpeechLanguage, log)
}

// Gemini constructors, replaced in tests.
var (
	newGeminiClient       = client.NewGeminiClient
	newVertexGeminiClient = client.NewVertexGeminiClient
)

// newCoach builds the coach for the configured provider. Demo tips are used
// only when the provider has no credential.
func newCoach(ctx context.Context, cfg *config.Config, metrics *observe.Metrics, log zerolog.Logger) (*coaching.Coach, error) {
	if !cfg.CoachConfigured() {
		log.Warn().Str("provider", cfg.CoachProvider).Msg("Coaching provider not configured, using demo tips")
		return coaching.NewDemoCoach(log), nil
	}

	switch cfg.CoachProvider {
	case config.CoachAzureOpenAI:
		chat := client.NewAzureChatClient(cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIKey, cfg.CoachTimeout)
		return coaching.NewCoach(chat, apperrors.ServiceAzureOpenAI, metrics, log), nil

	case config.CoachGemini:
		var (
			gemini *client.GeminiClient
			err    error
		)
		if cfg.GeminiAPIKey != "" {
			gemini, err = newGeminiClient(ctx, cfg.GeminiAPIKey)
		} else {
			gemini, err = newVertexGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPLocation)
		}
		if err != nil {
			return nil, err
		}
		gemini = gemini.WithModel(cfg.GeminiModel)
		log.Info().Str("model", gemini.Model()).Msg("Gemini coach initialized")
		return coaching.NewCoach(gemini, apperrors.ServiceGemini, metrics, log), nil

	default:
		openai := client.NewOpenAIClient(cfg.OpenAIAPIKey).WithModel(cfg.OpenAIModel)
		log.Info().Str("model", openai.Model()).Msg("OpenAI coach initialized")
		return coaching.NewCoach(openai, apperrors.ServiceOpenAI, metrics, log), nil
	}
}
