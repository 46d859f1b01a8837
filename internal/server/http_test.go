package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/accent_coach/internal/assessment"
	"github.com/windfall/accent_coach/internal/audio"
	"github.com/windfall/accent_coach/internal/coaching"
	"github.com/windfall/accent_coach/internal/config"
	httphandler "github.com/windfall/accent_coach/internal/handler/http"
	"github.com/windfall/accent_coach/internal/repository"
	"github.com/windfall/accent_coach/internal/service"
)

type nopTranscoder struct{}

func (nopTranscoder) Transcode(context.Context, string, string) error { return nil }

func testRouter(t *testing.T, cfg *config.Config, history repository.HistoryStore) http.Handler {
	t.Helper()
	log := zerolog.Nop()
	svc := service.NewPracticeService(
		audio.NewNormalizer(nopTranscoder{}, log),
		assessment.NewAssessor(assessment.NewMockProvider(""), nil, log),
		coaching.NewDemoCoach(log),
		log,
		service.WithTempDir(t.TempDir()),
		service.WithHistory(history),
	)
	return NewRouter(cfg, log, nil, Handlers{
		Health:   httphandler.NewHealthHandler(httphandler.HealthInfo{CoachProvider: "openai", MockMode: true}),
		Practice: httphandler.NewPracticeHandler(log, svc, 1<<20),
		Sentence: httphandler.NewSentenceHandler(log, repository.NewInMemorySentenceRepository(repository.DefaultSentences)),
		History:  httphandler.NewHistoryHandler(log, history),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
}

func baseConfig() *config.Config {
	return &config.Config{
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		CORSAllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
	}
}

func token(t *testing.T, secret, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func get(h http.Handler, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := testRouter(t, baseConfig(), repository.NewInMemoryHistoryStore(10))

	for _, path := range []string{"/health", "/ready", "/live", "/metrics", "/api/v1/sentences", "/api/v1/sentences/1"} {
		assert.Equal(t, http.StatusOK, get(r, path, "").Code, path)
	}
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/unknown", "").Code)
}

func TestRouter_HistoryUsesTokenSubject(t *testing.T) {
	cfg := baseConfig()
	cfg.JWTSecret = "s3cret"
	store := repository.NewInMemoryHistoryStore(10)
	require.NoError(t, store.Save(context.Background(), "user-7", repository.Attempt{ID: "a1"}))
	r := testRouter(t, cfg, store)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/history", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/history", token(t, "wrong", "user-7")).Code)

	rec := get(r, "/api/v1/history/a1", token(t, "s3cret", "user-7"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"a1"`)
}

func TestRouter_HistoryRejectsUnverifiedTokens(t *testing.T) {
	store := repository.NewInMemoryHistoryStore(10)
	require.NoError(t, store.Save(context.Background(), "victim", repository.Attempt{ID: "private", Coaching: "private tips"}))
	r := testRouter(t, baseConfig(), store)

	forged := token(t, "attacker-key", "victim")
	for _, path := range []string{"/api/v1/history", "/api/v1/history/private"} {
		rec := get(r, path, forged)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "private tips")
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	list, err := store.List(context.Background(), "victim", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRouter_EnforcedAuthBlocksAnonymousAnalyze(t *testing.T) {
	cfg := baseConfig()
	cfg.EnforceAuth = true
	r := testRouter(t, cfg, repository.NewInMemoryHistoryStore(10))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := testRouter(t, baseConfig(), repository.NewInMemoryHistoryStore(10))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
