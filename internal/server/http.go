package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/config"
	httphandler "github.com/windfall/accent_coach/internal/handler/http"
	"github.com/windfall/accent_coach/internal/middleware"
	"github.com/windfall/accent_coach/internal/observe"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Health   *httphandler.HealthHandler
	Practice *httphandler.PracticeHandler
	Sentence *httphandler.SentenceHandler
	History  *httphandler.HistoryHandler
	// Metrics serves the Prometheus scrape endpoint when set.
	Metrics http.Handler
}

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// NewRouter builds the route tree.
func NewRouter(cfg *config.Config, log zerolog.Logger, metrics *observe.Metrics, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(observe.Middleware(metrics))
	r.Use(chimiddleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Get("/live", h.Health.Live)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Secret:  cfg.JWTSecret,
			Enforce: cfg.EnforceAuth,
		}))

		r.Get("/sentences", h.Sentence.List)
		r.Get("/sentences/{id}", h.Sentence.Get)

		r.Post("/analyze", h.Practice.Analyze)
		r.Post("/assess", h.Practice.Assess)
		r.Post("/coach", h.Practice.Coach)

		r.Get("/history", h.History.List)
		r.Delete("/history", h.History.Clear)
		r.Get("/history/{id}", h.History.Get)
		r.Delete("/history/{id}", h.History.Delete)
	})

	return r
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(cfg *config.Config, log zerolog.Logger, metrics *observe.Metrics, h Handlers) *HTTPServer {
	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      NewRouter(cfg, log, metrics, h),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		log:    log,
	}
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
