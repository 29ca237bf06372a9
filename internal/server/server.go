// Package server exposes analysis sessions over HTTP: upload a dataset,
// confirm the column mapping, then read the dashboard or ask questions.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/KaramelBytes/ags-analyzer/internal/insight"
	"github.com/KaramelBytes/ags-analyzer/internal/metrics"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
	"github.com/KaramelBytes/ags-analyzer/internal/session"
)

const defaultMaxUpload = 32 << 20

type Config struct {
	Logger         *slog.Logger
	Store          *session.Store
	Answerer       session.Answerer // optional; without it /ask answers 503
	CORSOrigins    []string
	MaxUploadBytes int64
	AskRate        rate.Limit
	AskBurst       int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("session store is required")
	}
	if cfg.Answerer == nil {
		cfg.Answerer = unavailable{}
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.AskRate <= 0 {
		cfg.AskRate = rate.Every(time.Minute / 10)
	}
	if cfg.AskBurst <= 0 {
		cfg.AskBurst = 3
	}
	return nil
}

type unavailable struct{}

func (unavailable) Run(context.Context, retrieval.Payload, string) (*insight.Answer, error) {
	return nil, insight.ErrNoRuntime
}

type Server struct {
	log        *slog.Logger
	cfg        Config
	router     *chi.Mux
	askLimiter *RateLimiter
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		log:        cfg.Logger,
		cfg:        cfg,
		router:     chi.NewRouter(),
		askLimiter: NewRateLimiter(cfg.AskRate, cfg.AskBurst),
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/dataset", s.handleUpload)
			r.Get("/preview", s.handlePreview)
			r.Post("/schema", s.handleConfirmSchema)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/payload", s.handlePayload)
			r.With(s.askLimiter.Middleware).Post("/ask", s.handleAsk)
		})
	})
}

type sessionKey struct{}

// withSession resolves {id} and stores the session in the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.cfg.Store.Get(chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.Scope().SetTag("session", sess.ID)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}
