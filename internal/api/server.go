package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/rservers/RightClaw-Build/internal/api/handler"
	mw "github.com/rservers/RightClaw-Build/internal/api/middleware"
	"github.com/rservers/RightClaw-Build/internal/config"
	"github.com/rservers/RightClaw-Build/internal/tier"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	corePool       *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
	tiers          *tier.Resolver
}

// NewServer builds the event API. coreDB may be nil when no database is
// configured; readiness then only checks Temporal.
func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, temporalClient temporalclient.Client, cfg *config.Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		corePool:       coreDB,
		temporalClient: temporalClient,
		cfg:            cfg,
		tiers:          tier.NewResolver(cfg.Tiers, cfg.ProductGroup),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKey(s.cfg.APIKey))

		event := handler.NewEvent(s.temporalClient, s.tiers, s.cfg.Settings(), s.logger)
		r.Post("/events/{event}", event.Receive)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.corePool != nil {
		if err := s.corePool.Ping(ctx); err != nil {
			checks["core_db"] = err.Error()
			healthy = false
		} else {
			checks["core_db"] = "ok"
		}
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
