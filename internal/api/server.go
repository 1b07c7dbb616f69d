package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/api/handler"
	mw "github.com/edvin/opsportal/internal/api/middleware"
	"github.com/edvin/opsportal/internal/backup"
	"github.com/edvin/opsportal/internal/config"
	"github.com/edvin/opsportal/internal/metrics"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	cfg      *config.Config
	provider backup.Provider
	menus    handler.MenuSource
	gate     mw.Gate
}

func NewServer(logger zerolog.Logger, cfg *config.Config, provider backup.Provider, menus handler.MenuSource, gate mw.Gate) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		cfg:      cfg,
		provider: provider,
		menus:    menus,
		gate:     gate,
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

	var extra []string
	if s.cfg.AuthMode == config.AuthHeader {
		extra = append(extra, s.cfg.AuthPrincipalHeader)
	}
	s.router.Use(mw.CORS(s.cfg.CORSOrigins, extra...))
}

func (s *Server) setupRoutes() {
	if s.cfg.MetricsListenAddr == "" {
		s.router.Handle("/metrics", metrics.Handler())
	}

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.RequireInternal(s.gate))

		menu := handler.NewMenu(s.menus)
		r.Get("/menu", menu.List)

		b := handler.NewBackup(s.provider)
		r.Route("/backups", func(r chi.Router) {
			r.Get("/status", b.Status)
			r.Get("/repositories", b.ListRepositories)
			r.Route("/repositories/{org}/{project}/{repo}", func(r chi.Router) {
				r.Get("/versions", b.ListVersions)
				r.Post("/restore-preview", b.PreviewRestore)
				r.Post("/download-link", b.DownloadLink)
				r.Post("/restore", b.Restore)
			})
		})
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

	if err := s.provider.Ping(ctx); err != nil {
		checks["backups"] = err.Error()
		healthy = false
	} else {
		checks["backups"] = "ok"
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
