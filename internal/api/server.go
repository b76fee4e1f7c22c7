package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// Service is the application surface the HTTP layer exposes.
type Service interface {
	RunAnalysis(ctx context.Context, date string) (models.OutlierReport, error)
	GetReport(ctx context.Context, date string) (models.OutlierReport, error)
	ListReports(ctx context.Context, limit int) ([]models.OutlierReport, error)
	Patterns(ctx context.Context, lookback int) ([]models.RecurringPattern, error)
}

// Server hosts the JSON API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the router and the underlying http.Server.
func NewServer(addr string, svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyses", h.runAnalysis)
		r.Get("/analyses", h.listReports)
		r.Get("/analyses/{date}", h.getReport)
		r.Get("/patterns", h.patterns)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
