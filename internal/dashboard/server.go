// Package dashboard serves the local web dashboard: a JSON API over the
// automation engine and the time tracker, a websocket feed of rule
// executions and the Prometheus metrics endpoint.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/analytics"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/schema"
)

// RuleService is the engine surface the dashboard drives.
type RuleService interface {
	ListRules() ([]rules.Rule, error)
	GetRule(id string) (rules.Rule, error)
	AddRule(rule rules.Rule) (rules.Rule, error)
	RemoveRule(id string) (bool, error)
	EnableRule(id string) (rules.Rule, bool, error)
	DisableRule(id string) (rules.Rule, bool, error)
	RunRule(ctx context.Context, id string, force bool) (actions.Report, error)
	Running() bool
	Jobs() []string
	NextRun(id string) (time.Time, bool)
}

// TimerService is the time tracker surface the dashboard drives.
type TimerService interface {
	StartTimer(ctx context.Context, activity, project string) (schema.TimeEntry, error)
	StopTimer(ctx context.Context) (*schema.TimeEntry, error)
	CurrentEntry() (*schema.TimeEntry, error)
	Entries(date string) ([]schema.TimeEntry, error)
	TotalToday() (float64, error)
	TotalThisWeek() (float64, error)
}

// AnalyticsService produces the weekly summary.
type AnalyticsService interface {
	Generate(ctx context.Context) (analytics.Weekly, error)
}

// Server is the dashboard HTTP server.
type Server struct {
	rules     RuleService
	timer     TimerService
	analytics AnalyticsService
	hub       *Hub
	gatherer  prometheus.Gatherer
	origins   []string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAnalytics serves /api/analytics from a.
func WithAnalytics(a AnalyticsService) ServerOption {
	return func(s *Server) { s.analytics = a }
}

// NewServer creates the dashboard. gatherer may be nil to disable /metrics.
func NewServer(rs RuleService, ts TimerService, hub *Hub, gatherer prometheus.Gatherer, allowedOrigins []string, opts ...ServerOption) *Server {
	s := &Server{rules: rs, timer: ts, hub: hub, gatherer: gatherer, origins: allowedOrigins}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/ws", s.hub.ServeWS)
		if s.analytics != nil {
			r.Get("/analytics", s.handleAnalytics)
		}

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleAddRule)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRule)
				r.Delete("/", s.handleRemoveRule)
				r.Put("/enable", s.handleEnableRule)
				r.Put("/disable", s.handleDisableRule)
				r.Post("/run", s.handleRunRule)
			})
		})

		r.Route("/time", func(r chi.Router) {
			r.Get("/current", s.handleCurrentEntry)
			r.Get("/today", s.handleToday)
			r.Get("/week", s.handleWeek)
			r.Post("/start", s.handleStartTimer)
			r.Post("/stop", s.handleStopTimer)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("dashboard: listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard: shutdown: %w", err)
		}
		slog.Info("dashboard: stopped")
		return ctx.Err()
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("dashboard: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
