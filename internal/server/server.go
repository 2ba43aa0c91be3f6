// Package server assembles the HTTP and WebSocket API of the ladder planner.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ladderplan/ladderd/internal/domain"
	"github.com/ladderplan/ladderd/internal/metrics"
	"github.com/ladderplan/ladderd/internal/server/handler"
	"github.com/ladderplan/ladderd/internal/server/middleware"
	"github.com/ladderplan/ladderd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKeyHash  string // empty disables authentication
	RateLimit   int    // requests per RateWindow per client IP; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Planners *handler.PlannerHandler
	Trades   *handler.TradeHandler
	Prices   *handler.PriceHandler
	Audit    *handler.AuditHandler
	Archives *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer registers every route on a ServeMux and wires the middleware
// chain: CORS, request logging, metrics, rate limiting and API-key auth.
// Health and metrics stay outside auth so probes and scrapers need no key.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())

	api := http.NewServeMux()

	api.HandleFunc("POST /api/planners", handlers.Planners.CreatePlanner)
	api.HandleFunc("GET /api/planners", handlers.Planners.ListPlanners)
	api.HandleFunc("GET /api/planners/{id}", handlers.Planners.GetPlanner)
	api.HandleFunc("GET /api/planners/{id}/view", handlers.Planners.GetPlannerView)
	api.HandleFunc("PUT /api/planners/{id}", handlers.Planners.UpdatePlanner)
	api.HandleFunc("DELETE /api/planners/{id}", handlers.Planners.DeletePlanner)
	api.HandleFunc("POST /api/planners/{id}/archive", handlers.Planners.ArchivePlanner)

	api.HandleFunc("POST /api/planners/{id}/trades", handlers.Trades.AddTrade)
	api.HandleFunc("GET /api/planners/{id}/trades", handlers.Trades.ListTrades)
	api.HandleFunc("DELETE /api/planners/{id}/trades/{tradeID}", handlers.Trades.DeleteTrade)
	api.HandleFunc("POST /api/planners/{id}/trades/import", handlers.Trades.ImportTrades)
	api.HandleFunc("GET /api/planners/{id}/trades/export", handlers.Trades.ExportTrades)

	api.HandleFunc("GET /api/prices/{asset}", handlers.Prices.GetPrice)
	api.HandleFunc("GET /api/audit", handlers.Audit.ListAudit)

	api.HandleFunc("GET /api/archives", handlers.Archives.ListArchives)
	api.HandleFunc("GET /api/archives/{key...}", handlers.Archives.DownloadArchive)
	api.HandleFunc("DELETE /api/archives/{key...}", handlers.Archives.DeleteArchive)

	if wsHub != nil {
		api.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Authenticated subtree.
	var authed http.Handler = api
	authed = middleware.Auth(cfg.APIKeyHash)(authed)
	if limiter != nil && cfg.RateLimit > 0 {
		authed = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(authed)
	}
	mux.Handle("/api/", authed)
	mux.Handle("/ws", authed)

	var h http.Handler = mux
	h = metrics.Middleware(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
