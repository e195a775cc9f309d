package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oakfieldhq/backoffice/internal/ai"
	"github.com/oakfieldhq/backoffice/internal/api/handlers"
	"github.com/oakfieldhq/backoffice/internal/api/middleware"
	"github.com/oakfieldhq/backoffice/internal/application/categorize"
	"github.com/oakfieldhq/backoffice/internal/application/reconcile"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config      Config
	router      chi.Router
	httpServer  *http.Server
	logger      *slog.Logger
	repo        storage.Repository
	reconciler  *reconcile.Service
	categorizer *categorize.Service
	assistant   *ai.Assistant
}

// NewServer creates a new API server. The assistant may wrap a nil
// provider; the AI endpoint then answers with empty suggestions.
func NewServer(cfg Config, repo storage.Repository, reconciler *reconcile.Service, categorizer *categorize.Service, assistant *ai.Assistant, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if assistant == nil {
		assistant = ai.NewAssistant(nil, logger)
	}

	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		logger:      logger,
		repo:        repo,
		reconciler:  reconciler,
		categorizer: categorizer,
		assistant:   assistant,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))

	// Tenant scoping from the X-Tenant-ID header
	s.router.Use(middleware.Tenant())
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// Webhooks sit outside /api; the membership platform calls them
	// directly.
	webhooksHandler := handlers.NewWebhooksHandler(s.repo, s.logger)
	s.router.Post("/webhooks/membership", webhooksHandler.Receive)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Bank deposits
		depositsHandler := handlers.NewDepositsHandler(s.repo)
		r.Get("/deposits", depositsHandler.List)
		r.Get("/deposits/{id}", depositsHandler.Get)
		r.Post("/deposits", depositsHandler.Create)

		// Settlements and reconciliation
		settlementsHandler := handlers.NewSettlementsHandler(s.repo, s.reconciler)
		r.Get("/settlements", settlementsHandler.List)
		r.Post("/settlements", settlementsHandler.Create)
		r.Post("/deposits/{id}/matches", settlementsHandler.FindMatches)
		r.Post("/settlements/{id}/reconcile", settlementsHandler.ManualReconcile)

		// Categorization rules
		rulesHandler := handlers.NewRulesHandler(s.repo)
		r.Get("/rules", rulesHandler.List)
		r.Get("/rules/{id}", rulesHandler.Get)
		r.Post("/rules", rulesHandler.Create)
		r.Put("/rules/{id}", rulesHandler.Update)
		r.Delete("/rules/{id}", rulesHandler.Delete)

		// Pending categorization matches
		matchesHandler := handlers.NewMatchesHandler(s.repo, s.categorizer)
		r.Get("/matches", matchesHandler.List)
		r.Post("/matches/suggest", matchesHandler.Suggest)
		r.Post("/matches/{id}/approve", matchesHandler.Approve)
		r.Post("/matches/{id}/reject", matchesHandler.Reject)

		// Fee calculator
		feesHandler := handlers.NewFeesHandler(s.repo)
		r.Post("/fees/quote", feesHandler.Quote)
		r.Post("/fees/batch", feesHandler.Batch)

		// Vendors
		vendorsHandler := handlers.NewVendorsHandler(s.repo)
		r.Get("/vendors", vendorsHandler.List)
		r.Post("/vendors", vendorsHandler.Create)

		// AI assistant
		assistantHandler := handlers.NewAssistantHandler(s.repo, s.assistant)
		r.Post("/ai/suggest", assistantHandler.Suggest)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
