// Package server provides the HTTP server and routing for the terminal.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/papertrade/terminal/internal/config"
	"github.com/papertrade/terminal/internal/database"
	"github.com/papertrade/terminal/internal/modules/accounts"
	accounthandlers "github.com/papertrade/terminal/internal/modules/accounts/handlers"
	"github.com/papertrade/terminal/internal/modules/marketdata"
	marketdatahandlers "github.com/papertrade/terminal/internal/modules/marketdata/handlers"
	"github.com/papertrade/terminal/internal/modules/portfolio"
	portfoliohandlers "github.com/papertrade/terminal/internal/modules/portfolio/handlers"
	"github.com/papertrade/terminal/internal/modules/trading"
	tradinghandlers "github.com/papertrade/terminal/internal/modules/trading/handlers"
)

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	Config   *config.Config
	LedgerDB *database.DB
	CacheDB  *database.DB

	Tokens            *accounts.TokenService
	AccountService    *accounts.Service
	TradeEngine       *trading.Engine
	TradeRepo         *trading.TradeRepository
	PortfolioService  *portfolio.Service
	MarketDataService *marketdata.Service
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
	system *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		system: NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.LedgerDB, cfg.CacheDB),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.system.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Auth and public market data need no token
		accountHandler := accounthandlers.NewHandler(s.cfg.AccountService, s.log)
		accountHandler.RegisterRoutes(r, s.cfg.Tokens)

		marketDataHandler := marketdatahandlers.NewHandler(s.cfg.MarketDataService, s.log)
		marketDataHandler.RegisterRoutes(r)

		// System monitoring
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.system.HandleSystemStatus)
			r.Get("/database/stats", s.system.HandleDatabaseStats)
		})

		// Everything touching an account requires a token
		r.Group(func(r chi.Router) {
			r.Use(accounts.RequireAuth(s.cfg.Tokens))

			tradingHandler := tradinghandlers.NewHandler(s.cfg.TradeEngine, s.cfg.TradeRepo, s.cfg.MarketDataService, s.log)
			tradingHandler.RegisterRoutes(r)

			portfolioHandler := portfoliohandlers.NewHandler(s.cfg.PortfolioService, s.log)
			portfolioHandler.RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Config.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
