// Package main is the entry point for the paper trading terminal.
// The service exposes an HTTP API for simulated trading with virtual money
// against live market prices: accounts, order execution, portfolio valuation
// and market data lookups.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/papertrade/terminal/internal/clients/yahoo"
	"github.com/papertrade/terminal/internal/config"
	"github.com/papertrade/terminal/internal/database"
	"github.com/papertrade/terminal/internal/modules/accounts"
	"github.com/papertrade/terminal/internal/modules/marketdata"
	"github.com/papertrade/terminal/internal/modules/portfolio"
	"github.com/papertrade/terminal/internal/modules/trading"
	"github.com/papertrade/terminal/internal/scheduler"
	"github.com/papertrade/terminal/internal/server"
	"github.com/papertrade/terminal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting paper trading terminal")

	// Two databases: ledger.db holds the money (full durability), cache.db
	// holds quote snapshots that can be lost without consequence.
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Repositories
	accountRepo := accounts.NewAccountRepository(ledgerDB.Conn(), log)
	positionRepo := portfolio.NewPositionRepository(ledgerDB.Conn(), log)
	tradeRepo := trading.NewTradeRepository(ledgerDB.Conn(), log)
	cacheRepo := marketdata.NewCacheRepository(cacheDB.Conn(), log)

	// Services
	yahooClient := yahoo.NewClient(cfg.QuoteBaseURL, log)
	marketDataService := marketdata.NewService(yahooClient, cacheRepo, cfg.MarketSuffix, log)

	tokens := accounts.NewTokenService(cfg.JWTSecret)
	accountService := accounts.NewService(accountRepo, tokens, cfg.StartingBalance, log)
	tradeEngine := trading.NewEngine(ledgerDB.Conn(), accountRepo, positionRepo, tradeRepo, log)
	portfolioService := portfolio.NewService(positionRepo, accountRepo, marketDataService, log)

	// Background jobs
	sched := scheduler.New(log)

	indicesJob := marketdata.NewIndicesRefreshJob(marketDataService, log)
	if err := sched.AddJob("@every 1m", indicesJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register indices refresh job")
	}

	pruneJob := marketdata.NewCachePruneJob(cacheRepo, 24*time.Hour, log)
	if err := sched.AddJob("@hourly", pruneJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache prune job")
	}

	sched.Start()
	defer sched.Stop()

	// Warm the index cache so the first dashboard load has data
	if err := sched.RunNow(indicesJob); err != nil {
		log.Warn().Err(err).Msg("Initial index refresh failed")
	}

	srv := server.New(server.Config{
		Log:               log,
		Config:            cfg,
		LedgerDB:          ledgerDB,
		CacheDB:           cacheDB,
		Tokens:            tokens,
		AccountService:    accountService,
		TradeEngine:       tradeEngine,
		TradeRepo:         tradeRepo,
		PortfolioService:  portfolioService,
		MarketDataService: marketDataService,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Give in-flight requests up to 10 seconds to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
