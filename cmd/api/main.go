// Command api is the Speetto monitoring API server.
//
// Usage:
//
//	speetto-api
//	API_PORT=8080 speetto-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/speettolab/speetto-monitor/internal/api"
	"github.com/speettolab/speetto-monitor/internal/cache"
	"github.com/speettolab/speetto-monitor/internal/config"
	"github.com/speettolab/speetto-monitor/internal/db"
	"github.com/speettolab/speetto-monitor/internal/monitor"
	"github.com/speettolab/speetto-monitor/internal/schedule"
	"github.com/speettolab/speetto-monitor/internal/sms"
	"github.com/speettolab/speetto-monitor/internal/source"
	"github.com/speettolab/speetto-monitor/internal/speetto"
	"github.com/speettolab/speetto-monitor/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	st := store.NewPostgres(pool)

	// Seed the configured recipient. Additional recipients are rows, not
	// code: insert them into the same table.
	if err := st.UpsertRecipient(ctx, store.Recipient{
		Phone:  cfg.RecipientPhone,
		Games:  speetto.AllGames,
		Active: true,
	}); err != nil {
		logger.Error("Failed to seed recipient", "error", err)
		os.Exit(1)
	}

	// SMS client; nil when credentials are missing, in which case readings
	// are still collected but no alerts go out.
	smsClient := sms.NewClient(sms.DefaultBaseURL, cfg.SolapiAPIKey, cfg.SolapiSecretKey, cfg.SendTimeout, logger)
	if smsClient == nil {
		logger.Warn("SMS delivery disabled (no SOLAPI credentials)")
	}

	fetcher := source.NewClient(cfg.SourceURL, cfg.FetchTimeout, logger)
	mon := monitor.New(fetcher, st, smsClient, cfg.SenderPhone, logger)

	// Periodic monitoring runs
	go schedule.Start(ctx, mon, cfg.MonitorInterval, logger)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Create router
	router := api.NewRouter(st, mon, pool, appCache, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Speetto Monitor API",
			"addr", addr,
			"environment", cfg.Environment,
			"interval", cfg.MonitorInterval)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
