// WakeFi - Stake-to-Wake Commitment Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/wakefi/wakefid/internal/api"
	"github.com/wakefi/wakefid/internal/challenge"
	"github.com/wakefi/wakefid/internal/config"
	"github.com/wakefi/wakefid/internal/events"
	"github.com/wakefi/wakefid/internal/identity"
	"github.com/wakefi/wakefid/internal/ledger"
	"github.com/wakefi/wakefid/internal/middleware"
	"github.com/wakefi/wakefid/internal/scheduler"
	"github.com/wakefi/wakefid/internal/session"
	"github.com/wakefi/wakefid/internal/store"
	"github.com/wakefi/wakefid/internal/streak"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	gateway, err := ledger.NewGatewayClient(cfg.Ledger, logger)
	if err != nil {
		slog.Error("Failed to initialize ledger gateway client", "error", err)
		os.Exit(1)
	}
	slog.Info("Ledger gateway client ready", "gateway_url", cfg.Ledger.GatewayURL, "sink_account", cfg.Ledger.SinkAccount)

	// Initialize services.
	commitments := scheduler.New(gateway, cfg.Ledger.SinkAccount, cfg.MinStake, cfg.GracePeriod, logger)
	streaks := streak.NewCounter(repo, logger)
	provider := challenge.NewNewsProvider(cfg.NewsFeedURL, logger)
	broadcaster := events.NewBroadcaster(logger)

	sessions := session.NewManager(session.Deps{
		Scheduler:        commitments,
		Streaks:          streaks,
		Provider:         provider,
		Repo:             repo,
		Publisher:        broadcaster,
		ChallengeSeconds: cfg.ChallengeSeconds,
		Logger:           logger,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, sessions, streaks)
	sessionHandler := api.NewSessionHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := events.NewWebSocketHandler(broadcaster, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.Ledger.OperatorID, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware (no auth needed).
	sessionHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/session", wsHandler.ServeHTTP)

	// Create server.
	// Note: WebSocket connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start the ring watcher.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartRingWatcher(ctx, cfg.RingPollInterval)
	slog.Info("Ring watcher started", "interval", cfg.RingPollInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
