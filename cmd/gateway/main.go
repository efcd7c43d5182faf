package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lumenlist/authgate/internal/background"
	"github.com/lumenlist/authgate/internal/config"
	"github.com/lumenlist/authgate/internal/guard"
	"github.com/lumenlist/authgate/internal/handlers"
	middlewareCustom "github.com/lumenlist/authgate/internal/middleware"
	"github.com/lumenlist/authgate/internal/observability"
	"github.com/lumenlist/authgate/internal/routes"
	"github.com/lumenlist/authgate/internal/routing"
	"github.com/lumenlist/authgate/internal/session"
	"github.com/lumenlist/authgate/internal/upstream"
	"github.com/lumenlist/authgate/pkg/httpx"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("backend", cfg.Backend.BaseURL))

	// Error capture (no-op without a DSN)
	if err := observability.InitSentry(cfg.Server.SentryDSN, cfg.Server.Env); err != nil {
		logger.Error("failed to initialize sentry", slog.Any("error", err))
		os.Exit(1)
	}
	defer observability.FlushSentry()

	// Gateway components
	classifier := routing.NewClassifier(cfg.Backend.APIPrefix, cfg.Backend.ChatPrefix)

	loopGuard := guard.New(guard.Config{
		VerifyBudget:  cfg.Guard.VerifyBudget,
		DefaultBudget: cfg.Guard.DefaultBudget,
		ResetWindow:   cfg.Guard.ResetWindow,
	}, logger)

	forwarder, err := upstream.NewForwarder(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	if err != nil {
		logger.Error("failed to initialize forwarder", slog.Any("error", err))
		os.Exit(1)
	}

	normalizer := upstream.NewNormalizer(logger)

	jar := session.NewJar(session.Config{
		Name:     cfg.Cookie.Name,
		Domain:   cfg.Cookie.Domain,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSite,
		MaxAge:   cfg.Cookie.MaxAge,
	})

	gateway := handlers.NewGateway(classifier, loopGuard, forwarder, normalizer, jar, logger)

	// Counter eviction sweeper
	sweepManager := background.NewSweepManager(loopGuard, logger, cfg.Guard.SweepInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, &httpx.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middlewareCustom.Recover(logger))
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, gateway, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
	})

	// Health check with backend reachability probe
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := forwarder.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","backend":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","backend":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweep task
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweepManager.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting gateway", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweepManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("gateway stopped gracefully")
}
