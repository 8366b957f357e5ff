package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/healthsync/internal/api"
	"example.com/healthsync/internal/app"
	"example.com/healthsync/internal/auth"
	"example.com/healthsync/internal/config"
	"example.com/healthsync/internal/observability"
	httptransport "example.com/healthsync/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(os.Stdout, "healthsync-api", cfg.LogLevel)

	if err := observability.InitSentry(observability.SentryConfig{DSN: cfg.SentryDSN, Environment: cfg.Environment}, logger); err != nil {
		logger.Error("sentry init failed", "error", err)
	}
	defer observability.FlushSentry(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridgeApp, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire bridge", "error", err)
		os.Exit(1)
	}
	defer bridgeApp.Close()

	go bridgeApp.Runner.Start(ctx)

	handler := api.NewHandler(bridgeApp.Runner, bridgeApp.Status, bridgeApp.Resetter,
		api.WithAuth(auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithLogger(logger),
	)

	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress, cfg.SyncRoundTimeout)
	if err := httptransport.ListenAndServe(ctx, serverCfg, handler.Router(), logger); err != nil {
		logger.Error("server error", "error", err)
		observability.CaptureError(ctx, err, map[string]string{"component": "http"})
	}

	stop()
	bridgeApp.Runner.Wait()
	logger.Info("healthsync-api stopped")
}
