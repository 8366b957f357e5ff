package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/healthsync/internal/app"
	"example.com/healthsync/internal/config"
	"example.com/healthsync/internal/consumer"
	"example.com/healthsync/internal/observability"
	httptransport "example.com/healthsync/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(os.Stdout, "healthsync-consumer", cfg.LogLevel)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}
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

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.ConsumerGroupID,
		GroupTopics:    cfg.ConsumerTopics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	defer reader.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		metricsCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress, 0)
		if err := httptransport.ListenAndServe(ctx, metricsCfg, mux, logger); err != nil {
			logger.Error("metrics server error", "error", err)
		}
	}()

	handler := consumer.NewExportHandler(bridgeApp.Runner, cfg.Preferences)
	processor := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger))

	logger.Info("healthsync-consumer started", "topics", cfg.ConsumerTopics, "group", cfg.ConsumerGroupID)
	if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		observability.CaptureError(ctx, err, map[string]string{"component": "consumer"})
	}
}
