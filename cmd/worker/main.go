package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lexvn/legal-assistant/internal/config"
	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/infrastructure/queue/nats"
	"github.com/lexvn/legal-assistant/internal/infrastructure/resilience"
	"github.com/lexvn/legal-assistant/internal/observability/logging"
	"github.com/lexvn/legal-assistant/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if cfg.NATSURL == "" {
		return errors.New("NATS_URL is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer queue.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = queue.SubscribeInteractions(ctx, func(_ context.Context, record domain.InteractionRecord) error {
		started := time.Now()
		workerMetrics.StartInteraction()
		defer func() { workerMetrics.FinishInteraction(serviceName, time.Since(started), nil) }()

		if !record.CreatedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(record.CreatedAt))
		}
		workerMetrics.CountInteraction(serviceName, string(record.Mode), record.Status)
		logger.Info("interaction_received",
			"interaction_id", record.ID,
			"request_id", record.RequestID,
			"mode", record.Mode,
			"intent", record.Intent,
			"status", record.Status,
			"selection_path", record.SelectionPath,
			"candidates", record.CandidateCount,
			"used_docs", len(record.UsedDocIDs),
			"overflow_retried", record.OverflowRetried,
			"duration_ms", record.DurationMS,
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("subscribe interactions: %w", err)
	}
	return nil
}
