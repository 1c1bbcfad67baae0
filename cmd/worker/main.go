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

	"github.com/kirillkom/document-ledger/internal/bootstrap"
	"github.com/kirillkom/document-ledger/internal/config"
	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/observability/logging"
	"github.com/kirillkom/document-ledger/internal/observability/metrics"
)

// The worker is an audit consumer: it records every document status change
// published by the API.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.New(logging.Options{Service: "worker", Level: cfg.LogLevel, Format: cfg.LogFormat}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := bootstrap.NewEventQueue(cfg, nil)
	if err != nil {
		slog.Error("worker_bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer queue.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = queue.SubscribeStatusChanged(ctx, func(_ context.Context, event domain.StatusEvent) error {
		lag := time.Since(event.At)
		slog.Info("status_event_observed",
			"document_id", event.DocumentID,
			"name", event.Name,
			"from", string(event.From),
			"to", string(event.To),
			"version", event.Version,
			"lag_ms", lag.Milliseconds(),
		)
		workerMetrics.ObserveEvent(string(event.To), lag, nil)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker_subscribe_failed", "error", err.Error())
		os.Exit(1)
	}
}
