package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/covid-data-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/covid-data-service/internal/adapter/kafka"
	"github.com/couchcryptid/covid-data-service/internal/adapter/source"
	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/couchcryptid/covid-data-service/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	policy, err := domain.ParseAggregationPolicy(cfg.VaccinationAggregation)
	if err != nil {
		logger.Error("invalid vaccination aggregation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := source.Build(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to set up source cache", "error", err)
		os.Exit(1)
	}

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	deps := pipeline.Deps{
		Loader:      stack.Loader,
		Invalidator: stack.Fetcher,
		Logger:      logger,
		Metrics:     metrics,
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		deps.Publisher = writer
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	p := pipeline.New(deps, cfg.RefreshInterval)
	views := pipeline.NewViews(p, policy, cfg.TopN, nil, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, httpadapter.NewAPI(views, p, logger), logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh scheduler.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("refresh scheduler did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := stack.Close(); err != nil {
		logger.Error("source cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}
