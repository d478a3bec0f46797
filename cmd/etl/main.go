package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/iml-gddaiss/buoy-telemetry-etl/internal/adapter/http"
	kafkaadapter "github.com/iml-gddaiss/buoy-telemetry-etl/internal/adapter/kafka"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/adapter/platforms"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/config"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/domain"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/observability"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Platform enrichment is optional: without a platform file, events carry
	// only what the buoy transmitted.
	var registry domain.PlatformRegistry
	if cfg.PlatformFile != "" {
		reg, err := platforms.Load(cfg.PlatformFile)
		if err != nil {
			logger.Error("failed to load platform file", "path", cfg.PlatformFile, "error", err)
			os.Exit(1)
		}
		registry = reg
		logger.Info("platform registry loaded", "path", cfg.PlatformFile, "platforms", reg.Len())
	} else {
		logger.Info("platform enrichment disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(cfg.TelemetryFormat, cfg.TelemetryCentury, registry, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
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
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
