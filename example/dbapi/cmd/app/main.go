package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/kroma-labs/dbtrace-go/example/dbapi/internal/config"
	"github.com/kroma-labs/dbtrace-go/example/dbapi/internal/database"
	"github.com/kroma-labs/dbtrace-go/example/dbapi/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// 1. Setup OpenTelemetry (Tracing + Metrics)
	shutdownTracing, shutdownMetrics, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to setup OTel")
	}
	defer func() {
		shutdownTracing(ctx)
		shutdownMetrics(ctx)
	}()

	// 2. Start Prometheus Metrics Server
	metricsServer := &http.Server{Addr: config.MetricsPort}
	go func() {
		logger.Info().Str("addr", config.MetricsPort).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	// 3. Open a traced database connection
	db, err := database.New(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("database unreachable")
	}
	if err := db.CreateTable(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to create table")
	}

	// 4. Perform database operations in a loop to generate spans
	tracer := otel.Tracer("example-app")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(config.OperationInterval) * time.Second)
	defer ticker.Stop()

	logger.Info().Msg("example app started, press Ctrl+C to stop")

	for {
		select {
		case <-ticker.C:
			ctx, span := tracer.Start(ctx, "db-operations")

			if err := db.InsertUsers(ctx, "alice", "bob"); err != nil {
				logger.Error().Err(err).Msg("failed to insert users")
			}

			if names, err := db.QueryUsers(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to query users")
			} else {
				logger.Info().Int("count", len(names)).Msg("queried users")
			}

			if err := db.RenameUser(ctx, 1, "carol"); err != nil {
				logger.Error().Err(err).Msg("failed scoped rename")
			}

			if err := db.RefreshRollups(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to refresh rollups")
			}

			span.End()
			logger.Info().Msg("database operations completed")

		case <-sigChan:
			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
			return
		}
	}
}
