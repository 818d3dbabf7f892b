// Command etl loads monthly snowpack observations from the NRCS report
// generator into the document store. It runs the configured request plan
// once and exits non-zero on the first failure.
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

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/snowpack-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/snowpack-etl/internal/adapter/kafka"
	"github.com/couchcryptid/snowpack-etl/internal/adapter/postgres"
	"github.com/couchcryptid/snowpack-etl/internal/adapter/wcis"
	"github.com/couchcryptid/snowpack-etl/internal/config"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reqs, err := cfg.Requests()
	if err != nil {
		return err
	}

	client := wcis.NewClient(cfg.ReportBaseURL, cfg.ReportTimeout, cfg.ReportMaxRetries, logger, metrics)
	transformer := pipeline.NewTransformer(cfg.RegionFilter(), logger)

	var (
		loaders []pipeline.BatchLoader
		health  httpadapter.HealthChecker
	)

	if cfg.WriteToDB {
		if err := resolvePassword(&cfg.Database); err != nil {
			return err
		}
		pool, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		store := postgres.NewStore(pool, cfg.StationCacheSize, logger, metrics)
		defer store.Close()

		if err := store.EnsureCollections(ctx); err != nil {
			return err
		}
		loaders = append(loaders, store)
		health = store
		logger.Info("document store ready", "host", cfg.Database.Host, "database", cfg.Database.Name)
	} else {
		logger.Info("database writes disabled")
	}

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger, metrics)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("observation events enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(client, transformer, pipeline.NewFanout(loaders...),
		clockwork.NewRealClock(), cfg.RequestDelay, logger, metrics)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, health, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	sum, err := p.Run(ctx, reqs)
	if err != nil {
		return fmt.Errorf("run %s: %w", sum.RunID, err)
	}

	logger.Info("load complete",
		"run_id", sum.RunID,
		"requests", sum.Completed,
		"stations_created", sum.Load.StationsCreated,
		"observations_created", sum.Load.ObservationsCreated,
		"observations_duplicate", sum.Load.ObservationsDuplicate,
		"events_published", sum.Load.EventsPublished,
	)
	return nil
}
