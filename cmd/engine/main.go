// Package main is the entrypoint for the PestWatch risk engine: the HTTP API,
// the three recurring sweeps, and the outbound alert transport, wired from
// environment configuration.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"pestwatch/internal/api"
	"pestwatch/internal/config"
	"pestwatch/internal/engine"
	"pestwatch/internal/history"
	"pestwatch/internal/observability"
	"pestwatch/internal/queue"
	"pestwatch/internal/registry"
	"pestwatch/internal/risk"
	"pestwatch/internal/scheduler"
	"pestwatch/internal/weather"
)

func main() {
	if err := run(); err != nil {
		slog.Error("engine exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("engine starting",
		"service", cfg.Service,
		"environment", cfg.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	repo, closeRepo, err := registry.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	providers, err := weather.NewRegistry(cfg.Providers, logger)
	if err != nil {
		return err
	}

	transport, err := newTransport(ctx, cfg.Transport, logger)
	if err != nil {
		return err
	}

	evaluator := engine.NewEvaluator(engine.EvaluatorConfig{
		Providers:          providers,
		Model:              risk.NewModel(cfg.Risk),
		History:            newHistorySource(repo, cfg, logger),
		Metrics:            metrics,
		Logger:             logger,
		FetchTimeout:       cfg.Providers.Timeout,
		FanoutLimit:        cfg.Providers.FanoutLimit,
		DefaultHistoryDays: cfg.Risk.HistoryUnknownDays,
	})

	sweeper := scheduler.NewSweeper(scheduler.SweeperConfig{
		Store:           repo,
		Evaluator:       evaluator,
		Transport:       transport,
		Metrics:         metrics,
		Logger:          logger,
		Cooldown:        cfg.Scheduler.Cooldown,
		SubscriberDelay: cfg.Scheduler.SubscriberDelay,
	})
	runner := scheduler.NewRunner(sweeper, cfg.Scheduler, metrics, logger, nil)
	runner.Start(ctx)
	defer runner.Stop()

	service := engine.NewService(repo, evaluator, logger)
	server := api.NewServer(cfg.Server, api.NewHandler(service, logger), runner.IsRunning, logger)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("engine stopped")
	return nil
}

// newLogger builds the process-wide JSON logger at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("service", cfg.Service)
}

// newHistorySource picks the pest-history lookup. The incident table lives in
// the same Postgres database as the registry, so a Postgres-backed registry
// shares its pool; every other backend falls back to the static default.
func newHistorySource(repo registry.Repository, cfg *config.Config, logger *slog.Logger) history.Source {
	if pg, ok := repo.(*registry.PostgresRepository); ok {
		logger.Info("pest history source ready", "driver", "postgres")
		return history.NewPostgresSource(pg.DB(), cfg.Risk.HistoryUnknownDays)
	}
	logger.Info("pest history source ready", "driver", "static",
		"days", cfg.Risk.HistoryUnknownDays)
	return history.StaticSource{Days: cfg.Risk.HistoryUnknownDays}
}

// newTransport builds the configured alert transport.
func newTransport(ctx context.Context, cfg config.TransportConfig, logger *slog.Logger) (scheduler.Transport, error) {
	switch cfg.Kind {
	case "sqs":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, err
		}
		return queue.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.QueueURL, logger), nil
	default:
		return queue.NewLogTransport(logger), nil
	}
}
