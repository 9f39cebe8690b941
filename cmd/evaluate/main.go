// Package main is a one-shot evaluation tool: it runs the full pipeline once
// for a coordinate pair and prints the resulting assessment as JSON. Useful
// for calibration work and debugging provider trouble without standing up the
// whole engine.
//
// Usage:
//
//	evaluate -lat 6.45 -lon 2.35 [-subscriber farmer-17] [-validate]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pestwatch/internal/config"
	"pestwatch/internal/engine"
	"pestwatch/internal/history"
	"pestwatch/internal/observability"
	"pestwatch/internal/risk"
	"pestwatch/internal/types"
	"pestwatch/internal/weather"
)

func main() {
	lat := flag.Float64("lat", 0, "latitude of the point to evaluate")
	lon := flag.Float64("lon", 0, "longitude of the point to evaluate")
	subscriber := flag.String("subscriber", "", "subscriber id for the pest-history lookup (optional)")
	validate := flag.Bool("validate", false, "force cross-validation against secondary providers")
	flag.Parse()

	if err := run(*lat, *lon, *subscriber, *validate); err != nil {
		fmt.Fprintln(os.Stderr, "evaluate:", err)
		os.Exit(1)
	}
}

func run(lat, lon float64, subscriber string, validate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Quiet logger: diagnostics go to stderr, the assessment to stdout.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	providers, err := weather.NewRegistry(cfg.Providers, logger)
	if err != nil {
		return err
	}

	evaluator := engine.NewEvaluator(engine.EvaluatorConfig{
		Providers:          providers,
		Model:              risk.NewModel(cfg.Risk),
		History:            history.StaticSource{Days: cfg.Risk.HistoryUnknownDays},
		Metrics:            observability.NewMetricsForTesting(),
		Logger:             logger,
		FetchTimeout:       cfg.Providers.Timeout,
		FanoutLimit:        cfg.Providers.FanoutLimit,
		DefaultHistoryDays: cfg.Risk.HistoryUnknownDays,
	})

	ctx := context.Background()
	loc := types.Location{Lat: lat, Lon: lon}

	var assessment types.RiskAssessment
	if validate {
		assessment, err = evaluator.EvaluateValidated(ctx, loc, subscriber)
	} else {
		assessment, err = evaluator.Evaluate(ctx, loc, subscriber)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(assessment)
}
