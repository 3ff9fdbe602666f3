// Package main runs a single crawler job from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/app"
	"github.com/cropi/cropi/internal/config"
	"github.com/cropi/cropi/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	const serviceName = "cropi-crawler"

	var req worker.Request
	flag.StringVar(&req.Job, "job", "", fmt.Sprintf("job to run %v", worker.Jobs))
	flag.StringVar(&req.OccurrenceID, "occurrence-id", "", "occurrence UUID for occurrence jobs")
	flag.Int64Var(&req.PathogenicID, "pathogenic-id", 0, "pathogenic ID for the risk probability job")
	flag.StringVar(&req.StationCode, "station", "", "station code for the climate report")
	flag.IntVar(&req.Days, "days", 0, "climate report window in days (default 7)")
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := zerolog.New(os.Stdout).
		Level(cfg.LogLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := req.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid job request")
		flag.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("build_time", BuildTime).Str("job", req.Job).Msg("starting crawler")

	a, err := app.Build(ctx, cfg, serviceName, Version, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize")
		return 1
	}
	defer a.Close()

	if req.Job == worker.JobClimateReport {
		report, err := a.ClimateReport.Run(ctx, req.StationCode, req.Days)
		if err != nil {
			log.Error().Err(err).Msg("climate report failed")
			return 1
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Error().Err(err).Msg("failed to write report")
			return 1
		}
		return 0
	}

	if err := a.Runner.Run(ctx, req); err != nil {
		log.Error().Err(err).Msg("job failed")
		return 1
	}

	log.Info().Msg("job finished")
	return 0
}
