// Package app wires configuration, storage, the browser and the push
// gateway into a job runner shared by the crawler and worker binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/browser"
	"github.com/cropi/cropi/internal/config"
	"github.com/cropi/cropi/internal/database"
	"github.com/cropi/cropi/internal/inmet"
	"github.com/cropi/cropi/internal/notification"
	"github.com/cropi/cropi/internal/occurrence"
	"github.com/cropi/cropi/internal/pathogenic"
	"github.com/cropi/cropi/internal/plantation"
	"github.com/cropi/cropi/internal/provider/resilience"
	"github.com/cropi/cropi/internal/push"
	"github.com/cropi/cropi/internal/station"
	"github.com/cropi/cropi/internal/telemetry"
	"github.com/cropi/cropi/internal/user"
	"github.com/cropi/cropi/internal/worker"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config    *config.Config
	Telemetry *telemetry.Provider
	Pool      *pgxpool.Pool
	Registry  *resilience.Registry
	Runner    *worker.Runner

	// ClimateReport is exposed so callers can print the buckets; the runner
	// only records the outcome.
	ClimateReport *worker.ClimateReportJob

	logger zerolog.Logger
}

// Build connects to the database and telemetry backend and assembles every job.
func Build(ctx context.Context, cfg *config.Config, serviceName, version string, logger zerolog.Logger) (*App, error) {
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if cfg.OTelEnabled {
		logger.Info().Str("otlp_endpoint", cfg.OTelEndpoint).Msg("OpenTelemetry initialized")
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")

	registry := resilience.NewRegistry()
	gateway, err := push.NewGateway(ctx, push.GatewayConfig{
		Driver:          cfg.Push.Driver,
		ProjectID:       cfg.Push.ProjectID,
		CredentialsFile: cfg.Push.CredentialsFile,
		Endpoint:        cfg.Push.Endpoint,
		Registry:        registry,
		Logger:          logger,
	})
	if err != nil {
		pool.Close()
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init push gateway: %w", err)
	}
	logger.Info().Str("driver", cfg.Push.Driver).Msg("push gateway initialized")

	driver := browser.NewChromeDriver(browser.ChromeConfig{
		RemoteURL:       cfg.Browser.RemoteURL,
		WindowWidth:     cfg.Browser.WindowWidth,
		WindowHeight:    cfg.Browser.WindowHeight,
		NavigateTimeout: cfg.Inmet.RenderTimeout,
		Logger:          logger,
	})
	fetcher := inmet.NewFetcher(inmet.FetcherConfig{
		Driver:        driver,
		StationURL:    cfg.Inmet.StationURL,
		CatalogURL:    cfg.Inmet.CatalogURL,
		RenderTimeout: cfg.Inmet.RenderTimeout,
		FetchTimeout:  cfg.Inmet.FetchTimeout,
		MaxRetries:    cfg.Inmet.FetchRetries,
		Location:      cfg.Inmet.Location,
		Logger:        logger,
	})

	stations := station.NewPostgresRepository(pool)
	users := user.NewPostgresRepository(pool)
	occurrences := occurrence.NewPostgresRepository(pool)
	pathogenics := pathogenic.NewPostgresRepository(pool)

	fanout := notification.NewFanout(notification.FanoutConfig{
		Plantations:  plantation.NewPostgresRepository(pool),
		Users:        users,
		Records:      notification.NewPostgresRepository(pool),
		Gateway:      gateway,
		RadiusMeters: cfg.NotifyRadiusMeters,
		Logger:       logger,
	})

	report := worker.NewClimateReportJob(worker.ClimateReportJobConfig{
		Fetcher: fetcher,
		Metrics: tp.Jobs,
		Logger:  logger,
	})

	runner := worker.NewRunner(worker.RunnerConfig{
		StationCatalog: worker.NewStationCatalogJob(worker.StationCatalogJobConfig{
			Fetcher:  fetcher,
			Stations: stations,
			Metrics:  tp.Jobs,
			Tracer:   tp.Tracer,
			Logger:   logger,
		}),
		RiskProbability: worker.NewRiskProbabilityJob(worker.RiskProbabilityJobConfig{
			Fetcher:     fetcher,
			Stations:    stations,
			Users:       users,
			Pathogenics: pathogenics,
			Notifier:    fanout,
			Concurrency: cfg.RiskConcurrency,
			Metrics:     tp.Jobs,
			Tracer:      tp.Tracer,
			Logger:      logger,
		}),
		OccurrenceClimate: worker.NewOccurrenceClimateJob(worker.OccurrenceClimateJobConfig{
			Fetcher:     fetcher,
			Occurrences: occurrences,
			Metrics:     tp.Jobs,
			Tracer:      tp.Tracer,
			Logger:      logger,
		}),
		OccurrenceNotify: worker.NewOccurrenceNotifyJob(worker.OccurrenceNotifyJobConfig{
			Occurrences: occurrences,
			Pathogenics: pathogenics,
			Notifier:    fanout,
			Metrics:     tp.Jobs,
			Tracer:      tp.Tracer,
			Logger:      logger,
		}),
		ClimateReport: report,
		JobTimeout:    cfg.JobTimeout,
		Logger:        logger,
	})

	return &App{
		Config:        cfg,
		Telemetry:     tp,
		Pool:          pool,
		Registry:      registry,
		Runner:        runner,
		ClimateReport: report,
		logger:        logger,
	}, nil
}

// Close waits for dispatched jobs, then releases the pool and flushes telemetry.
func (a *App) Close() {
	a.Runner.Wait()
	a.Pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("failed to shutdown telemetry")
	}
}
