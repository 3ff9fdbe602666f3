package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cropi/cropi/internal/station"
	"github.com/cropi/cropi/internal/telemetry"
)

// ErrCatalogSync is returned when no catalog row could be stored.
var ErrCatalogSync = errors.New("station catalog sync failed")

// StationCatalogJobConfig holds the dependencies of a StationCatalogJob.
type StationCatalogJobConfig struct {
	Fetcher  StationFetcher
	Stations station.Repository

	Metrics *telemetry.JobMetrics
	Tracer  trace.Tracer
	Logger  zerolog.Logger
}

// StationCatalogJob mirrors the INMET automatic station catalog into the
// stations table.
type StationCatalogJob struct {
	fetcher  StationFetcher
	stations station.Repository
	metrics  *telemetry.JobMetrics
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewStationCatalogJob creates a catalog sync job.
func NewStationCatalogJob(cfg StationCatalogJobConfig) *StationCatalogJob {
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.Tracer("github.com/cropi/cropi/internal/worker")
	}
	return &StationCatalogJob{
		fetcher:  cfg.Fetcher,
		stations: cfg.Stations,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger.With().Str("job", JobStationCatalog).Logger(),
	}
}

// CatalogResult contains the outcome of a catalog sync.
type CatalogResult struct {
	Entries  int
	Created  int
	Updated  int
	Failed   int
	Duration time.Duration
}

// Run fetches the catalog and upserts every entry by station code. Row
// failures are logged; the run fails only when every row failed.
func (j *StationCatalogJob) Run(ctx context.Context) (*CatalogResult, error) {
	ctx, span := j.tracer.Start(ctx, "worker.station_catalog")
	defer span.End()

	start := time.Now()
	result := &CatalogResult{}
	err := j.run(ctx, result)
	result.Duration = time.Since(start)

	j.metrics.RecordRun(ctx, JobStationCatalog, result.Duration, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (j *StationCatalogJob) run(ctx context.Context, result *CatalogResult) error {
	entries, err := j.fetcher.FetchCatalog(ctx)
	if err != nil {
		j.metrics.FetchFailed(ctx, JobStationCatalog)
		return fmt.Errorf("fetch catalog: %w", err)
	}
	result.Entries = len(entries)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		created, err := j.stations.Upsert(ctx, station.FromCatalog(e))
		if err != nil {
			j.logger.Error().Err(err).Str("station_code", e.Code).Msg("failed to upsert station")
			result.Failed++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	j.logger.Info().
		Int("entries", result.Entries).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("station catalog synced")

	if result.Entries > 0 && result.Failed == result.Entries {
		return fmt.Errorf("%w: all %d rows failed", ErrCatalogSync, result.Failed)
	}
	return nil
}
