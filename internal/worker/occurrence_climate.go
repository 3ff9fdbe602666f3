package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cropi/cropi/internal/occurrence"
	"github.com/cropi/cropi/internal/risk"
	"github.com/cropi/cropi/internal/telemetry"
)

// ErrBucketsIncomplete is returned when some climate buckets failed to insert.
var ErrBucketsIncomplete = errors.New("climate buckets partially inserted")

// Reasons an occurrence backfill did nothing.
const (
	SkipHasBuckets = "has_buckets"
	SkipNoStation  = "no_station"
)

// OccurrenceClimateJobConfig holds the dependencies of an OccurrenceClimateJob.
type OccurrenceClimateJobConfig struct {
	Fetcher     StationFetcher
	Occurrences occurrence.Repository

	Metrics *telemetry.JobMetrics
	Tracer  trace.Tracer
	Logger  zerolog.Logger
}

// OccurrenceClimateJob stores the temperature and humidity buckets observed
// at the plantation's station during the days before an occurrence.
//
// An occurrence with any stored bucket is skipped, so a run interrupted
// halfway is never resumed.
type OccurrenceClimateJob struct {
	fetcher     StationFetcher
	occurrences occurrence.Repository
	metrics     *telemetry.JobMetrics
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewOccurrenceClimateJob creates a backfill job.
func NewOccurrenceClimateJob(cfg OccurrenceClimateJobConfig) *OccurrenceClimateJob {
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.Tracer("github.com/cropi/cropi/internal/worker")
	}
	return &OccurrenceClimateJob{
		fetcher:     cfg.Fetcher,
		occurrences: cfg.Occurrences,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger.With().Str("job", JobOccurrenceClimate).Logger(),
	}
}

// BackfillResult contains the outcome of a backfill.
type BackfillResult struct {
	OccurrenceID string
	StationCode  string

	// Skipped is empty when the backfill ran.
	Skipped string

	Window   risk.Window
	Readings int

	TemperatureBuckets int
	HumidityBuckets    int
	Failed             int
	Duration           time.Duration
}

// Run backfills the climate buckets of one occurrence.
func (j *OccurrenceClimateJob) Run(ctx context.Context, occurrenceID string) (*BackfillResult, error) {
	ctx, span := j.tracer.Start(ctx, "worker.occurrence_climate",
		trace.WithAttributes(attribute.String("occurrence_id", occurrenceID)))
	defer span.End()

	start := time.Now()
	result := &BackfillResult{OccurrenceID: occurrenceID}
	err := j.run(ctx, result)
	result.Duration = time.Since(start)

	j.metrics.RecordRun(ctx, JobOccurrenceClimate, result.Duration, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (j *OccurrenceClimateJob) run(ctx context.Context, result *BackfillResult) error {
	logger := j.logger.With().Str("occurrence_id", result.OccurrenceID).Logger()

	occ, err := j.occurrences.Get(ctx, result.OccurrenceID)
	if err != nil {
		return fmt.Errorf("load occurrence %s: %w", result.OccurrenceID, err)
	}
	result.StationCode = occ.StationCode

	has, err := j.occurrences.HasClimateBuckets(ctx, occ.ID)
	if err != nil {
		return fmt.Errorf("check climate buckets: %w", err)
	}
	if has {
		result.Skipped = SkipHasBuckets
		logger.Info().Msg("occurrence already has climate buckets, skipping")
		return nil
	}
	if !occ.HasStation() {
		result.Skipped = SkipNoStation
		logger.Warn().Msg("occurrence plantation has no station, skipping")
		return nil
	}

	event := inLocation(occ.OccurredAt, j.fetcher.Location())
	result.Window = risk.Window{Start: event.Add(-BackfillWindow), End: event}

	readings, err := j.fetcher.Fetch(ctx, occ.StationCode, result.Window.Start)
	if err != nil {
		j.metrics.FetchFailed(ctx, JobOccurrenceClimate)
		return fmt.Errorf("fetch station %s: %w", occ.StationCode, err)
	}
	result.Readings = len(readings)

	series := risk.Aggregate(readings, result.Window)

	for _, b := range series.Temperature {
		if err := j.occurrences.InsertTemperatureBucket(ctx, occ.ID, b); err != nil {
			logger.Error().Err(err).Time("day", b.Day).Float64("temperature", b.Value).Msg("failed to insert temperature bucket")
			result.Failed++
			continue
		}
		result.TemperatureBuckets++
	}
	for _, b := range series.Humidity {
		if err := j.occurrences.InsertHumidityBucket(ctx, occ.ID, b); err != nil {
			logger.Error().Err(err).Time("day", b.Day).Float64("humidity", b.Value).Msg("failed to insert humidity bucket")
			result.Failed++
			continue
		}
		result.HumidityBuckets++
	}
	j.metrics.BucketsInserted(ctx, result.TemperatureBuckets+result.HumidityBuckets)

	logger.Info().
		Str("station_code", occ.StationCode).
		Int("readings", result.Readings).
		Int("temperature_buckets", result.TemperatureBuckets).
		Int("humidity_buckets", result.HumidityBuckets).
		Int("failed", result.Failed).
		Msg("occurrence climate backfilled")

	if result.Failed > 0 {
		return fmt.Errorf("occurrence %s: %d of %d: %w", occ.ID, result.Failed,
			len(series.Temperature)+len(series.Humidity), ErrBucketsIncomplete)
	}
	return nil
}

// inLocation reads the wall clock of t as a time in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
