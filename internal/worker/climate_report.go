package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/risk"
	"github.com/cropi/cropi/internal/telemetry"
)

// ClimateReportJobConfig holds the dependencies of a ClimateReportJob.
type ClimateReportJobConfig struct {
	Fetcher StationFetcher
	Report  ReportConfig

	// Now returns the end of the reported period.
	// Default: time.Now
	Now func() time.Time

	Metrics *telemetry.JobMetrics
	Logger  zerolog.Logger
}

// ClimateReportJob lists the favorable temperature and humidity buckets a
// station observed over the last days.
type ClimateReportJob struct {
	fetcher StationFetcher
	report  ReportConfig
	now     func() time.Time
	metrics *telemetry.JobMetrics
	logger  zerolog.Logger
}

// NewClimateReportJob creates a report job.
func NewClimateReportJob(cfg ClimateReportJobConfig) *ClimateReportJob {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ClimateReportJob{
		fetcher: cfg.Fetcher,
		report:  cfg.Report.withDefaults(),
		now:     cfg.Now,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With().Str("job", JobClimateReport).Logger(),
	}
}

// ClimateReport holds the listed buckets, sorted by day then value.
type ClimateReport struct {
	StationCode string       `json:"station_code"`
	Window      risk.Window  `json:"window"`
	Readings    int          `json:"readings"`
	Temperature risk.Buckets `json:"temperature"`
	Humidity    risk.Buckets `json:"humidity"`
}

// Run reports on one station. days overrides the configured period when positive.
func (j *ClimateReportJob) Run(ctx context.Context, stationCode string, days int) (*ClimateReport, error) {
	start := time.Now()
	report, err := j.run(ctx, strings.TrimSpace(stationCode), days)
	j.metrics.RecordRun(ctx, JobClimateReport, time.Since(start), err)
	return report, err
}

func (j *ClimateReportJob) run(ctx context.Context, code string, days int) (*ClimateReport, error) {
	if days <= 0 {
		days = j.report.Days
	}

	report := &ClimateReport{
		StationCode: code,
		Window:      risk.Trailing(j.now(), time.Duration(days)*24*time.Hour),
	}

	readings, err := j.fetcher.Fetch(ctx, code, report.Window.Start)
	if err != nil {
		j.metrics.FetchFailed(ctx, JobClimateReport)
		return nil, fmt.Errorf("fetch station %s: %w", code, err)
	}
	j.metrics.StationScanned(ctx, JobClimateReport)
	report.Readings = len(readings)

	series := risk.Aggregate(readings, report.Window)
	report.Temperature = series.Temperature.Filter(func(b risk.Bucket) bool {
		return b.Value >= j.report.TemperatureMin && b.Value <= j.report.TemperatureMax
	})
	report.Humidity = series.Humidity.Filter(func(b risk.Bucket) bool {
		return b.Value >= j.report.HumidityMin
	})

	for _, b := range report.Temperature {
		j.logger.Info().
			Str("station_code", code).
			Str("day", b.Day.Format(time.DateOnly)).
			Float64("temperature", b.Value).
			Int("count", b.Count).
			Msg("temperature bucket")
	}
	for _, b := range report.Humidity {
		j.logger.Info().
			Str("station_code", code).
			Str("day", b.Day.Format(time.DateOnly)).
			Float64("humidity", b.Value).
			Int("count", b.Count).
			Msg("humidity bucket")
	}

	j.logger.Info().
		Str("station_code", code).
		Int("days", days).
		Int("readings", report.Readings).
		Int("temperature_samples", report.Temperature.Total()).
		Int("humidity_samples", report.Humidity.Total()).
		Msg("climate report completed")

	return report, nil
}
