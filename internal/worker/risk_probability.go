package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cropi/cropi/internal/browser"
	"github.com/cropi/cropi/internal/notification"
	"github.com/cropi/cropi/internal/pathogenic"
	"github.com/cropi/cropi/internal/risk"
	"github.com/cropi/cropi/internal/station"
	"github.com/cropi/cropi/internal/telemetry"
	"github.com/cropi/cropi/internal/user"
)

// RiskProbabilityJobConfig holds the dependencies of a RiskProbabilityJob.
type RiskProbabilityJobConfig struct {
	Fetcher     StationFetcher
	Stations    station.Repository
	Users       user.Repository
	Pathogenics pathogenic.Repository
	Notifier    Notifier

	// Thresholds decide when a station is at risk.
	// Default: risk.DefaultThresholds()
	Thresholds *risk.Thresholds

	// Concurrency is the number of stations fetched in parallel, one
	// browser session each.
	// Default: 1
	Concurrency int

	// Now returns the evaluation instant.
	// Default: time.Now
	Now func() time.Time

	Metrics *telemetry.JobMetrics
	Tracer  trace.Tracer
	Logger  zerolog.Logger
}

// RiskProbabilityJob scans the stations growing a pathogenic's culture and
// alerts their growers when the trailing window favors the disease.
type RiskProbabilityJob struct {
	fetcher     StationFetcher
	stations    station.Repository
	users       user.Repository
	pathogenics pathogenic.Repository
	notifier    Notifier
	thresholds  risk.Thresholds
	concurrency int
	now         func() time.Time
	metrics     *telemetry.JobMetrics
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewRiskProbabilityJob creates a risk scan job.
func NewRiskProbabilityJob(cfg RiskProbabilityJobConfig) *RiskProbabilityJob {
	thresholds := risk.DefaultThresholds()
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.Tracer("github.com/cropi/cropi/internal/worker")
	}

	return &RiskProbabilityJob{
		fetcher:     cfg.Fetcher,
		stations:    cfg.Stations,
		users:       cfg.Users,
		pathogenics: cfg.Pathogenics,
		notifier:    cfg.Notifier,
		thresholds:  thresholds,
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger.With().Str("job", JobRiskProbability).Logger(),
	}
}

// RiskResult contains the outcome of a risk scan.
type RiskResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	PathogenicID int64
	Stations     int
	Scanned      int
	Triggered    int
	Failed       int
	Errors       []StationError

	Notifications notification.Result
}

// StationError records a station whose scan failed.
type StationError struct {
	StationID   int64
	StationCode string
	Error       string
}

type stationResult struct {
	station    *station.Station
	evaluation risk.Evaluation
	fanout     *notification.Result
	err        error
}

// Run scans every active station with a plantation of the pathogenic's
// culture. A station failure only skips that station; a browser session
// failure aborts the run.
func (j *RiskProbabilityJob) Run(ctx context.Context, pathogenicID int64) (*RiskResult, error) {
	ctx, span := j.tracer.Start(ctx, "worker.risk_probability",
		trace.WithAttributes(attribute.Int64("pathogenic_id", pathogenicID)))
	defer span.End()

	result := &RiskResult{StartTime: time.Now(), PathogenicID: pathogenicID}
	err := j.run(ctx, pathogenicID, result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	j.metrics.RecordRun(ctx, JobRiskProbability, result.Duration, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	j.logger.Info().
		Int64("pathogenic_id", pathogenicID).
		Dur("duration", result.Duration).
		Int("stations", result.Stations).
		Int("scanned", result.Scanned).
		Int("triggered", result.Triggered).
		Int("failed", result.Failed).
		Int("notified", result.Notifications.Notified).
		Msg("risk scan completed")

	return result, nil
}

func (j *RiskProbabilityJob) run(ctx context.Context, pathogenicID int64, result *RiskResult) error {
	p, err := j.pathogenics.GetWithCulture(ctx, pathogenicID)
	if err != nil {
		return fmt.Errorf("load pathogenic %d: %w", pathogenicID, err)
	}

	all, err := j.stations.ListActiveByCulture(ctx, p.Culture.ID)
	if err != nil {
		return fmt.Errorf("list stations for culture %d: %w", p.Culture.ID, err)
	}

	stations := make([]*station.Station, 0, len(all))
	for _, s := range all {
		if s.Code != "" {
			stations = append(stations, s)
		}
	}
	result.Stations = len(stations)

	j.logger.Info().
		Int64("pathogenic_id", p.ID).
		Int64("culture_id", p.Culture.ID).
		Int("stations", len(stations)).
		Int("concurrency", j.concurrency).
		Msg("starting risk scan")

	ev := notification.Event{
		Template:   notification.RiskTemplate,
		Pathogenic: p.Name,
		Culture:    p.Culture.Name,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stationsChan := make(chan *station.Station, len(stations))
	resultsChan := make(chan stationResult, len(stations))

	var wg sync.WaitGroup
	for i := 0; i < j.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.scanWorker(runCtx, cancel, p.Culture.ID, ev, stationsChan, resultsChan)
		}()
	}

	for _, s := range stations {
		stationsChan <- s
	}
	close(stationsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var fatal error
	for sr := range resultsChan {
		result.Notifications.Add(sr.fanout)
		if sr.err != nil {
			if errors.Is(sr.err, browser.ErrSession) && fatal == nil {
				fatal = fmt.Errorf("station %s: %w", sr.station.Code, sr.err)
			}
			result.Failed++
			result.Errors = append(result.Errors, StationError{
				StationID:   sr.station.ID,
				StationCode: sr.station.Code,
				Error:       sr.err.Error(),
			})
			continue
		}

		result.Scanned++
		if sr.evaluation.Triggered {
			result.Triggered++
		}
	}

	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}

func (j *RiskProbabilityJob) scanWorker(ctx context.Context, abort context.CancelFunc, cultureID int64, ev notification.Event, stations <-chan *station.Station, results chan<- stationResult) {
	for s := range stations {
		if ctx.Err() != nil {
			// Drain so the remaining stations are reported as not scanned.
			results <- stationResult{station: s, err: ctx.Err()}
			continue
		}

		sr := j.scanStation(ctx, s, cultureID, ev)
		if errors.Is(sr.err, browser.ErrSession) {
			abort()
		}
		results <- sr
	}
}

func (j *RiskProbabilityJob) scanStation(ctx context.Context, s *station.Station, cultureID int64, ev notification.Event) stationResult {
	logger := j.logger.With().Int64("station_id", s.ID).Str("station_code", s.Code).Logger()
	sr := stationResult{station: s}

	now := j.now()
	readings, err := j.fetcher.Fetch(ctx, s.Code, now.Add(-j.thresholds.Window))
	if err != nil {
		logger.Warn().Err(err).Msg("station fetch failed")
		j.metrics.FetchFailed(ctx, JobRiskProbability)
		sr.err = err
		return sr
	}
	j.metrics.StationScanned(ctx, JobRiskProbability)

	sr.evaluation = j.thresholds.Evaluate(readings, now)
	logger.Debug().
		Int("readings", len(readings)).
		Int("temperature_samples", sr.evaluation.TemperatureSamples).
		Int("humidity_samples", sr.evaluation.HumiditySamples).
		Bool("triggered", sr.evaluation.Triggered).
		Msg("station evaluated")

	if !sr.evaluation.Triggered {
		return sr
	}

	growers, err := j.users.ListGrowersAtStation(ctx, s.ID, cultureID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list growers")
		sr.err = fmt.Errorf("list growers: %w", err)
		return sr
	}

	res, err := j.notifier.NotifyUsers(ctx, growers, ev)
	if err != nil {
		logger.Error().Err(err).Msg("fanout failed")
		sr.err = fmt.Errorf("notify growers: %w", err)
	}
	sr.fanout = res
	if res != nil {
		j.metrics.NotificationsSent(ctx, JobRiskProbability, res.Notified, res.DeliveryFailures)
		logger.Info().
			Int("growers", len(growers)).
			Int("notified", res.Notified).
			Int("delivery_failures", res.DeliveryFailures).
			Msg("station at risk, growers alerted")
	}

	return sr
}
