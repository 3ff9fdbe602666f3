package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownJob is returned for a job name the runner does not know.
	ErrUnknownJob = errors.New("unknown job")

	// ErrInvalidRequest is returned when a job argument is missing or malformed.
	ErrInvalidRequest = errors.New("invalid job request")

	// ErrJobUnavailable is returned when the job was not configured.
	ErrJobUnavailable = errors.New("job not configured")
)

// Request selects a job and its argument.
type Request struct {
	Job          string `json:"job"`
	OccurrenceID string `json:"occurrence_id,omitempty"`
	PathogenicID int64  `json:"pathogenic_id,string,omitempty"`
	StationCode  string `json:"station_code,omitempty"`
	Days         int    `json:"days,omitempty"`
}

// Validate checks that the job exists and has the argument it needs.
func (r Request) Validate() error {
	switch r.Job {
	case JobStationCatalog:
	case JobRiskProbability:
		if r.PathogenicID <= 0 {
			return fmt.Errorf("%w: %s needs a pathogenic id", ErrInvalidRequest, r.Job)
		}
	case JobOccurrenceClimate, JobOccurrenceNotify:
		if _, err := uuid.Parse(r.OccurrenceID); err != nil {
			return fmt.Errorf("%w: %s needs an occurrence id: %v", ErrInvalidRequest, r.Job, err)
		}
	case JobClimateReport:
		if strings.TrimSpace(r.StationCode) == "" {
			return fmt.Errorf("%w: %s needs a station code", ErrInvalidRequest, r.Job)
		}
		if r.Days < 0 {
			return fmt.Errorf("%w: days must not be negative", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, r.Job)
	}
	return nil
}

// RunnerConfig holds the jobs a Runner can start. Nil jobs are rejected
// with ErrJobUnavailable.
type RunnerConfig struct {
	StationCatalog    *StationCatalogJob
	RiskProbability   *RiskProbabilityJob
	OccurrenceClimate *OccurrenceClimateJob
	OccurrenceNotify  *OccurrenceNotifyJob
	ClimateReport     *ClimateReportJob

	// JobTimeout bounds jobs started with Dispatch.
	// Default: 30 minutes
	JobTimeout time.Duration

	Logger zerolog.Logger
}

// Runner starts jobs by name and keeps per-job counters.
type Runner struct {
	cfg     RunnerConfig
	logger  zerolog.Logger
	wg      sync.WaitGroup
	metrics *RunnerMetrics
}

// RunnerMetrics tracks job runs.
type RunnerMetrics struct {
	mu   sync.RWMutex
	jobs map[string]*JobStats
}

// JobStats holds the counters of one job.
type JobStats struct {
	Runs         int64
	Failures     int64
	InFlight     int64
	LastRunAt    time.Time
	LastDuration time.Duration
	LastError    string
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	return &Runner{
		cfg:     cfg,
		logger:  cfg.Logger.With().Str("component", "runner").Logger(),
		metrics: &RunnerMetrics{jobs: make(map[string]*JobStats)},
	}
}

// Run executes the requested job and waits for it.
func (r *Runner) Run(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	r.begin(req.Job)
	start := time.Now()
	err := r.run(ctx, req)
	r.end(req.Job, start, err)
	return err
}

func (r *Runner) run(ctx context.Context, req Request) error {
	switch req.Job {
	case JobStationCatalog:
		if r.cfg.StationCatalog == nil {
			return fmt.Errorf("%w: %s", ErrJobUnavailable, req.Job)
		}
		_, err := r.cfg.StationCatalog.Run(ctx)
		return err
	case JobRiskProbability:
		if r.cfg.RiskProbability == nil {
			return fmt.Errorf("%w: %s", ErrJobUnavailable, req.Job)
		}
		_, err := r.cfg.RiskProbability.Run(ctx, req.PathogenicID)
		return err
	case JobOccurrenceClimate:
		if r.cfg.OccurrenceClimate == nil {
			return fmt.Errorf("%w: %s", ErrJobUnavailable, req.Job)
		}
		_, err := r.cfg.OccurrenceClimate.Run(ctx, req.OccurrenceID)
		return err
	case JobOccurrenceNotify:
		if r.cfg.OccurrenceNotify == nil {
			return fmt.Errorf("%w: %s", ErrJobUnavailable, req.Job)
		}
		_, err := r.cfg.OccurrenceNotify.Run(ctx, req.OccurrenceID)
		return err
	case JobClimateReport:
		if r.cfg.ClimateReport == nil {
			return fmt.Errorf("%w: %s", ErrJobUnavailable, req.Job)
		}
		_, err := r.cfg.ClimateReport.Run(ctx, req.StationCode, req.Days)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, req.Job)
}

// Dispatch validates req and runs it in the background. The job is detached
// from ctx cancellation and bounded by the job timeout; its outcome is only
// logged.
func (r *Runner) Dispatch(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.JobTimeout)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		logger := r.logger.With().Str("job", req.Job).Logger()
		if err := r.Run(jobCtx, req); err != nil {
			logger.Error().Err(err).Msg("background job failed")
			return
		}
		logger.Debug().Msg("background job finished")
	}()

	return nil
}

// Wait blocks until every dispatched job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) begin(job string) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	r.metrics.stats(job).InFlight++
}

func (r *Runner) end(job string, start time.Time, err error) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()

	s := r.metrics.stats(job)
	s.InFlight--
	s.Runs++
	s.LastRunAt = start
	s.LastDuration = time.Since(start)
	s.LastError = ""
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	}
}

func (m *RunnerMetrics) stats(job string) *JobStats {
	s, ok := m.jobs[job]
	if !ok {
		s = &JobStats{}
		m.jobs[job] = s
	}
	return s
}

// GetStats returns a copy of the counters of job.
func (r *Runner) GetStats(job string) JobStats {
	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()

	if s, ok := r.metrics.jobs[job]; ok {
		return *s
	}
	return JobStats{}
}

// MetricsSnapshot returns the counters of every job that ran, keyed by job name.
func (r *Runner) MetricsSnapshot() map[string]interface{} {
	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()

	out := make(map[string]interface{}, len(r.metrics.jobs))
	for name, s := range r.metrics.jobs {
		entry := map[string]interface{}{
			"runs":          s.Runs,
			"failures":      s.Failures,
			"in_flight":     s.InFlight,
			"last_duration": s.LastDuration.String(),
		}
		if !s.LastRunAt.IsZero() {
			entry["last_run_at"] = s.LastRunAt
		}
		if s.LastError != "" {
			entry["last_error"] = s.LastError
		}
		out[name] = entry
	}
	return out
}
