package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Job outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// JobMetrics holds the instruments recorded by the jobs. A nil *JobMetrics
// records nothing.
type JobMetrics struct {
	runs          metric.Int64Counter
	duration      metric.Float64Histogram
	stations      metric.Int64Counter
	fetchFailures metric.Int64Counter
	notifications metric.Int64Counter
	pushFailures  metric.Int64Counter
	buckets       metric.Int64Counter
}

// NewJobMetrics creates the job instruments on meter.
func NewJobMetrics(meter metric.Meter) (*JobMetrics, error) {
	m := &JobMetrics{}
	var err error

	if m.runs, err = meter.Int64Counter("cropi.job.runs",
		metric.WithDescription("Job runs by job and outcome")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("cropi.job.duration",
		metric.WithDescription("Job run duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.stations, err = meter.Int64Counter("cropi.stations.scanned",
		metric.WithDescription("Stations fetched and evaluated")); err != nil {
		return nil, err
	}
	if m.fetchFailures, err = meter.Int64Counter("cropi.fetch.failures",
		metric.WithDescription("Station fetches that failed")); err != nil {
		return nil, err
	}
	if m.notifications, err = meter.Int64Counter("cropi.notifications.persisted",
		metric.WithDescription("Notification records written")); err != nil {
		return nil, err
	}
	if m.pushFailures, err = meter.Int64Counter("cropi.push.failures",
		metric.WithDescription("Push deliveries that failed")); err != nil {
		return nil, err
	}
	if m.buckets, err = meter.Int64Counter("cropi.climate.buckets",
		metric.WithDescription("Occurrence climate buckets inserted")); err != nil {
		return nil, err
	}

	return m, nil
}

func jobAttr(job string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("job", job))
}

// RecordRun records one finished run of job.
func (m *JobMetrics) RecordRun(ctx context.Context, job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, d.Seconds(), jobAttr(job))
}

// StationScanned counts an evaluated station.
func (m *JobMetrics) StationScanned(ctx context.Context, job string) {
	if m == nil {
		return
	}
	m.stations.Add(ctx, 1, jobAttr(job))
}

// FetchFailed counts a failed station fetch.
func (m *JobMetrics) FetchFailed(ctx context.Context, job string) {
	if m == nil {
		return
	}
	m.fetchFailures.Add(ctx, 1, jobAttr(job))
}

// NotificationsSent counts persisted notifications and failed pushes.
func (m *JobMetrics) NotificationsSent(ctx context.Context, job string, persisted, pushFailures int) {
	if m == nil {
		return
	}
	if persisted > 0 {
		m.notifications.Add(ctx, int64(persisted), jobAttr(job))
	}
	if pushFailures > 0 {
		m.pushFailures.Add(ctx, int64(pushFailures), jobAttr(job))
	}
}

// BucketsInserted counts climate buckets written for an occurrence.
func (m *JobMetrics) BucketsInserted(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.buckets.Add(ctx, int64(n))
}
