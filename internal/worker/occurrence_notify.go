package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cropi/cropi/internal/notification"
	"github.com/cropi/cropi/internal/occurrence"
	"github.com/cropi/cropi/internal/pathogenic"
	"github.com/cropi/cropi/internal/telemetry"
)

// OccurrenceNotifyJobConfig holds the dependencies of an OccurrenceNotifyJob.
type OccurrenceNotifyJobConfig struct {
	Occurrences occurrence.Repository
	Pathogenics pathogenic.Repository
	Notifier    Notifier

	Metrics *telemetry.JobMetrics
	Tracer  trace.Tracer
	Logger  zerolog.Logger
}

// OccurrenceNotifyJob alerts the growers near a reported occurrence.
type OccurrenceNotifyJob struct {
	occurrences occurrence.Repository
	pathogenics pathogenic.Repository
	notifier    Notifier
	metrics     *telemetry.JobMetrics
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewOccurrenceNotifyJob creates an occurrence alert job.
func NewOccurrenceNotifyJob(cfg OccurrenceNotifyJobConfig) *OccurrenceNotifyJob {
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.Tracer("github.com/cropi/cropi/internal/worker")
	}
	return &OccurrenceNotifyJob{
		occurrences: cfg.Occurrences,
		pathogenics: cfg.Pathogenics,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger.With().Str("job", JobOccurrenceNotify).Logger(),
	}
}

// Run notifies the owners of plantations near the occurrence's plantation.
func (j *OccurrenceNotifyJob) Run(ctx context.Context, occurrenceID string) (*notification.Result, error) {
	ctx, span := j.tracer.Start(ctx, "worker.occurrence_notify",
		trace.WithAttributes(attribute.String("occurrence_id", occurrenceID)))
	defer span.End()

	start := time.Now()
	res, err := j.run(ctx, occurrenceID)
	j.metrics.RecordRun(ctx, JobOccurrenceNotify, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (j *OccurrenceNotifyJob) run(ctx context.Context, occurrenceID string) (*notification.Result, error) {
	occ, err := j.occurrences.Get(ctx, occurrenceID)
	if err != nil {
		return nil, fmt.Errorf("load occurrence %s: %w", occurrenceID, err)
	}

	p, err := j.pathogenics.GetWithCulture(ctx, occ.PathogenicID)
	if err != nil {
		return nil, fmt.Errorf("load pathogenic %d: %w", occ.PathogenicID, err)
	}

	res, err := j.notifier.NotifyNearby(ctx, occ.PlantationID, notification.Event{
		Template:   notification.OccurrenceTemplate,
		Pathogenic: p.Name,
		Culture:    p.Culture.Name,
	})
	if res != nil {
		j.metrics.NotificationsSent(ctx, JobOccurrenceNotify, res.Notified, res.DeliveryFailures)
	}
	if err != nil {
		return res, fmt.Errorf("notify nearby growers: %w", err)
	}

	j.logger.Info().
		Str("occurrence_id", occ.ID).
		Str("plantation_id", occ.PlantationID).
		Int("candidates", res.Candidates).
		Int("notified", res.Notified).
		Int("delivery_failures", res.DeliveryFailures).
		Msg("nearby growers notified")

	return res, nil
}
