package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/api/models"
	"github.com/cropi/cropi/internal/api/response"
	"github.com/cropi/cropi/internal/worker"
)

// Dispatcher starts jobs in the background. *worker.Runner implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req worker.Request) error
}

// JobsHandler queues jobs and answers before they run.
type JobsHandler struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(dispatcher Dispatcher, logger zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "jobs_handler").Logger(),
	}
}

// RiskProbability handles POST /v1/jobs/risk-probability?pathogenic_id=.
func (h *JobsHandler) RiskProbability(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("pathogenic_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, r, "pathogenic_id must be a positive integer", []models.FieldError{
			{Field: "pathogenic_id", Message: "must be a positive integer", Code: "INVALID"},
		})
		return
	}

	h.dispatch(w, r, worker.Request{Job: worker.JobRiskProbability, PathogenicID: id})
}

// StationCatalog handles POST /v1/jobs/station-catalog.
func (h *JobsHandler) StationCatalog(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, worker.Request{Job: worker.JobStationCatalog})
}

// NotifyOccurrence handles POST /v1/occurrences/{occurrenceId}/notify.
func (h *JobsHandler) NotifyOccurrence(w http.ResponseWriter, r *http.Request) {
	h.occurrenceJob(w, r, worker.JobOccurrenceNotify)
}

// OccurrenceClimate handles POST /v1/occurrences/{occurrenceId}/climate.
func (h *JobsHandler) OccurrenceClimate(w http.ResponseWriter, r *http.Request) {
	h.occurrenceJob(w, r, worker.JobOccurrenceClimate)
}

func (h *JobsHandler) occurrenceJob(w http.ResponseWriter, r *http.Request, job string) {
	id := chi.URLParam(r, "occurrenceId")
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(w, r, "occurrenceId must be a UUID", []models.FieldError{
			{Field: "occurrenceId", Message: "must be a UUID", Code: "INVALID"},
		})
		return
	}

	h.dispatch(w, r, worker.Request{Job: job, OccurrenceID: id})
}

func (h *JobsHandler) dispatch(w http.ResponseWriter, r *http.Request, req worker.Request) {
	err := h.dispatcher.Dispatch(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, worker.ErrInvalidRequest), errors.Is(err, worker.ErrUnknownJob):
		response.BadRequest(w, r, err.Error(), nil)
		return
	default:
		h.logger.Error().Err(err).Str("job", req.Job).Msg("failed to dispatch job")
		response.ServiceUnavailable(w, r, "job could not be started")
		return
	}

	h.logger.Info().
		Str("job", req.Job).
		Str("occurrence_id", req.OccurrenceID).
		Int64("pathogenic_id", req.PathogenicID).
		Msg("job accepted")

	response.Accepted(w, r, models.JobAccepted{
		Job:          req.Job,
		OccurrenceID: req.OccurrenceID,
		PathogenicID: req.PathogenicID,
		AcceptedAt:   models.Timestamp(time.Now()),
	})
}
