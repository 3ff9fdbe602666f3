// Package handler provides the HTTP handlers of the worker API.
package handler

import (
	"net/http"
	"time"

	"github.com/cropi/cropi/internal/api/models"
	"github.com/cropi/cropi/internal/api/response"
	"github.com/cropi/cropi/internal/provider/resilience"
)

// JobStats exposes job counters. *worker.Runner implements it.
type JobStats interface {
	MetricsSnapshot() map[string]interface{}
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	jobs      JobStats
}

// NewOpsHandler creates a new OpsHandler. registry and jobs may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, jobs JobStats) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		jobs:      jobs,
	}
}

// HealthCheck handles GET /health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// Providers handles GET /v1/ops/providers. The overall status is the worst
// provider status.
func (h *OpsHandler) Providers(w http.ResponseWriter, r *http.Request) {
	resp := models.ProvidersResponse{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, health := range h.registry.GetAllHealth() {
			ps := providerStatus(health)
			resp.Providers = append(resp.Providers, ps)

			switch {
			case ps.Status == models.HealthStatusFail:
				resp.Status = models.HealthStatusFail
			case ps.Status == models.HealthStatusDegraded && resp.Status == models.HealthStatusOK:
				resp.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func providerStatus(h *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:      h.Name,
		Status:        models.HealthStatusOK,
		CircuitState:  h.CircuitState.String(),
		Requests:      h.Counts.Requests,
		Failures:      h.Counts.TotalFailures,
		LastSuccessAt: models.TimestampPtr(h.LastSuccessAt),
		LastFailureAt: models.TimestampPtr(h.LastFailureAt),
	}
	switch {
	case h.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case h.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if h.LastError != "" {
		msg := h.LastError
		ps.Message = &msg
	}
	return ps
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	jobs := map[string]interface{}{}
	if h.jobs != nil {
		jobs = h.jobs.MetricsSnapshot()
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Version: h.version,
		Jobs:    jobs,
	})
}
