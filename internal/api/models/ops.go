package models

// Health is the liveness response.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ProviderStatus is the circuit breaker state of an outbound provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	Requests      uint32       `json:"requests"`
	Failures      uint32       `json:"failures"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}

// ProvidersResponse lists provider statuses.
type ProvidersResponse struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
}

// SystemStatus reports the job counters of the worker.
type SystemStatus struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Version string                 `json:"version"`
	Jobs    map[string]interface{} `json:"jobs"`
}

// JobAccepted is returned when a job was queued in the background.
type JobAccepted struct {
	Job          string    `json:"job"`
	OccurrenceID string    `json:"occurrenceId,omitempty"`
	PathogenicID int64     `json:"pathogenicId,omitempty"`
	AcceptedAt   Timestamp `json:"acceptedAt"`
}
