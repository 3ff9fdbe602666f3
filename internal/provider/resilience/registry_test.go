package resilience_test

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/provider/resilience"
)

func register(registry *resilience.Registry, name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "fcm")

	assert.Equal(t, 1, registry.ProviderCount())

	health := registry.GetHealth("fcm")
	require.NotNil(t, health)
	assert.Equal(t, "fcm", health.Name)
	assert.True(t, health.IsHealthy())
	assert.Nil(t, registry.GetHealth("apns"))
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "fcm")

	registry.Unregister("fcm")

	assert.Zero(t, registry.ProviderCount())
	assert.Nil(t, registry.GetHealth("fcm"))
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "fcm")

	registry.RecordSuccess("fcm")
	registry.RecordFailure("fcm", assert.AnError)

	health := registry.GetHealth("fcm")
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)

	// unknown providers are ignored
	registry.RecordSuccess("apns")
	registry.RecordFailure("apns", assert.AnError)
	assert.Equal(t, 1, registry.ProviderCount())
}

func TestRegistry_GetAllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"log", "fcm", "firebase"} {
		register(registry, name)
	}

	health := registry.GetAllHealth()
	require.Len(t, health, 3)
	assert.Equal(t, "fcm", health[0].Name)
	assert.Equal(t, "firebase", health[1].Name)
	assert.Equal(t, "log", health[2].Name)
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state     gobreaker.State
		healthy   bool
		degraded  bool
		unhealthy bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.healthy, h.IsHealthy())
			assert.Equal(t, tt.degraded, h.IsDegraded())
			assert.Equal(t, tt.unhealthy, h.IsUnhealthy())
		})
	}
}
