package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/config"
)

// clearEnv blanks every key the loader reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "APP_PORT", "LOG_LEVEL", "DATABASE_URL",
		"BROWSER_REMOTE_URL", "BROWSER_WINDOW_WIDTH", "BROWSER_WINDOW_HEIGHT",
		"INMET_STATION_URL", "INMET_CATALOG_URL", "INMET_RENDER_TIMEOUT",
		"INMET_FETCH_TIMEOUT", "INMET_FETCH_RETRIES", "INMET_TIMEZONE",
		"PUSH_DRIVER", "FCM_PROJECT_ID", "FCM_CREDENTIALS_FILE", "FCM_ENDPOINT",
		"NOTIFY_RADIUS_METERS", "RISK_CONCURRENCY", "JOB_TIMEOUT",
		"OTEL_ENABLED", "PUBSUB_PROJECT_ID", "PUBSUB_SUBSCRIPTION",
	} {
		t.Setenv(key, "")
	}
}

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("FCM_PROJECT_ID", "cropi-test")

	cfg, err := config.Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.Equal(t, 1080, cfg.Browser.WindowHeight)
	assert.Equal(t, "https://tempo.inmet.gov.br/TabelaEstacoes/", cfg.Inmet.StationURL)
	assert.Equal(t, 60*time.Second, cfg.Inmet.RenderTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Inmet.FetchTimeout)
	assert.Zero(t, cfg.Inmet.FetchRetries)
	assert.Equal(t, time.UTC, cfg.Inmet.Location)
	assert.Equal(t, config.PushDriverFCM, cfg.Push.Driver)
	assert.Equal(t, 100_000.0, cfg.NotifyRadiusMeters)
	assert.Equal(t, 1, cfg.RiskConcurrency)
	assert.False(t, cfg.OTelEnabled)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "test.env")
	content := "PUSH_DRIVER=log\nINMET_FETCH_RETRIES=2\nNOTIFY_RADIUS_METERS=50000\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv does not override keys that are already set, even to "".
	for _, key := range []string{"PUSH_DRIVER", "INMET_FETCH_RETRIES", "NOTIFY_RADIUS_METERS", "LOG_LEVEL"} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.PushDriverLog, cfg.Push.Driver)
	assert.Equal(t, uint64(2), cfg.Inmet.FetchRetries)
	assert.Equal(t, 50_000.0, cfg.NotifyRadiusMeters)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown push driver", map[string]string{"PUSH_DRIVER": "sms"}},
		{"fcm without project", map[string]string{"PUSH_DRIVER": "fcm"}},
		{"negative retries", map[string]string{"PUSH_DRIVER": "log", "INMET_FETCH_RETRIES": "-1"}},
		{"zero radius", map[string]string{"PUSH_DRIVER": "log", "NOTIFY_RADIUS_METERS": "0"}},
		{"bad timezone", map[string]string{"PUSH_DRIVER": "log", "INMET_TIMEZONE": "Mars/Olympus"}},
		{"bad log level", map[string]string{"PUSH_DRIVER": "log", "LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(missingEnvFile(t))
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}
