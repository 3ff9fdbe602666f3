// Package config loads crawler and worker configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/database"
)

// Push drivers.
const (
	PushDriverFCM      = "fcm"
	PushDriverFirebase = "firebase"
	PushDriverLog      = "log"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the full process configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel zerolog.Level

	Database database.Config

	Browser BrowserConfig
	Inmet   InmetConfig
	Push    PushConfig

	// NotifyRadiusMeters is the fanout radius around a triggering plantation.
	NotifyRadiusMeters float64

	// RiskConcurrency is the number of stations scanned in parallel, one
	// browser session each.
	RiskConcurrency int

	// JobTimeout bounds detached jobs started by the worker.
	JobTimeout time.Duration

	OTelEnabled  bool
	OTelEndpoint string

	PubSubProjectID    string
	PubSubSubscription string
}

// BrowserConfig configures the remote browser.
type BrowserConfig struct {
	// RemoteURL is a DevTools websocket URL. Empty launches a local headless Chrome.
	RemoteURL    string
	WindowWidth  int
	WindowHeight int
}

// InmetConfig configures the INMET station pages.
type InmetConfig struct {
	StationURL    string
	CatalogURL    string
	RenderTimeout time.Duration
	FetchTimeout  time.Duration
	FetchRetries  uint64
	Location      *time.Location
}

// PushConfig configures the push gateway.
type PushConfig struct {
	Driver          string
	ProjectID       string
	CredentialsFile string
	Endpoint        string
}

// Load reads an optional .env file and then the environment.
// Values already present in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	level, err := zerolog.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("%w: LOG_LEVEL: %v", ErrInvalidConfig, err)
	}

	retries := getInt("INMET_FETCH_RETRIES", 0)
	if retries < 0 {
		return nil, fmt.Errorf("%w: INMET_FETCH_RETRIES must not be negative", ErrInvalidConfig)
	}

	loc, err := time.LoadLocation(getEnvOrDefault("INMET_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("%w: INMET_TIMEZONE: %v", ErrInvalidConfig, err)
	}

	cfg := &Config{
		Env:      getEnvOrDefault("APP_ENV", "development"),
		Port:     getEnvOrDefault("APP_PORT", "8080"),
		LogLevel: level,
		Database: database.ConfigFromEnv(),
		Browser: BrowserConfig{
			RemoteURL:    os.Getenv("BROWSER_REMOTE_URL"),
			WindowWidth:  getInt("BROWSER_WINDOW_WIDTH", 1920),
			WindowHeight: getInt("BROWSER_WINDOW_HEIGHT", 1080),
		},
		Inmet: InmetConfig{
			StationURL:    getEnvOrDefault("INMET_STATION_URL", "https://tempo.inmet.gov.br/TabelaEstacoes/"),
			CatalogURL:    getEnvOrDefault("INMET_CATALOG_URL", "https://portal.inmet.gov.br/paginas/catalogoaut"),
			RenderTimeout: getDuration("INMET_RENDER_TIMEOUT", 60*time.Second),
			FetchTimeout:  getDuration("INMET_FETCH_TIMEOUT", 5*time.Minute),
			FetchRetries:  uint64(retries),
			Location:      loc,
		},
		Push: PushConfig{
			Driver:          getEnvOrDefault("PUSH_DRIVER", PushDriverFCM),
			ProjectID:       os.Getenv("FCM_PROJECT_ID"),
			CredentialsFile: getEnvOrDefault("FCM_CREDENTIALS_FILE", "assets/firebase-config.json"),
			Endpoint:        getEnvOrDefault("FCM_ENDPOINT", "https://fcm.googleapis.com"),
		},
		NotifyRadiusMeters: getFloat("NOTIFY_RADIUS_METERS", 100_000),
		RiskConcurrency:    getInt("RISK_CONCURRENCY", 1),
		JobTimeout:         getDuration("JOB_TIMEOUT", 30*time.Minute),
		OTelEnabled:        os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the jobs cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Inmet.RenderTimeout <= 0:
		return fmt.Errorf("%w: INMET_RENDER_TIMEOUT must be positive", ErrInvalidConfig)
	case c.Inmet.FetchTimeout <= 0:
		return fmt.Errorf("%w: INMET_FETCH_TIMEOUT must be positive", ErrInvalidConfig)
	case c.NotifyRadiusMeters <= 0:
		return fmt.Errorf("%w: NOTIFY_RADIUS_METERS must be positive", ErrInvalidConfig)
	case c.RiskConcurrency <= 0:
		return fmt.Errorf("%w: RISK_CONCURRENCY must be positive", ErrInvalidConfig)
	case c.JobTimeout <= 0:
		return fmt.Errorf("%w: JOB_TIMEOUT must be positive", ErrInvalidConfig)
	case c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0:
		return fmt.Errorf("%w: browser window size must be positive", ErrInvalidConfig)
	}

	switch c.Push.Driver {
	case PushDriverFCM, PushDriverFirebase:
		if c.Push.ProjectID == "" {
			return fmt.Errorf("%w: FCM_PROJECT_ID is required for push driver %q", ErrInvalidConfig, c.Push.Driver)
		}
	case PushDriverLog:
	default:
		return fmt.Errorf("%w: unknown PUSH_DRIVER %q", ErrInvalidConfig, c.Push.Driver)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}
