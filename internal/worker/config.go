// Package worker runs the crawler jobs: risk scans, occurrence climate
// backfills, catalog syncs, climate reports and occurrence alerts.
package worker

import (
	"context"
	"time"

	"github.com/cropi/cropi/internal/inmet"
	"github.com/cropi/cropi/internal/notification"
	"github.com/cropi/cropi/internal/user"
)

// Job names accepted by the runner, the CLI and Pub/Sub messages.
const (
	JobStationCatalog    = "station-catalog"
	JobRiskProbability   = "risk-probability"
	JobOccurrenceClimate = "occurrence-climate"
	JobOccurrenceNotify  = "occurrence-notify"
	JobClimateReport     = "climate-report"
)

// Jobs lists every job name.
var Jobs = []string{
	JobStationCatalog,
	JobRiskProbability,
	JobOccurrenceClimate,
	JobOccurrenceNotify,
	JobClimateReport,
}

// StationFetcher reads station pages. *inmet.Fetcher implements it.
type StationFetcher interface {
	Fetch(ctx context.Context, stationCode string, since time.Time) ([]inmet.StationReading, error)
	FetchCatalog(ctx context.Context) ([]inmet.CatalogEntry, error)
	Location() *time.Location
}

// Notifier alerts growers. *notification.Fanout implements it.
type Notifier interface {
	NotifyNearby(ctx context.Context, plantationID string, ev notification.Event) (*notification.Result, error)
	NotifyUsers(ctx context.Context, users []*user.User, ev notification.Event) (*notification.Result, error)
}

var (
	_ StationFetcher = (*inmet.Fetcher)(nil)
	_ Notifier       = (*notification.Fanout)(nil)
)

// BackfillWindow is how far before an occurrence climate data is collected.
const BackfillWindow = 12 * 24 * time.Hour

// ReportConfig bounds the buckets listed by the climate report.
type ReportConfig struct {
	// Days is the number of days before now that are read.
	// Default: 7
	Days int

	// TemperatureMin and TemperatureMax bound the temperature buckets, inclusive.
	// Default: 17 and 25
	TemperatureMin float64
	TemperatureMax float64

	// HumidityMin is the lowest humidity bucket listed, inclusive.
	// Default: 90
	HumidityMin float64
}

// DefaultReportConfig returns the default report configuration.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Days:           7,
		TemperatureMin: 17,
		TemperatureMax: 25,
		HumidityMin:    90,
	}
}

func (c ReportConfig) withDefaults() ReportConfig {
	d := DefaultReportConfig()
	if c.Days <= 0 {
		c.Days = d.Days
	}
	if c.TemperatureMin == 0 && c.TemperatureMax == 0 {
		c.TemperatureMin, c.TemperatureMax = d.TemperatureMin, d.TemperatureMax
	}
	if c.HumidityMin == 0 {
		c.HumidityMin = d.HumidityMin
	}
	return c
}
