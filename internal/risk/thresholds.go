package risk

import (
	"time"

	"github.com/cropi/cropi/internal/inmet"
)

// Thresholds define disease-favorable weather.
type Thresholds struct {
	// TemperatureMin and TemperatureMax bound the favorable temperature, exclusive.
	TemperatureMin float64
	TemperatureMax float64

	// HumidityMin is the exclusive lower bound of favorable humidity.
	HumidityMin float64

	// MinSamples must be exceeded by both counts to trigger.
	MinSamples int

	// Window is the trailing period evaluated.
	Window time.Duration
}

// DefaultThresholds returns the live risk-scan thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureMin: 17,
		TemperatureMax: 24,
		HumidityMin:    90,
		MinSamples:     12,
		Window:         24 * time.Hour,
	}
}

// FavorableTemperature reports whether r's instantaneous temperature is in range.
func (t Thresholds) FavorableTemperature(r inmet.StationReading) bool {
	v := r.Temperature.Instant()
	return v > t.TemperatureMin && v < t.TemperatureMax
}

// FavorableHumidity reports whether r's instantaneous humidity is high enough.
func (t Thresholds) FavorableHumidity(r inmet.StationReading) bool {
	return r.Humidity.Instant() > t.HumidityMin
}

// Evaluation is the outcome of checking one station.
type Evaluation struct {
	TemperatureSamples int
	HumiditySamples    int
	Triggered          bool
}

// Evaluate counts favorable samples in the trailing window ending at now.
func (t Thresholds) Evaluate(readings []inmet.StationReading, now time.Time) Evaluation {
	w := Trailing(now, t.Window)

	e := Evaluation{
		TemperatureSamples: CountQualifyingSamples(readings, w, t.FavorableTemperature),
		HumiditySamples:    CountQualifyingSamples(readings, w, t.FavorableHumidity),
	}
	e.Triggered = e.TemperatureSamples > t.MinSamples && e.HumiditySamples > t.MinSamples

	return e
}
