package occurrence

import (
	"context"
	"errors"

	"github.com/cropi/cropi/internal/risk"
)

// Repository errors.
var (
	ErrOccurrenceNotFound = errors.New("occurrence not found")
)

// Repository defines the interface for occurrence persistence.
type Repository interface {
	// Get retrieves an occurrence with its plantation's station.
	Get(ctx context.Context, id string) (*Occurrence, error)

	// HasClimateBuckets reports whether any temperature or humidity bucket
	// was stored for the occurrence.
	HasClimateBuckets(ctx context.Context, id string) (bool, error)

	// InsertTemperatureBucket stores one (day, temperature) bucket.
	InsertTemperatureBucket(ctx context.Context, id string, b risk.Bucket) error

	// InsertHumidityBucket stores one (day, humidity) bucket.
	InsertHumidityBucket(ctx context.Context, id string, b risk.Bucket) error
}
