package plantation

import (
	"context"
	"errors"

	"github.com/cropi/cropi/pkg/geo"
)

// Repository errors.
var (
	ErrPlantationNotFound = errors.New("plantation not found")
)

// Repository defines the interface for plantation lookups.
type Repository interface {
	// Get retrieves a plantation by ID.
	Get(ctx context.Context, id string) (*Plantation, error)

	// ListWithinRadius returns plantations whose location lies within
	// radiusMeters of center (spherical distance), excluding excludeID.
	ListWithinRadius(ctx context.Context, center geo.Point, radiusMeters float64, excludeID string) ([]*Plantation, error)
}
