package station

import (
	"context"
	"errors"
)

// Repository errors.
var (
	ErrStationNotFound = errors.New("station not found")
)

// Repository defines the interface for station persistence.
type Repository interface {
	// GetByCode retrieves a station by its INMET code.
	GetByCode(ctx context.Context, code string) (*Station, error)

	// ListActiveByCulture returns active stations with a code that serve at
	// least one plantation of the culture.
	ListActiveByCulture(ctx context.Context, cultureID int64) ([]*Station, error)

	// Upsert updates the station with the same code (city, active flag and
	// location) or inserts it. created reports an insert.
	Upsert(ctx context.Context, s *Station) (created bool, err error)
}
