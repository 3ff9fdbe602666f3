// Package plantation reads growers' plantations and searches them by
// distance.
package plantation

import (
	"time"

	"github.com/cropi/cropi/pkg/geo"
)

// Plantation is a grower's field of a single culture.
type Plantation struct {
	ID        string
	UserID    string
	CultureID int64

	// StationID is the INMET station serving the plantation, if any.
	StationID *int64

	Alias    string
	Location *geo.Point
	Area     float64

	CreatedAt time.Time
}
