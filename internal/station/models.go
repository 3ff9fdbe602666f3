// Package station stores the INMET automatic weather stations known to the
// system.
package station

import (
	"time"

	"github.com/cropi/cropi/internal/inmet"
	"github.com/cropi/cropi/pkg/geo"
)

// Station is an INMET automatic station.
type Station struct {
	ID int64

	City   string
	Region string

	// Location is nil when the station has no known coordinates.
	Location *geo.Point

	// Active is true while the catalog lists the station as operating.
	Active bool

	// Code is the INMET station code (e.g. "A801").
	Code string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// FromCatalog builds a station from a catalog entry. Coordinates outside
// the valid range leave Location nil.
func FromCatalog(e inmet.CatalogEntry) *Station {
	s := &Station{
		City:   e.City,
		Region: e.Region,
		Active: e.Active(),
		Code:   e.Code,
	}
	if p, err := geo.NewPoint(e.Latitude, e.Longitude); err == nil {
		s.Location = &p
	}
	return s
}
