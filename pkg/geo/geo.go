// Package geo provides geographic points, great-circle distance and the
// WKT/WKB codecs used to move points in and out of PostGIS.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// SRID is the spatial reference used for every stored point (WGS84).
const SRID = 4326

// EarthRadiusMeters is the mean earth radius used for spherical distances.
const EarthRadiusMeters = 6371000

var (
	// ErrInvalidCoordinate is returned for latitudes/longitudes out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrNotAPoint is returned when a decoded geometry is not a point.
	ErrNotAPoint = errors.New("geometry is not a point")
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// NewPoint validates and returns a point.
func NewPoint(lat, lon float64) (Point, error) {
	p := Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate checks the coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	return nil
}

// DistanceTo returns the great-circle distance to q in meters using the
// haversine formula on a sphere.
func (p Point) DistanceTo(q Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := q.Lat * math.Pi / 180
	dLat := (q.Lat - p.Lat) * math.Pi / 180
	dLon := (q.Lon - p.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether q lies within radiusMeters of p.
func (p Point) WithinRadius(q Point, radiusMeters float64) bool {
	return p.DistanceTo(q) <= radiusMeters
}

// geom returns the point as an XY geometry (x = lon, y = lat).
func (p Point) geom() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(SRID)
}

// WKT encodes the point as well-known text, e.g. "POINT (-51.2 -30.05)".
// Use with ST_GeomFromText(..., 4326).
func (p Point) WKT() (string, error) {
	return wkt.Marshal(p.geom())
}

// FromWKB decodes a point from well-known binary as returned by ST_AsBinary.
func FromWKB(b []byte) (Point, error) {
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return Point{}, fmt.Errorf("decode wkb: %w", err)
	}

	pt, ok := g.(*geom.Point)
	if !ok {
		return Point{}, ErrNotAPoint
	}

	return Point{Lat: pt.Y(), Lon: pt.X()}, nil
}

// FromWKT decodes a point from well-known text.
func FromWKT(s string) (Point, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return Point{}, fmt.Errorf("decode wkt: %w", err)
	}

	pt, ok := g.(*geom.Point)
	if !ok {
		return Point{}, ErrNotAPoint
	}

	return Point{Lat: pt.Y(), Lon: pt.X()}, nil
}
