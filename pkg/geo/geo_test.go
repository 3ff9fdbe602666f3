package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/cropi/cropi/pkg/geo"
)

func TestNewPoint(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"porto alegre", -30.0346, -51.2177, false},
		{"north pole", 90, 0, false},
		{"lat too high", 91, 0, true},
		{"lon too low", 0, -181, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geo.NewPoint(tt.lat, tt.lon)
			if tt.wantErr {
				assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPoint_DistanceTo(t *testing.T) {
	portoAlegre := geo.Point{Lat: -30.0346, Lon: -51.2177}
	caxias := geo.Point{Lat: -29.1678, Lon: -51.1794}

	d := portoAlegre.DistanceTo(caxias)

	// ~96km apart
	assert.InDelta(t, 96_500, d, 1_500)
	assert.InDelta(t, d, caxias.DistanceTo(portoAlegre), 0.001)
	assert.Zero(t, portoAlegre.DistanceTo(portoAlegre))
}

func TestPoint_WithinRadius(t *testing.T) {
	center := geo.Point{Lat: -30.0, Lon: -51.0}

	// One degree of latitude is ~111km.
	assert.True(t, center.WithinRadius(geo.Point{Lat: -30.5, Lon: -51.0}, 100_000))
	assert.False(t, center.WithinRadius(geo.Point{Lat: -31.0, Lon: -51.0}, 100_000))
}

func TestPoint_WKTRoundTrip(t *testing.T) {
	p := geo.Point{Lat: -30.05, Lon: -51.2}

	s, err := p.WKT()
	require.NoError(t, err)
	assert.Equal(t, "POINT (-51.2 -30.05)", s)

	back, err := geo.FromWKT(s)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestFromWKB(t *testing.T) {
	b, err := wkb.Marshal(geom.NewPointFlat(geom.XY, []float64{-51.2, -30.05}), wkb.NDR)
	require.NoError(t, err)

	p, err := geo.FromWKB(b)
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: -30.05, Lon: -51.2}, p)
}

func TestFromWKB_NotAPoint(t *testing.T) {
	line := geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1})
	b, err := wkb.Marshal(line, wkb.NDR)
	require.NoError(t, err)

	_, err = geo.FromWKB(b)
	assert.ErrorIs(t, err, geo.ErrNotAPoint)
}
