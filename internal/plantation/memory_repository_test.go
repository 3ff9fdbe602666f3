package plantation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/plantation"
	"github.com/cropi/cropi/pkg/geo"
)

func pt(lat, lon float64) *geo.Point {
	return &geo.Point{Lat: lat, Lon: lon}
}

func TestInMemoryRepository_ListWithinRadius(t *testing.T) {
	ctx := context.Background()
	repo := plantation.NewInMemoryRepository()

	poa := pt(-30.03, -51.23)
	repo.Add(&plantation.Plantation{ID: "p1", UserID: "u1", Location: poa})
	repo.Add(&plantation.Plantation{ID: "p2", UserID: "u2", Location: pt(-29.17, -51.18)}) // Caxias do Sul, ~96 km
	repo.Add(&plantation.Plantation{ID: "p3", UserID: "u3", Location: pt(-31.77, -52.34)}) // Pelotas, ~220 km
	repo.Add(&plantation.Plantation{ID: "p4", UserID: "u4", Location: pt(-29.95, -51.10)}) // nearby
	repo.Add(&plantation.Plantation{ID: "p5", UserID: "u5"})

	got, err := repo.ListWithinRadius(ctx, *poa, 100_000, "p1")
	require.NoError(t, err)

	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p2", "p4"}, ids)
}

func TestInMemoryRepository_Get(t *testing.T) {
	ctx := context.Background()
	repo := plantation.NewInMemoryRepository()

	stationID := int64(7)
	repo.Add(&plantation.Plantation{ID: "p1", UserID: "u1", StationID: &stationID, Location: pt(-30, -51)})

	p, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.StationID)
	assert.Equal(t, int64(7), *p.StationID)

	*p.StationID = 9
	again, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), *again.StationID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, plantation.ErrPlantationNotFound)
}
