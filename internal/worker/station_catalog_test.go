package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/browser"
	"github.com/cropi/cropi/internal/inmet"
	"github.com/cropi/cropi/internal/station"
	"github.com/cropi/cropi/internal/worker"
)

var catalog = []inmet.CatalogEntry{
	{City: "Porto Alegre", Region: "RS", Situation: "Operante", Latitude: -30.05, Longitude: -51.17, Code: "A801"},
	{City: "Canela", Region: "RS", Situation: "Pane", Latitude: -29.37, Longitude: -50.83, Code: "A879"},
}

type failingStations struct {
	*station.InMemoryRepository
	failFor map[string]bool
}

func (r failingStations) Upsert(ctx context.Context, s *station.Station) (bool, error) {
	if r.failFor == nil || r.failFor[s.Code] {
		return false, errors.New("upsert failed")
	}
	return r.InMemoryRepository.Upsert(ctx, s)
}

func catalogJob(f *fakeFetcher, repo station.Repository) *worker.StationCatalogJob {
	return worker.NewStationCatalogJob(worker.StationCatalogJobConfig{
		Fetcher:  f,
		Stations: repo,
		Logger:   zerolog.Nop(),
	})
}

func TestStationCatalog_InsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher()
	f.catalog = catalog
	stations := station.NewInMemoryRepository()
	job := catalogJob(f, stations)

	result, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Entries)
	assert.Equal(t, 2, result.Created)
	assert.Zero(t, result.Updated)

	canela, err := stations.GetByCode(ctx, "A879")
	require.NoError(t, err)
	assert.False(t, canela.Active)
	assert.Equal(t, "RS", canela.Region)
	require.NotNil(t, canela.Location)
	assert.InDelta(t, -50.83, canela.Location.Lon, 1e-9)

	f.catalog = []inmet.CatalogEntry{catalog[0], catalog[1]}
	f.catalog[1].Situation = "Operante"

	result, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, 2, result.Updated)

	canela, err = stations.GetByCode(ctx, "A879")
	require.NoError(t, err)
	assert.True(t, canela.Active)
}

func TestStationCatalog_RowFailuresAreTolerated(t *testing.T) {
	f := newFakeFetcher()
	f.catalog = catalog
	repo := failingStations{station.NewInMemoryRepository(), map[string]bool{"A801": true}}

	result, err := catalogJob(f, repo).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
}

func TestStationCatalog_AllRowsFailed(t *testing.T) {
	f := newFakeFetcher()
	f.catalog = catalog
	repo := failingStations{InMemoryRepository: station.NewInMemoryRepository()}

	result, err := catalogJob(f, repo).Run(context.Background())
	require.ErrorIs(t, err, worker.ErrCatalogSync)
	assert.Equal(t, 2, result.Failed)
}

func TestStationCatalog_FetchFailure(t *testing.T) {
	f := newFakeFetcher()
	f.catalogErr = browser.ErrTimeout

	_, err := catalogJob(f, station.NewInMemoryRepository()).Run(context.Background())
	assert.ErrorIs(t, err, browser.ErrTimeout)
}

func TestStationCatalog_EmptyCatalog(t *testing.T) {
	result, err := catalogJob(newFakeFetcher(), station.NewInMemoryRepository()).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Entries)
}
