package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/browser"
	"github.com/cropi/cropi/internal/station"
	"github.com/cropi/cropi/internal/worker"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     worker.Request
		wantErr error
	}{
		{name: "catalog", req: worker.Request{Job: worker.JobStationCatalog}},
		{name: "risk", req: worker.Request{Job: worker.JobRiskProbability, PathogenicID: 3}},
		{name: "risk without pathogenic", req: worker.Request{Job: worker.JobRiskProbability}, wantErr: worker.ErrInvalidRequest},
		{name: "climate", req: worker.Request{Job: worker.JobOccurrenceClimate, OccurrenceID: occurrenceID}},
		{name: "climate bad id", req: worker.Request{Job: worker.JobOccurrenceClimate, OccurrenceID: "42"}, wantErr: worker.ErrInvalidRequest},
		{name: "notify", req: worker.Request{Job: worker.JobOccurrenceNotify, OccurrenceID: occurrenceID}},
		{name: "notify without id", req: worker.Request{Job: worker.JobOccurrenceNotify}, wantErr: worker.ErrInvalidRequest},
		{name: "report", req: worker.Request{Job: worker.JobClimateReport, StationCode: "A801", Days: 3}},
		{name: "report without station", req: worker.Request{Job: worker.JobClimateReport, StationCode: " "}, wantErr: worker.ErrInvalidRequest},
		{name: "report negative days", req: worker.Request{Job: worker.JobClimateReport, StationCode: "A801", Days: -1}, wantErr: worker.ErrInvalidRequest},
		{name: "unknown", req: worker.Request{Job: "refresh"}, wantErr: worker.ErrUnknownJob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func newRunner(f *fakeFetcher, stations station.Repository) *worker.Runner {
	return worker.NewRunner(worker.RunnerConfig{
		StationCatalog: catalogJob(f, stations),
		ClimateReport:  reportJob(f),
		JobTimeout:     time.Minute,
		Logger:         zerolog.Nop(),
	})
}

func TestRunner_RunRecordsStats(t *testing.T) {
	f := newFakeFetcher()
	f.catalog = catalog
	runner := newRunner(f, station.NewInMemoryRepository())

	require.NoError(t, runner.Run(context.Background(), worker.Request{Job: worker.JobStationCatalog}))

	f.catalogErr = browser.ErrSession
	err := runner.Run(context.Background(), worker.Request{Job: worker.JobStationCatalog})
	require.ErrorIs(t, err, browser.ErrSession)

	stats := runner.GetStats(worker.JobStationCatalog)
	assert.Equal(t, int64(2), stats.Runs)
	assert.Equal(t, int64(1), stats.Failures)
	assert.Zero(t, stats.InFlight)
	assert.Contains(t, stats.LastError, browser.ErrSession.Error())

	snapshot := runner.MetricsSnapshot()
	require.Contains(t, snapshot, worker.JobStationCatalog)
	entry, ok := snapshot[worker.JobStationCatalog].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(2), entry["runs"])
	assert.Equal(t, int64(1), entry["failures"])
}

func TestRunner_UnconfiguredJob(t *testing.T) {
	runner := newRunner(newFakeFetcher(), station.NewInMemoryRepository())

	err := runner.Run(context.Background(), worker.Request{Job: worker.JobRiskProbability, PathogenicID: 3})
	assert.ErrorIs(t, err, worker.ErrJobUnavailable)
}

func TestRunner_InvalidRequestIsNotCounted(t *testing.T) {
	runner := newRunner(newFakeFetcher(), station.NewInMemoryRepository())

	err := runner.Run(context.Background(), worker.Request{Job: "nope"})
	assert.ErrorIs(t, err, worker.ErrUnknownJob)
	assert.Empty(t, runner.MetricsSnapshot())
}

func TestRunner_DispatchOutlivesCaller(t *testing.T) {
	f := newFakeFetcher()
	f.catalog = catalog
	stations := station.NewInMemoryRepository()
	runner := newRunner(f, stations)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, runner.Dispatch(ctx, worker.Request{Job: worker.JobStationCatalog}))
	cancel()
	runner.Wait()

	stats := runner.GetStats(worker.JobStationCatalog)
	assert.Equal(t, int64(1), stats.Runs)
	assert.Zero(t, stats.Failures)

	_, err := stations.GetByCode(context.Background(), "A801")
	assert.NoError(t, err)
}

func TestRunner_DispatchRejectsInvalidRequest(t *testing.T) {
	runner := newRunner(newFakeFetcher(), station.NewInMemoryRepository())

	err := runner.Dispatch(context.Background(), worker.Request{Job: worker.JobOccurrenceNotify})
	assert.ErrorIs(t, err, worker.ErrInvalidRequest)
	runner.Wait()
}
