package worker_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/inmet"
	"github.com/cropi/cropi/internal/notification"
	"github.com/cropi/cropi/internal/pathogenic"
	"github.com/cropi/cropi/internal/plantation"
	"github.com/cropi/cropi/internal/push"
	"github.com/cropi/cropi/internal/station"
	"github.com/cropi/cropi/internal/user"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fetchCall struct {
	code  string
	since time.Time
}

type fakeFetcher struct {
	mu         sync.Mutex
	loc        *time.Location
	readings   map[string][]inmet.StationReading
	errs       map[string]error
	catalog    []inmet.CatalogEntry
	catalogErr error
	calls      []fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		loc:      time.UTC,
		readings: map[string][]inmet.StationReading{},
		errs:     map[string]error{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, code string, since time.Time) ([]inmet.StationReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{code: code, since: since})
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.readings[code], nil
}

func (f *fakeFetcher) FetchCatalog(context.Context) ([]inmet.CatalogEntry, error) {
	return f.catalog, f.catalogErr
}

func (f *fakeFetcher) Location() *time.Location { return f.loc }

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []push.Message
}

func (g *fakeGateway) Send(_ context.Context, msg push.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	return nil
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) messages() []push.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]push.Message(nil), g.sent...)
}

func token(s string) *string { return &s }

// reading builds a sample with the given instantaneous temperature and humidity.
func reading(ts time.Time, temp, hum float64) inmet.StationReading {
	return inmet.StationReading{
		Timestamp:   ts,
		Temperature: inmet.Triple{temp, temp + 0.5, temp - 0.5},
		Humidity:    inmet.Triple{hum, hum + 1, hum - 1},
	}
}

// samples returns n readings ten minutes apart ending ten minutes before end.
func samples(end time.Time, n int, temp, hum float64) []inmet.StationReading {
	out := make([]inmet.StationReading, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, reading(end.Add(-time.Duration(i)*10*time.Minute), temp, hum))
	}
	return out
}

var soyRust = pathogenic.Pathogenic{
	ID:      3,
	Name:    "Ferrugem asiática",
	Culture: pathogenic.Culture{ID: 1, Name: "Soja"},
}

type env struct {
	fetcher     *fakeFetcher
	stations    *station.InMemoryRepository
	users       *user.InMemoryRepository
	plantations *plantation.InMemoryRepository
	records     *notification.InMemoryRepository
	pathogenics *pathogenic.InMemoryRepository
	gateway     *fakeGateway
	fanout      *notification.Fanout
}

func newEnv() *env {
	e := &env{
		fetcher:     newFakeFetcher(),
		stations:    station.NewInMemoryRepository(),
		users:       user.NewInMemoryRepository(),
		plantations: plantation.NewInMemoryRepository(),
		records:     notification.NewInMemoryRepository(),
		pathogenics: pathogenic.NewInMemoryRepository(soyRust),
		gateway:     &fakeGateway{},
	}
	e.fanout = notification.NewFanout(notification.FanoutConfig{
		Plantations: e.plantations,
		Users:       e.users,
		Records:     e.records,
		Gateway:     e.gateway,
		Logger:      zerolog.Nop(),
	})
	return e
}

// addStation stores an active station growing culture 1 and returns its ID.
func (e *env) addStation(code string) int64 {
	s := &station.Station{City: code, Active: true, Code: code}
	_, _ = e.stations.Upsert(context.Background(), s)
	e.stations.AddCulture(s.ID, soyRust.Culture.ID)
	return s.ID
}
