package station

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	stations map[int64]*Station
	cultures map[int64]map[int64]struct{}
	nextID   int64
}

// NewInMemoryRepository creates a new in-memory station repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		stations: make(map[int64]*Station),
		cultures: make(map[int64]map[int64]struct{}),
	}
}

// AddCulture records that a plantation of cultureID is served by stationID.
func (r *InMemoryRepository) AddCulture(stationID, cultureID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.cultures[stationID]
	if !ok {
		set = make(map[int64]struct{})
		r.cultures[stationID] = set
	}
	set[cultureID] = struct{}{}
}

// GetByCode retrieves a station by its INMET code.
func (r *InMemoryRepository) GetByCode(_ context.Context, code string) (*Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.stations {
		if s.Code == code {
			return copyStation(s), nil
		}
	}
	return nil, ErrStationNotFound
}

// ListActiveByCulture returns active stations serving the culture, by ID.
func (r *InMemoryRepository) ListActiveByCulture(_ context.Context, cultureID int64) ([]*Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Station
	for id, s := range r.stations {
		if !s.Active || s.Code == "" {
			continue
		}
		if _, ok := r.cultures[id][cultureID]; !ok {
			continue
		}
		out = append(out, copyStation(s))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert updates the station matching s.Code or inserts a new one.
func (r *InMemoryRepository) Upsert(_ context.Context, s *Station) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.stations {
		if existing.Code != s.Code {
			continue
		}
		existing.City = s.City
		existing.Active = s.Active
		if s.Location != nil {
			loc := *s.Location
			existing.Location = &loc
		}
		now := time.Now()
		existing.UpdatedAt = &now
		return false, nil
	}

	r.nextID++
	s.ID = r.nextID
	stored := copyStation(s)
	stored.CreatedAt = time.Now()
	r.stations[s.ID] = stored
	return true, nil
}

func copyStation(s *Station) *Station {
	cpy := *s
	if s.Location != nil {
		loc := *s.Location
		cpy.Location = &loc
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		cpy.UpdatedAt = &t
	}
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
