package plantation

import (
	"context"
	"sort"
	"sync"

	"github.com/cropi/cropi/pkg/geo"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu          sync.RWMutex
	plantations map[string]*Plantation
}

// NewInMemoryRepository creates a new in-memory plantation repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		plantations: make(map[string]*Plantation),
	}
}

// Add stores a plantation.
func (r *InMemoryRepository) Add(p *Plantation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plantations[p.ID] = copyPlantation(p)
}

// Get retrieves a plantation by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Plantation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plantations[id]
	if !ok {
		return nil, ErrPlantationNotFound
	}
	return copyPlantation(p), nil
}

// ListWithinRadius returns plantations within radiusMeters of center, by ID.
func (r *InMemoryRepository) ListWithinRadius(_ context.Context, center geo.Point, radiusMeters float64, excludeID string) ([]*Plantation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Plantation
	for id, p := range r.plantations {
		if id == excludeID || p.Location == nil {
			continue
		}
		if !center.WithinRadius(*p.Location, radiusMeters) {
			continue
		}
		out = append(out, copyPlantation(p))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyPlantation(p *Plantation) *Plantation {
	cpy := *p
	if p.Location != nil {
		loc := *p.Location
		cpy.Location = &loc
	}
	if p.StationID != nil {
		id := *p.StationID
		cpy.StationID = &id
	}
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
