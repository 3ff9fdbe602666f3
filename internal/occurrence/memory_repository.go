package occurrence

import (
	"context"
	"sync"

	"github.com/cropi/cropi/internal/risk"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu          sync.RWMutex
	occurrences map[string]*Occurrence
	temperature map[string][]risk.Bucket
	humidity    map[string][]risk.Bucket
}

// NewInMemoryRepository creates a new in-memory occurrence repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		occurrences: make(map[string]*Occurrence),
		temperature: make(map[string][]risk.Bucket),
		humidity:    make(map[string][]risk.Bucket),
	}
}

// Add stores an occurrence.
func (r *InMemoryRepository) Add(o *Occurrence) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.occurrences[o.ID] = copyOccurrence(o)
}

// Get retrieves an occurrence by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Occurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.occurrences[id]
	if !ok {
		return nil, ErrOccurrenceNotFound
	}
	return copyOccurrence(o), nil
}

// HasClimateBuckets reports whether any bucket was stored for id.
func (r *InMemoryRepository) HasClimateBuckets(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.temperature[id]) > 0 || len(r.humidity[id]) > 0, nil
}

// InsertTemperatureBucket stores one temperature bucket.
func (r *InMemoryRepository) InsertTemperatureBucket(_ context.Context, id string, b risk.Bucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.temperature[id] = append(r.temperature[id], b)
	return nil
}

// InsertHumidityBucket stores one humidity bucket.
func (r *InMemoryRepository) InsertHumidityBucket(_ context.Context, id string, b risk.Bucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.humidity[id] = append(r.humidity[id], b)
	return nil
}

// TemperatureBuckets returns the stored temperature buckets in insertion order.
func (r *InMemoryRepository) TemperatureBuckets(id string) []risk.Bucket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]risk.Bucket(nil), r.temperature[id]...)
}

// HumidityBuckets returns the stored humidity buckets in insertion order.
func (r *InMemoryRepository) HumidityBuckets(id string) []risk.Bucket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]risk.Bucket(nil), r.humidity[id]...)
}

func copyOccurrence(o *Occurrence) *Occurrence {
	cpy := *o
	if o.StationID != nil {
		id := *o.StationID
		cpy.StationID = &id
	}
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
