package pathogenic

import (
	"context"
	"errors"
	"sync"
)

// Repository errors.
var (
	ErrPathogenicNotFound = errors.New("pathogenic not found")
)

// Repository defines the interface for pathogenic lookups.
type Repository interface {
	// GetWithCulture retrieves a pathogenic and its first associated culture.
	GetWithCulture(ctx context.Context, id int64) (*Pathogenic, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu          sync.RWMutex
	pathogenics map[int64]Pathogenic
}

// NewInMemoryRepository creates a repository holding the given pathogenics.
func NewInMemoryRepository(items ...Pathogenic) *InMemoryRepository {
	r := &InMemoryRepository{pathogenics: make(map[int64]Pathogenic, len(items))}
	for _, p := range items {
		r.pathogenics[p.ID] = p
	}
	return r
}

// GetWithCulture retrieves a pathogenic by ID.
func (r *InMemoryRepository) GetWithCulture(_ context.Context, id int64) (*Pathogenic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pathogenics[id]
	if !ok {
		return nil, ErrPathogenicNotFound
	}
	return &p, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
