package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for notification persistence.
type Repository interface {
	// Insert stores a record, filling in ID and CreatedAt.
	Insert(ctx context.Context, r *Record) error

	// ListByUser returns a user's records, oldest first.
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []*Record
}

// NewInMemoryRepository creates a new in-memory notification repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Insert stores a record.
func (r *InMemoryRepository) Insert(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.Viewed = false
	rec.CreatedAt = time.Now()
	cpy := *rec
	r.records = append(r.records, &cpy)
	return nil
}

// ListByUser returns a user's records in insertion order.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			cpy := *rec
			out = append(out, &cpy)
		}
	}
	return out, nil
}

// All returns every stored record, ordered by user then insertion.
func (r *InMemoryRepository) All() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		cpy := *rec
		out = append(out, &cpy)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
