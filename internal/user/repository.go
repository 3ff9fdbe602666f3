package user

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
)

// Repository defines the interface for user lookups.
type Repository interface {
	// Get retrieves a user by ID.
	Get(ctx context.Context, id string) (*User, error)

	// ListGrowersAtStation returns the distinct owners of plantations of
	// cultureID served by stationID.
	ListGrowersAtStation(ctx context.Context, stationID, cultureID int64) ([]*User, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User

	// growers maps station -> culture -> user IDs.
	growers map[int64]map[int64][]string
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:   make(map[string]*User),
		growers: make(map[int64]map[int64][]string),
	}
}

// Add stores a user.
func (r *InMemoryRepository) Add(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[u.ID] = copyUser(u)
}

// AddGrower records a plantation of cultureID owned by userID at stationID.
func (r *InMemoryRepository) AddGrower(stationID, cultureID int64, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byCulture, ok := r.growers[stationID]
	if !ok {
		byCulture = make(map[int64][]string)
		r.growers[stationID] = byCulture
	}
	byCulture[cultureID] = append(byCulture[cultureID], userID)
}

// Get retrieves a user by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

// ListGrowersAtStation returns the distinct known growers, by ID.
func (r *InMemoryRepository) ListGrowersAtStation(_ context.Context, stationID, cultureID int64) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []*User
	for _, id := range r.growers[stationID][cultureID] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := r.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// copyUser creates a deep copy of a user.
func copyUser(u *User) *User {
	if u == nil {
		return nil
	}

	cpy := *u
	if u.NotificationToken != nil {
		token := *u.NotificationToken
		cpy.NotificationToken = &token
	}
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
