package variations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrGenerationNotFound is returned when a history record does not exist
var ErrGenerationNotFound = errors.New("generation not found")

// GenerationStore keeps the history of successful generations
type GenerationStore interface {
	// Add records a generation; IDs are unique
	Add(ctx context.Context, g *Generation) error

	// Get retrieves a generation by ID
	Get(ctx context.Context, id string) (*Generation, error)

	// ListRecent returns up to limit generations, newest first
	ListRecent(ctx context.Context, limit int) ([]*Generation, error)

	// Delete removes a generation
	Delete(ctx context.Context, id string) error
}

// InMemoryGenerationStore implements GenerationStore with a bounded map.
// Once capacity is reached the oldest record is evicted.
// Thread-safe for concurrent access.
type InMemoryGenerationStore struct {
	generations map[string]*Generation
	capacity    int
	mu          sync.RWMutex
}

// NewInMemoryGenerationStore creates a store holding at most capacity records.
// A capacity of 0 or less means unbounded.
func NewInMemoryGenerationStore(capacity int) *InMemoryGenerationStore {
	return &InMemoryGenerationStore{
		generations: make(map[string]*Generation),
		capacity:    capacity,
	}
}

// Add stores a copy of g, setting CreatedAt when it is zero
func (s *InMemoryGenerationStore) Add(_ context.Context, g *Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.generations[g.ID]; exists {
		return fmt.Errorf("generation with ID %s already exists", g.ID)
	}

	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	if s.capacity > 0 && len(s.generations) >= s.capacity {
		s.evictOldestLocked()
	}

	stored := *g
	s.generations[g.ID] = &stored
	return nil
}

// Get retrieves a generation by ID
func (s *InMemoryGenerationStore) Get(_ context.Context, id string) (*Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.generations[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGenerationNotFound, id)
	}
	out := *g
	return &out, nil
}

// ListRecent returns up to limit generations, newest first.
// A limit of 0 or less returns everything.
func (s *InMemoryGenerationStore) ListRecent(_ context.Context, limit int) ([]*Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Generation, 0, len(s.generations))
	for _, g := range s.generations {
		out := *g
		list = append(list, &out)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete removes a generation from the store
func (s *InMemoryGenerationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.generations[id]; !exists {
		return fmt.Errorf("%w: %s", ErrGenerationNotFound, id)
	}

	delete(s.generations, id)
	return nil
}

func (s *InMemoryGenerationStore) evictOldestLocked() {
	var oldest *Generation
	for _, g := range s.generations {
		if oldest == nil || g.CreatedAt.Before(oldest.CreatedAt) {
			oldest = g
		}
	}
	if oldest != nil {
		delete(s.generations, oldest.ID)
	}
}
