package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
// Used for local mode and tests.
type InMemoryStore struct {
	mu           sync.RWMutex
	watches      map[string]*Watch
	observations map[string][]Observation // watch_id -> observations
	now          func() time.Time
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		watches:      make(map[string]*Watch),
		observations: make(map[string][]Observation),
		now:          time.Now,
	}
}

// CreateWatch records a new watch.
func (s *InMemoryStore) CreateWatch(ctx context.Context, watch Watch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.watches[watch.WatchID]; exists {
		return nil
	}
	if watch.Status == "" {
		watch.Status = "pending"
	}
	if watch.CreatedAt.IsZero() {
		watch.CreatedAt = s.now()
	}
	s.watches[watch.WatchID] = &watch
	return nil
}

// RecordObservation appends obs and updates the watch status.
func (s *InMemoryStore) RecordObservation(ctx context.Context, obs Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	watch, ok := s.watches[obs.WatchID]
	if !ok {
		return ErrNotFound{WatchID: obs.WatchID}
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = s.now()
	}

	s.observations[obs.WatchID] = append(s.observations[obs.WatchID], obs)
	watch.Status = obs.Status
	if isTerminal(obs.Status) && watch.CompletedAt == nil {
		completed := obs.ObservedAt
		watch.CompletedAt = &completed
	}
	return nil
}

// GetWatch returns a copy of the watch.
func (s *InMemoryStore) GetWatch(ctx context.Context, watchID string) (*Watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	watch, ok := s.watches[watchID]
	if !ok {
		return nil, ErrNotFound{WatchID: watchID}
	}
	w := *watch
	return &w, nil
}

// ListObservations returns the watch's observations in the order recorded.
func (s *InMemoryStore) ListObservations(ctx context.Context, watchID string) ([]Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.watches[watchID]; !ok {
		return nil, ErrNotFound{WatchID: watchID}
	}
	return append([]Observation(nil), s.observations[watchID]...), nil
}

// Close is a no-op for in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
