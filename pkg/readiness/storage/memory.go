package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/themis/pkg/readiness"
)

// MemoryStorage implements readiness.Storage with an in-memory map. It is
// intended for tests and ephemeral runs.
type MemoryStorage struct {
	mu          sync.RWMutex
	evaluations map[string]*readiness.Evaluation
}

// NewMemoryStorage creates a new in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		evaluations: make(map[string]*readiness.Evaluation),
	}
}

// Insert persists an evaluation.
func (s *MemoryStorage) Insert(ctx context.Context, e *readiness.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *e
	s.evaluations[e.ID] = &clone
	return nil
}

// Get returns an evaluation by ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*readiness.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.evaluations[id]
	if !ok {
		return nil, &readiness.NotFoundError{EvaluationID: id}
	}
	clone := *e
	return &clone, nil
}

// History returns a user's evaluations, newest first.
func (s *MemoryStorage) History(ctx context.Context, q *readiness.HistoryQuery) ([]*readiness.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*readiness.Evaluation
	for _, e := range s.evaluations {
		if e.UserID != q.UserID {
			continue
		}
		if q.FromDate != nil && e.EvaluatedAt.Before(*q.FromDate) {
			continue
		}
		clone := *e
		results = append(results, &clone)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].EvaluatedAt.Equal(results[j].EvaluatedAt) {
			return results[i].EvaluatedAt.After(results[j].EvaluatedAt)
		}
		return results[i].ID < results[j].ID
	})

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// Close releases nothing for the in-memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}
