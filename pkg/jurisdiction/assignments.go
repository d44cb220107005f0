package jurisdiction

import (
	"context"
	"sort"
	"sync"
)

// assignmentKey identifies one assignment row.
type assignmentKey struct {
	tokenType    string
	network      string
	jurisdiction string
}

// MemoryAssignmentStore implements AssignmentStore with an in-memory map.
type MemoryAssignmentStore struct {
	mu          sync.RWMutex
	assignments map[assignmentKey]Assignment
}

// NewMemoryAssignmentStore creates an empty assignment store.
func NewMemoryAssignmentStore() *MemoryAssignmentStore {
	return &MemoryAssignmentStore{
		assignments: make(map[assignmentKey]Assignment),
	}
}

// Assign records an assignment, replacing an existing one for the same
// token, network, and jurisdiction.
func (s *MemoryAssignmentStore) Assign(ctx context.Context, a Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assignmentKey{a.TokenType, a.Network, a.Jurisdiction}
	s.assignments[key] = a
	return nil
}

// ListForToken returns the assignments for a token on a network, ordered
// by jurisdiction code.
func (s *MemoryAssignmentStore) ListForToken(ctx context.Context, tokenType, network string) ([]Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Assignment
	for key, a := range s.assignments {
		if key.tokenType == tokenType && key.network == network {
			results = append(results, a)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Jurisdiction < results[j].Jurisdiction
	})
	return results, nil
}

// Remove deletes an assignment.
func (s *MemoryAssignmentStore) Remove(ctx context.Context, tokenType, network, jurisdiction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.assignments, assignmentKey{tokenType, network, jurisdiction})
	return nil
}
