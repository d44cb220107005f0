package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/policy"
)

// MemoryStorage implements decision.Storage with an in-memory map. It is
// intended for tests and ephemeral runs.
type MemoryStorage struct {
	mu        sync.RWMutex
	decisions map[string]*decision.Decision
}

// NewMemoryStorage creates a new in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		decisions: make(map[string]*decision.Decision),
	}
}

// FindByDedupKey returns the most recent non-superseded decision with the
// dedup key inside the window, or nil.
func (s *MemoryStorage) FindByDedupKey(ctx context.Context, key string, windowStart time.Time) (*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByDedupKeyLocked(key, windowStart), nil
}

func (s *MemoryStorage) findByDedupKeyLocked(key string, windowStart time.Time) *decision.Decision {
	var latest *decision.Decision
	for _, d := range s.decisions {
		if d.DedupKey != key || d.IsSuperseded || d.DecisionTimestamp.Before(windowStart) {
			continue
		}
		if latest == nil || d.DecisionTimestamp.After(latest.DecisionTimestamp) {
			latest = d
		}
	}
	if latest == nil {
		return nil
	}
	return copyDecision(latest)
}

// InsertIdempotent persists the decision unless an identical one already
// exists inside the window. The check and the insert happen under one
// write lock, so two concurrent identical creates produce one record.
func (s *MemoryStorage) InsertIdempotent(ctx context.Context, d *decision.Decision, windowStart time.Time) (*decision.Decision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findByDedupKeyLocked(d.DedupKey, windowStart); existing != nil {
		return existing, false, nil
	}

	s.decisions[d.ID] = copyDecision(d)
	return copyDecision(d), true, nil
}

// Get returns the decision by ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[id]
	if !ok {
		return nil, decision.NewNotFoundError("decision", id)
	}
	return copyDecision(d), nil
}

// GetActive returns the most recent non-superseded, non-expired decision
// for the organization and step.
func (s *MemoryStorage) GetActive(ctx context.Context, organizationID string, step catalog.Step, now time.Time) (*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *decision.Decision
	for _, d := range s.decisions {
		if d.OrganizationID != organizationID || d.Step != step {
			continue
		}
		if d.IsSuperseded || d.Expired(now) {
			continue
		}
		if latest == nil || d.DecisionTimestamp.After(latest.DecisionTimestamp) {
			latest = d
		}
	}

	if latest == nil {
		return nil, decision.NewNotFoundError("active decision", organizationID+"/"+string(step))
	}
	return copyDecision(latest), nil
}

// Query returns the requested page plus the total filtered count. Results
// are ordered by decision timestamp descending, ID ascending on ties, so
// pagination is stable.
func (s *MemoryStorage) Query(ctx context.Context, q *decision.Query, now time.Time) ([]*decision.Decision, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*decision.Decision
	for _, d := range s.decisions {
		if matchesQuery(d, q, now) {
			matched = append(matched, copyDecision(d))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].DecisionTimestamp.Equal(matched[j].DecisionTimestamp) {
			return matched[i].DecisionTimestamp.After(matched[j].DecisionTimestamp)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))

	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * q.PageSize
		if start >= len(matched) {
			return []*decision.Decision{}, total, nil
		}
		end := start + q.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}

	return matched, total, nil
}

// Supersede atomically inserts the replacement and flips the old record's
// supersession fields under one write lock.
func (s *MemoryStorage) Supersede(ctx context.Context, oldID string, replacement *decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.decisions[oldID]
	if !ok {
		return decision.NewNotFoundError("decision", oldID)
	}
	if old.IsSuperseded {
		return &decision.SupersededError{DecisionID: old.ID, SupersededBy: old.SupersededByDecisionID}
	}

	old.IsSuperseded = true
	old.SupersededByDecisionID = replacement.ID
	s.decisions[replacement.ID] = copyDecision(replacement)

	return nil
}

// RequiringReview returns non-superseded decisions with a review date
// before the given time, ordered by review date.
func (s *MemoryStorage) RequiringReview(ctx context.Context, before time.Time) ([]*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*decision.Decision
	for _, d := range s.decisions {
		if d.IsSuperseded {
			continue
		}
		reviewAt := d.ReviewDueAt()
		if reviewAt != nil && reviewAt.Before(before) {
			due = append(due, copyDecision(d))
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ReviewDueAt().Before(*due[j].ReviewDueAt())
	})
	return due, nil
}

// Expired returns non-superseded decisions whose expiry has passed,
// ordered by expiry.
func (s *MemoryStorage) Expired(ctx context.Context, now time.Time) ([]*decision.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*decision.Decision
	for _, d := range s.decisions {
		if d.IsSuperseded || !d.Expired(now) {
			continue
		}
		expired = append(expired, copyDecision(d))
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(*expired[j].ExpiresAt)
	})
	return expired, nil
}

// Close releases nothing for the in-memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

// matchesQuery applies the query's AND-combined filters.
func matchesQuery(d *decision.Decision, q *decision.Query, now time.Time) bool {
	if q.OrganizationID != "" && d.OrganizationID != q.OrganizationID {
		return false
	}
	if q.Step != "" && d.Step != q.Step {
		return false
	}
	if q.Outcome != "" && d.Outcome != q.Outcome {
		return false
	}
	if q.DecisionMaker != "" && d.DecisionMaker != q.DecisionMaker {
		return false
	}
	if q.From != nil && d.DecisionTimestamp.Before(*q.From) {
		return false
	}
	if q.To != nil && d.DecisionTimestamp.After(*q.To) {
		return false
	}
	if !q.IncludeSuperseded && d.IsSuperseded {
		return false
	}
	if !q.IncludeExpired && d.Expired(now) {
		return false
	}
	return true
}

// copyDecision clones a record so callers cannot mutate stored state.
func copyDecision(d *decision.Decision) *decision.Decision {
	clone := *d
	clone.PolicyRuleIDs = append([]string(nil), d.PolicyRuleIDs...)
	clone.EvidenceReferences = append([]policy.EvidenceReference(nil), d.EvidenceReferences...)
	clone.RuleResults = append([]policy.RuleEvaluationResult(nil), d.RuleResults...)
	return &clone
}
