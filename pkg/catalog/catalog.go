package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Catalog holds every published snapshot and tracks the active policy
// version. Reads at request time take only the version pointer lock;
// snapshot contents are immutable.
type Catalog struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	active    string
	logger    *slog.Logger
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		snapshots: make(map[string]*Snapshot),
		logger:    slog.Default().With("component", "catalog"),
	}
}

// NewSnapshot builds an immutable snapshot from a set of rules. Rules are
// indexed by step and sorted by rule ID so that evaluation order is stable
// across processes.
func NewSnapshot(version string, publishedAt time.Time, rules []PolicyRule) (*Snapshot, error) {
	if version == "" {
		return nil, fmt.Errorf("snapshot version must not be empty")
	}

	snap := &Snapshot{
		version:     version,
		publishedAt: publishedAt,
		byStep:      make(map[Step][]PolicyRule),
		byID:        make(map[string]PolicyRule),
		ruleCount:   len(rules),
	}

	for _, rule := range rules {
		if rule.RuleID == "" {
			return nil, fmt.Errorf("rule without rule_id in version %q", version)
		}
		if !ValidStep(rule.Step) {
			return nil, fmt.Errorf("rule %q references unknown step %q", rule.RuleID, rule.Step)
		}
		if len(rule.RequiredEvidenceTypes) == 0 {
			return nil, fmt.Errorf("rule %q lists no required evidence types", rule.RuleID)
		}
		if rule.Severity.Rank() == 0 {
			return nil, fmt.Errorf("rule %q has unknown severity %q", rule.RuleID, rule.Severity)
		}
		if _, dup := snap.byID[rule.RuleID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q in version %q", rule.RuleID, version)
		}
		snap.byID[rule.RuleID] = rule
		snap.byStep[rule.Step] = append(snap.byStep[rule.Step], rule)
	}

	for step := range snap.byStep {
		rules := snap.byStep[step]
		sort.Slice(rules, func(i, j int) bool { return rules[i].RuleID < rules[j].RuleID })
	}

	return snap, nil
}

// Publish registers a snapshot and makes it the active version. Publishing
// an existing version fails; historical versions stay addressable so that
// decisions recorded against them remain auditable.
func (c *Catalog) Publish(snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.snapshots[snap.version]; exists {
		return &DuplicateVersionError{Version: snap.version}
	}

	c.snapshots[snap.version] = snap
	c.active = snap.version

	c.logger.Info("policy snapshot published",
		"version", snap.version,
		"rules", snap.ruleCount,
	)

	return nil
}

// Active returns the active snapshot, or nil when nothing has been
// published yet.
func (c *Catalog) Active() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[c.active]
}

// Version returns the snapshot published under the given version.
func (c *Catalog) Version(version string) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.snapshots[version]
	if !ok {
		return nil, &UnknownVersionError{Version: version}
	}
	return snap, nil
}

// Versions returns all published versions, sorted ascending.
func (c *Catalog) Versions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	versions := make([]string, 0, len(c.snapshots))
	for v := range c.snapshots {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// SetActive flips the active version pointer to an already published
// version.
func (c *Catalog) SetActive(version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.snapshots[version]; !ok {
		return &UnknownVersionError{Version: version}
	}
	c.active = version
	c.logger.Info("active policy version changed", "version", version)
	return nil
}
