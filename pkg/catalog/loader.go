package catalog

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk YAML shape of a catalog snapshot.
type ruleFile struct {
	Version     string       `yaml:"version"`
	PublishedAt time.Time    `yaml:"published_at"`
	Rules       []PolicyRule `yaml:"rules"`
}

// LoadFile reads a rule file and builds a snapshot from it. The file must
// declare a version and at least one rule.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}
	return LoadBytes(path, data)
}

// LoadBytes parses rule file contents. The path is used for error
// reporting only.
func LoadBytes(path string, data []byte) (*Snapshot, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("invalid YAML: %w", err))
	}

	if file.Version == "" {
		return nil, NewLoadError(path, fmt.Errorf("missing version"))
	}
	if len(file.Rules) == 0 {
		return nil, NewLoadError(path, fmt.Errorf("no rules defined"))
	}

	publishedAt := file.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	snap, err := NewSnapshot(file.Version, publishedAt, file.Rules)
	if err != nil {
		return nil, NewLoadError(path, err)
	}
	return snap, nil
}

// LoadInto loads a rule file and publishes the resulting snapshot.
// A duplicate version is not an error here: catalog watchers re-deliver
// unchanged files and publishing the same version twice is a no-op.
func LoadInto(c *Catalog, path string) (*Snapshot, error) {
	snap, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := c.Publish(snap); err != nil {
		var dup *DuplicateVersionError
		if errors.As(err, &dup) {
			return snap, nil
		}
		return nil, err
	}
	return snap, nil
}
