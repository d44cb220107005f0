package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validRuleFile = `
version: "2026-01"
published_at: 2026-01-15T00:00:00Z
rules:
  - rule_id: "KYC_DOC_001"
    name: "Government ID"
    step: "kyc_verification"
    category: "identity"
    required_evidence_types: ["government_id", "passport"]
    severity: "critical"
    mandatory: true
    remediation_actions:
      - "Upload a government-issued photo ID"
    estimated_remediation_hours: 2
  - rule_id: "KYC_SANCTIONS_002"
    name: "Sanctions screening"
    step: "kyc_verification"
    category: "screening"
    required_evidence_types: ["sanctions_screening"]
    severity: "critical"
    mandatory: true
`

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write rule file: %v", err)
	}
	return path
}

func TestLoadFile_Valid(t *testing.T) {
	path := writeRuleFile(t, validRuleFile)

	snapshot, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load rule file: %v", err)
	}

	if snapshot.Version() != "2026-01" {
		t.Errorf("expected version 2026-01, got %s", snapshot.Version())
	}
	if snapshot.RuleCount() != 2 {
		t.Errorf("expected 2 rules, got %d", snapshot.RuleCount())
	}

	rule, ok := snapshot.Rule("KYC_DOC_001")
	if !ok {
		t.Fatal("expected rule KYC_DOC_001 to be present")
	}
	if len(rule.RequiredEvidenceTypes) != 2 {
		t.Errorf("expected 2 evidence types, got %d", len(rule.RequiredEvidenceTypes))
	}
	if !rule.Mandatory || rule.Severity != SeverityCritical {
		t.Errorf("rule fields not parsed: mandatory=%v severity=%s", rule.Mandatory, rule.Severity)
	}
}

func TestLoadBytes_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "version: [unclosed"},
		{"missing version", "rules:\n  - rule_id: X\n"},
		{"no rules", "version: \"2026-01\"\n"},
		{"bad rule", "version: \"2026-01\"\nrules:\n  - rule_id: \"X\"\n    step: \"nope\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes("test.yaml", []byte(tt.content))
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected LoadError, got %v", err)
			}
		})
	}
}

func TestLoadInto_PublishesAndToleratesDuplicates(t *testing.T) {
	path := writeRuleFile(t, validRuleFile)
	c := New()

	if _, err := LoadInto(c, path); err != nil {
		t.Fatalf("failed to load into catalog: %v", err)
	}
	if c.Active() == nil || c.Active().Version() != "2026-01" {
		t.Fatal("expected loaded version to become active")
	}

	// Watchers re-deliver unchanged files; a duplicate version is a no-op.
	if _, err := LoadInto(c, path); err != nil {
		t.Fatalf("expected duplicate load to be a no-op, got %v", err)
	}
	if got := len(c.Versions()); got != 1 {
		t.Errorf("expected 1 published version, got %d", got)
	}
}
