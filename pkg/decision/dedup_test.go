package decision

import (
	"testing"
	"time"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/policy"
)

func TestDedupKey_OrderIndependent(t *testing.T) {
	a := policy.EvidenceReference{EvidenceType: "government_id", ReferenceID: "ev-1", VerificationStatus: policy.StatusVerified, DataHash: "aa"}
	b := policy.EvidenceReference{EvidenceType: "sanctions_screening", ReferenceID: "ev-2", VerificationStatus: policy.StatusVerified, DataHash: "bb"}

	k1 := DedupKey("org-1", catalog.StepKYCVerification, "2026-01", []policy.EvidenceReference{a, b})
	k2 := DedupKey("org-1", catalog.StepKYCVerification, "2026-01", []policy.EvidenceReference{b, a})

	if k1 != k2 {
		t.Errorf("evidence order changed the key: %s vs %s", k1, k2)
	}
}

func TestDedupKey_IgnoresCollectedAt(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)

	a := policy.EvidenceReference{EvidenceType: "government_id", ReferenceID: "ev-1", VerificationStatus: policy.StatusVerified, DataHash: "aa", CollectedAt: &early}
	b := a
	b.CollectedAt = &late

	k1 := DedupKey("org-1", catalog.StepKYCVerification, "2026-01", []policy.EvidenceReference{a})
	k2 := DedupKey("org-1", catalog.StepKYCVerification, "2026-01", []policy.EvidenceReference{b})

	if k1 != k2 {
		t.Error("collection timestamp changed the key")
	}
}

func TestDedupKey_SensitiveToInputs(t *testing.T) {
	base := []policy.EvidenceReference{
		{EvidenceType: "government_id", ReferenceID: "ev-1", VerificationStatus: policy.StatusVerified, DataHash: "aa"},
	}
	key := DedupKey("org-1", catalog.StepKYCVerification, "2026-01", base)

	changedHash := []policy.EvidenceReference{
		{EvidenceType: "government_id", ReferenceID: "ev-1", VerificationStatus: policy.StatusVerified, DataHash: "bb"},
	}
	changedStatus := []policy.EvidenceReference{
		{EvidenceType: "government_id", ReferenceID: "ev-1", VerificationStatus: policy.StatusPending, DataHash: "aa"},
	}

	tests := []struct {
		name string
		got  string
	}{
		{"different org", DedupKey("org-2", catalog.StepKYCVerification, "2026-01", base)},
		{"different step", DedupKey("org-1", catalog.StepKYBVerification, "2026-01", base)},
		{"different policy version", DedupKey("org-1", catalog.StepKYCVerification, "2026-02", base)},
		{"different data hash", DedupKey("org-1", catalog.StepKYCVerification, "2026-01", changedHash)},
		{"different status", DedupKey("org-1", catalog.StepKYCVerification, "2026-01", changedStatus)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == key {
				t.Error("expected a different key")
			}
		})
	}
}

func TestDedupKey_Stable(t *testing.T) {
	evidence := []policy.EvidenceReference{
		{EvidenceType: "government_id", ReferenceID: "ev-1", VerificationStatus: policy.StatusVerified, DataHash: "aa"},
	}

	key := DedupKey("org-1", catalog.StepKYCVerification, "2026-01", evidence)
	if len(key) != 64 {
		t.Fatalf("expected 64-char hex key, got %d chars", len(key))
	}
	for i := 0; i < 10; i++ {
		if DedupKey("org-1", catalog.StepKYCVerification, "2026-01", evidence) != key {
			t.Fatal("key not stable across calls")
		}
	}
}
