package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/policy"
)

func newDecision(org string, step catalog.Step, at time.Time) *decision.Decision {
	expires := at.Add(365 * 24 * time.Hour)
	return &decision.Decision{
		ID:                uuid.New().String(),
		OrganizationID:    org,
		Step:              step,
		Outcome:           policy.OutcomeApproved,
		PolicyRuleIDs:     []string{"KYC_DOC_001"},
		DecisionMaker:     "analyst@example.com",
		DecisionTimestamp: at,
		EvidenceReferences: []policy.EvidenceReference{
			{EvidenceType: "government_id", ReferenceID: "ev-1", VerificationStatus: policy.StatusVerified, DataHash: "aa", CollectedAt: &at},
		},
		RuleResults: []policy.RuleEvaluationResult{
			{RuleID: "KYC_DOC_001", RuleName: "Government ID", Passed: true, Message: "satisfied by government_id ev-1"},
		},
		PolicyVersion: "2026-01",
		ExpiresAt:     &expires,
		DedupKey:      uuid.New().String(),
	}
}

// runStorageTests exercises the decision.Storage contract against a backend.
func runStorageTests(t *testing.T, newStore func(t *testing.T) decision.Storage) {
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert and get", func(t *testing.T) {
		store := newStore(t)
		d := newDecision("org-1", catalog.StepKYCVerification, base)

		_, created, err := store.InsertIdempotent(ctx, d, base.Add(-time.Hour))
		if err != nil || !created {
			t.Fatalf("insert failed: created=%v err=%v", created, err)
		}

		got, err := store.Get(ctx, d.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.OrganizationID != "org-1" || got.Outcome != policy.OutcomeApproved {
			t.Errorf("round-trip mismatch: %+v", got)
		}
		if len(got.EvidenceReferences) != 1 || got.EvidenceReferences[0].DataHash != "aa" {
			t.Errorf("evidence not preserved: %+v", got.EvidenceReferences)
		}
		if len(got.RuleResults) != 1 || !got.RuleResults[0].Passed {
			t.Errorf("rule results not preserved: %+v", got.RuleResults)
		}
		if got.ExpiresAt == nil || !got.ExpiresAt.Equal(*d.ExpiresAt) {
			t.Errorf("expiry not preserved: %v", got.ExpiresAt)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "no-such-id")
		var nf *decision.NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("idempotent insert", func(t *testing.T) {
		store := newStore(t)
		first := newDecision("org-1", catalog.StepKYCVerification, base)

		if _, _, err := store.InsertIdempotent(ctx, first, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		dup := newDecision("org-1", catalog.StepKYCVerification, base.Add(time.Minute))
		dup.DedupKey = first.DedupKey
		existing, created, err := store.InsertIdempotent(ctx, dup, base.Add(-time.Hour))
		if err != nil {
			t.Fatalf("duplicate insert failed: %v", err)
		}
		if created {
			t.Error("expected duplicate insert to be rejected")
		}
		if existing.ID != first.ID {
			t.Errorf("expected existing decision %s, got %s", first.ID, existing.ID)
		}

		// The same key outside the window inserts normally.
		late := newDecision("org-1", catalog.StepKYCVerification, base.Add(2*time.Hour))
		late.DedupKey = first.DedupKey
		if _, created, err := store.InsertIdempotent(ctx, late, base.Add(time.Hour)); err != nil || !created {
			t.Fatalf("expected insert outside window: created=%v err=%v", created, err)
		}
	})

	t.Run("find by dedup key", func(t *testing.T) {
		store := newStore(t)
		d := newDecision("org-1", catalog.StepKYCVerification, base)
		if _, _, err := store.InsertIdempotent(ctx, d, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, err := store.FindByDedupKey(ctx, d.DedupKey, base.Add(-time.Hour))
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if got == nil || got.ID != d.ID {
			t.Fatalf("expected decision %s, got %v", d.ID, got)
		}

		// Outside the window nothing matches.
		got, err = store.FindByDedupKey(ctx, d.DedupKey, base.Add(time.Minute))
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected no match outside window, got %s", got.ID)
		}
	})

	t.Run("supersede", func(t *testing.T) {
		store := newStore(t)
		old := newDecision("org-1", catalog.StepKYCVerification, base)
		if _, _, err := store.InsertIdempotent(ctx, old, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		replacement := newDecision("org-1", catalog.StepKYCVerification, base.Add(time.Hour))
		replacement.PreviousDecisionID = old.ID
		if err := store.Supersede(ctx, old.ID, replacement); err != nil {
			t.Fatalf("supersede failed: %v", err)
		}

		gotOld, err := store.Get(ctx, old.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !gotOld.IsSuperseded || gotOld.SupersededByDecisionID != replacement.ID {
			t.Errorf("old decision not flipped: %+v", gotOld)
		}

		active, err := store.GetActive(ctx, "org-1", catalog.StepKYCVerification, base.Add(2*time.Hour))
		if err != nil {
			t.Fatalf("get active failed: %v", err)
		}
		if active.ID != replacement.ID {
			t.Errorf("expected replacement active, got %s", active.ID)
		}

		// Superseding the superseded decision again fails.
		another := newDecision("org-1", catalog.StepKYCVerification, base.Add(2*time.Hour))
		err = store.Supersede(ctx, old.ID, another)
		var sErr *decision.SupersededError
		if !errors.As(err, &sErr) {
			t.Fatalf("expected SupersededError, got %v", err)
		}
	})

	t.Run("get active excludes expired", func(t *testing.T) {
		store := newStore(t)
		d := newDecision("org-1", catalog.StepKYCVerification, base)
		expires := base.Add(24 * time.Hour)
		d.ExpiresAt = &expires
		if _, _, err := store.InsertIdempotent(ctx, d, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		if _, err := store.GetActive(ctx, "org-1", catalog.StepKYCVerification, base.Add(time.Hour)); err != nil {
			t.Fatalf("expected active before expiry: %v", err)
		}

		_, err := store.GetActive(ctx, "org-1", catalog.StepKYCVerification, base.Add(48*time.Hour))
		var nf *decision.NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError after expiry, got %v", err)
		}
	})

	t.Run("query filters and paginates", func(t *testing.T) {
		store := newStore(t)
		for i := 0; i < 5; i++ {
			d := newDecision("org-1", catalog.StepKYCVerification, base.Add(time.Duration(i)*time.Hour))
			if i == 4 {
				d.Outcome = policy.OutcomeRejected
			}
			if _, _, err := store.InsertIdempotent(ctx, d, base.Add(-time.Hour)); err != nil {
				t.Fatalf("insert %d failed: %v", i, err)
			}
		}
		other := newDecision("org-2", catalog.StepKYBVerification, base)
		if _, _, err := store.InsertIdempotent(ctx, other, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		now := base.Add(6 * time.Hour)

		page, total, err := store.Query(ctx, &decision.Query{
			OrganizationID: "org-1",
			Page:           1,
			PageSize:       3,
		}, now)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if total != 5 {
			t.Errorf("expected total 5, got %d", total)
		}
		if len(page) != 3 {
			t.Errorf("expected page of 3, got %d", len(page))
		}
		for i := 1; i < len(page); i++ {
			if page[i].DecisionTimestamp.After(page[i-1].DecisionTimestamp) {
				t.Error("expected newest-first ordering")
			}
		}

		rejected, total, err := store.Query(ctx, &decision.Query{
			OrganizationID: "org-1",
			Outcome:        policy.OutcomeRejected,
		}, now)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if total != 1 || len(rejected) != 1 {
			t.Errorf("expected 1 rejected decision, got %d", total)
		}

		from := base.Add(3 * time.Hour)
		ranged, _, err := store.Query(ctx, &decision.Query{OrganizationID: "org-1", From: &from}, now)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(ranged) != 2 {
			t.Errorf("expected 2 decisions from %v, got %d", from, len(ranged))
		}
	})

	t.Run("query excludes superseded and expired by default", func(t *testing.T) {
		store := newStore(t)

		superseded := newDecision("org-1", catalog.StepKYCVerification, base)
		if _, _, err := store.InsertIdempotent(ctx, superseded, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		replacement := newDecision("org-1", catalog.StepKYCVerification, base.Add(time.Hour))
		if err := store.Supersede(ctx, superseded.ID, replacement); err != nil {
			t.Fatalf("supersede failed: %v", err)
		}

		expired := newDecision("org-1", catalog.StepKYCVerification, base.Add(2*time.Hour))
		expiry := base.Add(3 * time.Hour)
		expired.ExpiresAt = &expiry
		if _, _, err := store.InsertIdempotent(ctx, expired, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		now := base.Add(10 * time.Hour)

		visible, total, err := store.Query(ctx, &decision.Query{OrganizationID: "org-1"}, now)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if total != 1 || visible[0].ID != replacement.ID {
			t.Errorf("expected only the replacement, got %d records", total)
		}

		_, total, err = store.Query(ctx, &decision.Query{
			OrganizationID:    "org-1",
			IncludeSuperseded: true,
			IncludeExpired:    true,
		}, now)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if total != 3 {
			t.Errorf("expected 3 records with history included, got %d", total)
		}
	})

	t.Run("requiring review and expired", func(t *testing.T) {
		store := newStore(t)

		interval := 30
		due := newDecision("org-1", catalog.StepKYCVerification, base)
		due.ReviewIntervalDays = &interval
		if _, _, err := store.InsertIdempotent(ctx, due, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		expired := newDecision("org-2", catalog.StepKYBVerification, base)
		expiry := base.Add(24 * time.Hour)
		expired.ExpiresAt = &expiry
		if _, _, err := store.InsertIdempotent(ctx, expired, base.Add(-time.Hour)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		needsReview, err := store.RequiringReview(ctx, base.Add(31*24*time.Hour))
		if err != nil {
			t.Fatalf("requiring review failed: %v", err)
		}
		if len(needsReview) != 1 || needsReview[0].ID != due.ID {
			t.Errorf("expected the reviewed decision, got %d records", len(needsReview))
		}

		gone, err := store.Expired(ctx, base.Add(48*time.Hour))
		if err != nil {
			t.Fatalf("expired failed: %v", err)
		}
		if len(gone) != 1 || gone[0].ID != expired.ID {
			t.Errorf("expected the expired decision, got %d records", len(gone))
		}
	})
}

func TestMemoryStorage(t *testing.T) {
	runStorageTests(t, func(t *testing.T) decision.Storage {
		return NewMemoryStorage()
	})
}

func TestSQLiteStorage(t *testing.T) {
	var n int
	runStorageTests(t, func(t *testing.T) decision.Storage {
		n++
		store, err := NewSQLiteStorage(&SQLiteConfig{
			Path: filepath.Join(t.TempDir(), fmt.Sprintf("decisions-%d.db", n)),
		})
		if err != nil {
			t.Fatalf("failed to open sqlite storage: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestMemoryStorage_CopiesOnRead(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	d := newDecision("org-1", catalog.StepKYCVerification, base)
	if _, _, err := store.InsertIdempotent(ctx, d, base.Add(-time.Hour)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got.EvidenceReferences[0].DataHash = "tampered"
	got.Outcome = policy.OutcomeRejected

	again, err := store.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if again.EvidenceReferences[0].DataHash != "aa" || again.Outcome != policy.OutcomeApproved {
		t.Error("stored decision mutated through a returned copy")
	}
}
