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
	"mercator-hq/themis/pkg/readiness"
)

func newEvaluation(userID string, at time.Time) *readiness.Evaluation {
	return &readiness.Evaluation{
		ID:             uuid.New().String(),
		UserID:         userID,
		OrganizationID: "org-1",
		TokenType:      "utility",
		Network:        "mainnet",
		Status:         readiness.StatusWarning,
		CanProceed:     true,
		Summary:        "warnings in: jurisdiction",
		CategoryResults: map[readiness.Category]*readiness.CategoryResult{
			readiness.CategoryEntitlement: {
				Category: readiness.CategoryEntitlement,
				Passed:   true,
				Message:  "ok",
			},
			readiness.CategoryJurisdiction: {
				Category:                 readiness.CategoryJurisdiction,
				Passed:                   false,
				Severity:                 catalog.SeverityMedium,
				Message:                  "missing jurisdiction assignment",
				ErrorCode:                "JURISDICTION_UNASSIGNED",
				Actions:                  []string{"assign a jurisdiction"},
				EstimatedResolutionHours: 4,
			},
		},
		RemediationTasks: []*readiness.RemediationTask{{
			Category:                 readiness.CategoryJurisdiction,
			ErrorCode:                "JURISDICTION_UNASSIGNED",
			Description:              "missing jurisdiction assignment",
			Severity:                 catalog.SeverityMedium,
			Actions:                  []string{"assign a jurisdiction"},
			EstimatedResolutionHours: 4,
		}},
		PolicyVersion:    "2026-03",
		EvaluatedAt:      at.UTC(),
		EvaluationTimeMs: 42,
	}
}

// runStorageTests exercises the readiness.Storage contract against a
// backend constructor.
func runStorageTests(t *testing.T, newStore func(t *testing.T) readiness.Storage) {
	t.Run("insert and get", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		want := newEvaluation("user-1", time.Now())
		if err := store.Insert(ctx, want); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		got, err := store.Get(ctx, want.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.UserID != "user-1" || got.Status != readiness.StatusWarning || !got.CanProceed {
			t.Errorf("round-trip mismatch: %+v", got)
		}
		if got.Summary != want.Summary || got.PolicyVersion != "2026-03" {
			t.Errorf("round-trip mismatch: summary %q version %q", got.Summary, got.PolicyVersion)
		}
		if len(got.CategoryResults) != 2 {
			t.Fatalf("expected 2 category results, got %d", len(got.CategoryResults))
		}
		jur := got.CategoryResults[readiness.CategoryJurisdiction]
		if jur == nil || jur.ErrorCode != "JURISDICTION_UNASSIGNED" || jur.Severity != catalog.SeverityMedium {
			t.Errorf("jurisdiction result mismatch: %+v", jur)
		}
		if len(got.RemediationTasks) != 1 || got.RemediationTasks[0].Category != readiness.CategoryJurisdiction {
			t.Errorf("remediation tasks mismatch: %+v", got.RemediationTasks)
		}
		if got.EvaluatedAt.Unix() != want.EvaluatedAt.Unix() {
			t.Errorf("EvaluatedAt = %s, want %s", got.EvaluatedAt, want.EvaluatedAt)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		var nfe *readiness.NotFoundError
		if _, err := store.Get(context.Background(), "missing"); !errors.As(err, &nfe) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("history newest first", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		base := time.Now().Add(-6 * time.Hour)
		var ids []string
		for i := 0; i < 3; i++ {
			e := newEvaluation("user-1", base.Add(time.Duration(i)*time.Hour))
			ids = append(ids, e.ID)
			if err := store.Insert(ctx, e); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		if err := store.Insert(ctx, newEvaluation("user-2", base)); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		history, err := store.History(ctx, &readiness.HistoryQuery{UserID: "user-1", Limit: 10})
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 evaluations, got %d", len(history))
		}
		for i, want := range []string{ids[2], ids[1], ids[0]} {
			if history[i].ID != want {
				t.Errorf("history[%d] = %s, want %s", i, history[i].ID, want)
			}
		}
	})

	t.Run("history from date and limit", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		base := time.Now().Add(-48 * time.Hour)
		for i := 0; i < 5; i++ {
			if err := store.Insert(ctx, newEvaluation("user-1", base.Add(time.Duration(i)*12*time.Hour))); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}

		cutoff := base.Add(20 * time.Hour)
		history, err := store.History(ctx, &readiness.HistoryQuery{
			UserID:   "user-1",
			Limit:    10,
			FromDate: &cutoff,
		})
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 evaluations at or after cutoff, got %d", len(history))
		}

		limited, err := store.History(ctx, &readiness.HistoryQuery{UserID: "user-1", Limit: 2})
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(limited) != 2 {
			t.Fatalf("expected limit of 2, got %d", len(limited))
		}
	})

	t.Run("history empty for unknown user", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		history, err := store.History(context.Background(), &readiness.HistoryQuery{UserID: "nobody", Limit: 10})
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(history) != 0 {
			t.Fatalf("expected empty history, got %d", len(history))
		}
	})
}

func TestMemoryStorage(t *testing.T) {
	runStorageTests(t, func(t *testing.T) readiness.Storage {
		return NewMemoryStorage()
	})
}

func TestSQLiteStorage(t *testing.T) {
	var n int
	runStorageTests(t, func(t *testing.T) readiness.Storage {
		n++
		store, err := NewSQLiteStorage(&SQLiteConfig{
			Path:        filepath.Join(t.TempDir(), fmt.Sprintf("readiness-%d.db", n)),
			BusyTimeout: time.Second,
		})
		if err != nil {
			t.Fatalf("NewSQLiteStorage: %v", err)
		}
		return store
	})
}

func TestMemoryStorage_CopiesOnRead(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	e := newEvaluation("user-1", time.Now())
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Status = readiness.StatusBlocked

	again, err := store.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Status != readiness.StatusWarning {
		t.Error("mutation of a returned evaluation leaked into the store")
	}
}
