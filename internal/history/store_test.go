package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"glb-merger/internal/domain"
	"glb-merger/internal/jobs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRecordsBatchLifecycle(t *testing.T) {
	store := openTestStore(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	descriptors := []domain.JobDescriptor{
		{ID: "A", Files: []string{"/in/base.glb", "/in/walk.glb"}, OutputDir: "/out", Transforms: domain.DefaultTransforms()},
		{ID: "B", Files: []string{"/in/run.glb"}, OutputDir: ""},
	}
	if err := store.BatchStarted("batch-1", "/work", descriptors, start); err != nil {
		t.Fatalf("BatchStarted: %v", err)
	}
	if err := store.JobFinished("batch-1", domain.Job{ID: "A", Status: domain.JobStatusSuccess, OutputPath: "/out/merged-A.glb"}, start, start.Add(2*time.Second)); err != nil {
		t.Fatalf("JobFinished A: %v", err)
	}
	if err := store.JobFinished("batch-1", domain.Job{ID: "B", Status: domain.JobStatusFailed, Error: "No output directory selected."}, start, start.Add(3*time.Second)); err != nil {
		t.Fatalf("JobFinished B: %v", err)
	}
	if err := store.BatchFinished("batch-1", jobs.Result{OK: true, BatchID: "batch-1"}, start.Add(4*time.Second)); err != nil {
		t.Fatalf("BatchFinished: %v", err)
	}

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	a, b := entries[0], entries[1]
	if a.JobID != "A" || a.Status != domain.JobStatusSuccess || a.OutputPath != "/out/merged-A.glb" || a.WorkDir != "/work" {
		t.Fatalf("entry A = %+v", a)
	}
	if len(a.Files) != 2 || a.Files[1] != "/in/walk.glb" {
		t.Fatalf("entry A files = %v", a.Files)
	}
	if !a.FinishedAt.Equal(start.Add(2 * time.Second)) {
		t.Fatalf("entry A finished = %v", a.FinishedAt)
	}
	if b.JobID != "B" || b.Status != domain.JobStatusFailed || b.Error == "" {
		t.Fatalf("entry B = %+v", b)
	}
}

func TestStoreRecentOrdersNewestBatchFirst(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new"} {
		at := base.Add(time.Duration(i) * 500 * time.Millisecond)
		if err := store.BatchStarted(id, "/work", []domain.JobDescriptor{{ID: "J", Files: []string{"x.glb"}}}, at); err != nil {
			t.Fatalf("BatchStarted %s: %v", id, err)
		}
	}

	entries, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].BatchID != "new" {
		t.Fatalf("entries = %+v, want newest batch only", entries)
	}
	if entries[0].Status != domain.JobStatusPending || !entries[0].FinishedAt.IsZero() {
		t.Fatalf("unfinished job = %+v", entries[0])
	}
}

func TestStoreRejectsDuplicateBatch(t *testing.T) {
	store := openTestStore(t)
	jobsIn := []domain.JobDescriptor{{ID: "A", Files: []string{"a.glb"}}}
	if err := store.BatchStarted("dup", "/w", jobsIn, time.Now()); err != nil {
		t.Fatalf("first BatchStarted: %v", err)
	}
	if err := store.BatchStarted("dup", "/w", jobsIn, time.Now()); err == nil {
		t.Fatal("expected duplicate batch id error")
	}
}
