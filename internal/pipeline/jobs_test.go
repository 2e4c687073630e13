package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/docforge/internal/report"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestNewJob_Defaults(t *testing.T) {
	job := NewJob("report.md", "Quarterly Report", []byte("# Hello"))
	if job.ID == "" {
		t.Fatal("expected a generated job ID")
	}
	if len(job.ID) != 26 {
		t.Errorf("expected 26-character ULID, got %d characters", len(job.ID))
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.ContentHash == "" {
		t.Error("expected content hash to be computed at submission")
	}
	if string(job.FileData()) != "# Hello" {
		t.Errorf("unexpected file data %q", job.FileData())
	}
}

func TestNewJob_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		job := NewJob("a.md", "", nil)
		if seen[job.ID] {
			t.Fatalf("duplicate job ID %q", job.ID)
		}
		seen[job.ID] = true
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusGenerating, "generating"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parse: unsupported format")
	job.AddError("generate: table layout conflict")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "parse: unsupported format" {
		t.Errorf("unexpected first error %q", snap.Progress.Errors[0])
	}
}

func TestJob_SetResultFillsProgress(t *testing.T) {
	job := &Job{ID: "result-test", UpdatedAt: time.Now()}
	rep := &report.Report{TotalNodes: 12}
	rep.Counts.Headings = 4
	rep.LowConfidence = []report.LowConfidenceItem{{NodeID: "n1", Confidence: 0.5}}
	rep.AddWarning(report.Warning{Kind: report.WarnLevelClamped, Message: "clamped"})

	job.SetResult([]byte("PK"), rep)

	snap := job.Snapshot()
	if snap.Progress.Nodes != 12 {
		t.Errorf("expected 12 nodes, got %d", snap.Progress.Nodes)
	}
	if snap.Progress.Headings != 4 {
		t.Errorf("expected 4 headings, got %d", snap.Progress.Headings)
	}
	if snap.Progress.Warnings != 1 || snap.Progress.LowConfidence != 1 {
		t.Errorf("expected 1 warning and 1 low-confidence item, got %d and %d",
			snap.Progress.Warnings, snap.Progress.LowConfidence)
	}
	if string(job.Output()) != "PK" {
		t.Errorf("unexpected output %q", job.Output())
	}
	if job.Report() != rep {
		t.Error("expected stored report to be returned")
	}
}

func TestJob_ReleaseFileData(t *testing.T) {
	job := NewJob("a.md", "", []byte("content"))
	job.ReleaseFileData()
	if job.FileData() != nil {
		t.Error("expected file data to be dropped")
	}
	if job.ContentHash == "" {
		t.Error("expected content hash to survive release")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_Snapshots(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Put(&Job{ID: "a", UpdatedAt: time.Now()})
	store.Put(&Job{ID: "b", UpdatedAt: time.Now()})

	snaps := store.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
