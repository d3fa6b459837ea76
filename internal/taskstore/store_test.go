package taskstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/IshaanNene/pdfsvc/internal/types"
)

// These tests exercise a real Postgres instance and are skipped unless
// TASKSTORE_TEST_DATABASE_URL is set, to keep the default test run free
// of external dependencies.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TASKSTORE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TASKSTORE_TEST_DATABASE_URL not set, skipping taskstore integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, Config{ConnectionString: dsn, MigrationsPath: "file://migrations"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "task-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	task, err := s.Get(ctx, "task-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Status != types.StatusPending {
		t.Errorf("expected pending, got %s", task.Status)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "does-not-exist")
	if err != types.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkProcessingRejectsDoubleClaim(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "task-2"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.MarkQueued(ctx, "task-2"); err != nil {
		t.Fatalf("mark queued: %v", err)
	}
	if err := s.MarkProcessing(ctx, "task-2"); err != nil {
		t.Fatalf("first mark processing: %v", err)
	}
	if err := s.MarkProcessing(ctx, "task-2"); err != types.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition on double claim, got %v", err)
	}
}

func TestCompleteAndStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "task-3"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Complete(ctx, "task-3", "http://host/pdf/task-3.pdf", "task-3.pdf"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	task, err := s.Get(ctx, "task-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Status != types.StatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.PDFFileName == nil || *task.PDFFileName != "task-3.pdf" {
		t.Errorf("expected pdf filename set, got %+v", task.PDFFileName)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Completed < 1 {
		t.Errorf("expected at least 1 completed task, got %d", stats.Completed)
	}
}

func TestPurgeOlderThanLeavesRecentTasks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "task-4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Complete(ctx, "task-4", "http://host/pdf/task-4.pdf", "task-4.pdf"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	n, err := s.PurgeOlderThan(ctx, time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 0 {
		t.Errorf("expected fresh task to survive a 1h retention sweep, got %d purged", n)
	}

	if _, err := s.Get(ctx, "task-4"); err != nil {
		t.Errorf("expected task-4 to still exist, got %v", err)
	}
}
