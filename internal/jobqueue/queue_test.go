package jobqueue

import (
	"testing"

	"github.com/IshaanNene/pdfsvc/internal/types"
)

func TestEnqueueDequeue(t *testing.T) {
	q := New(2)

	if err := q.Enqueue(types.Job{TaskID: "a", URL: "https://example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected len 1, got %d", q.Len())
	}

	job := <-q.Jobs()
	if job.TaskID != "a" {
		t.Errorf("expected task a, got %s", job.TaskID)
	}
}

func TestEnqueueFullReturnsErrQueueFull(t *testing.T) {
	q := New(1)

	if err := q.Enqueue(types.Job{TaskID: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := q.Enqueue(types.Job{TaskID: "b"})
	if err != types.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestCapReportsCapacity(t *testing.T) {
	q := New(5)
	if q.Cap() != 5 {
		t.Errorf("expected cap 5, got %d", q.Cap())
	}
}

func TestCloseDrainsRemainingJobs(t *testing.T) {
	q := New(2)
	_ = q.Enqueue(types.Job{TaskID: "a"})
	_ = q.Enqueue(types.Job{TaskID: "b"})
	q.Close()

	count := 0
	for range q.Jobs() {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 jobs drained, got %d", count)
	}
}
