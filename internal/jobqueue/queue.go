// Package jobqueue is the bounded FIFO of spec.md §4.4: a fixed-capacity
// channel standing between the submission facade and the fixed pool of
// render workers. It never blocks the facade — a full queue is reported
// back as a failure, not absorbed.
package jobqueue

import (
	"github.com/IshaanNene/pdfsvc/internal/types"
)

// Queue wraps a buffered channel of Jobs.
type Queue struct {
	ch chan types.Job
}

// New creates a queue with the given capacity (spec.md §6 default: 100).
func New(capacity int) *Queue {
	return &Queue{ch: make(chan types.Job, capacity)}
}

// Enqueue places a job on the queue without blocking. It returns
// types.ErrQueueFull if the queue is at capacity.
func (q *Queue) Enqueue(job types.Job) error {
	select {
	case q.ch <- job:
		return nil
	default:
		return types.ErrQueueFull
	}
}

// Jobs returns the receive-only channel workers range over.
func (q *Queue) Jobs() <-chan types.Job {
	return q.ch
}

// Close stops accepting new jobs. Workers ranging over Jobs() exit once
// drained. Callers must ensure no further Enqueue calls occur after Close.
func (q *Queue) Close() {
	close(q.ch)
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap reports the queue's fixed capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
