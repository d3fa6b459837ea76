package types

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a render task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one submitted render request and its persisted state.
//
// CreatedAt is set once at creation and never overwritten. CompletedAt
// is non-nil iff Status is terminal. PDFURL/PDFFileName are non-nil iff
// Status is completed. Error is non-nil iff Status is failed.
type Task struct {
	TaskID      string     `json:"task_id"`
	Status      Status     `json:"status"`
	PDFURL      *string    `json:"pdf_url,omitempty"`
	PDFFileName *string    `json:"pdf_file_name,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProcessingTime returns CompletedAt - CreatedAt for a terminal task, or
// zero if the task has not reached a terminal state.
func (t *Task) ProcessingTime() time.Duration {
	if t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(t.CreatedAt)
}

// MarshalJSON adds processing_time (seconds) for terminal tasks only,
// per spec.md §6's Task JSON contract.
func (t *Task) MarshalJSON() ([]byte, error) {
	type alias Task
	aux := struct {
		*alias
		ProcessingTime *float64 `json:"processing_time,omitempty"`
	}{alias: (*alias)(t)}
	if t.Status.Terminal() {
		secs := t.ProcessingTime().Seconds()
		aux.ProcessingTime = &secs
	}
	return json.Marshal(aux)
}

// Stats is the aggregate view over all tasks in the store.
type Stats struct {
	Total                 int
	Completed             int
	Failed                int
	Active                int // queued + processing
	AverageProcessingTime time.Duration
}
