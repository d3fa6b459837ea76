// Package observability serves the service's operational metrics as
// hand-rolled Prometheus text exposition, matching the style of the
// single-file exporter this service's ambient stack is drawn from: a
// handful of gauges don't need a client library, just consistent HELP/
// TYPE lines (see DESIGN.md for why client_golang was judged overkill).
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/pdfsvc/internal/renderpool"
)

// PoolStats is the subset of renderpool.Pool's snapshot the exporter reads.
type PoolStats interface {
	Stats() renderpool.Stats
}

// QueueStats is the subset of jobqueue.Queue's snapshot the exporter reads.
type QueueStats interface {
	Len() int
	Cap() int
}

// TaskStats is the subset of taskstore.Store's snapshot the exporter reads.
type TaskStats interface {
	Stats(ctx context.Context) (TaskCounts, error)
}

// TaskCounts mirrors types.Stats without importing it, so this package
// stays decoupled from the store's storage layer.
type TaskCounts struct {
	Total                 int
	Completed             int
	Failed                int
	Active                int
	AverageProcessingTime time.Duration
}

// Metrics serves /metrics by pulling live state from the pool, queue,
// and store at scrape time rather than tracking its own counters — the
// underlying components already hold the truth.
type Metrics struct {
	pool   PoolStats
	queue  QueueStats
	store  TaskStats
	logger *slog.Logger
}

// New constructs a Metrics exporter over the three live components.
func New(pool PoolStats, queue QueueStats, store TaskStats, logger *slog.Logger) *Metrics {
	return &Metrics{
		pool:   pool,
		queue:  queue,
		store:  store,
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	ps := m.pool.Stats()
	gauges := []struct {
		name  string
		help  string
		value float64
	}{
		{"pdfsvc_pool_available", "Render engines currently idle in the pool", float64(ps.Available)},
		{"pdfsvc_pool_busy", "Render engines currently rendering", float64(ps.Busy)},
		{"pdfsvc_pool_total", "Total render engines currently alive", float64(ps.Total)},
		{"pdfsvc_pool_peak", "Peak total render engines observed", float64(ps.Peak)},
		{"pdfsvc_pool_min", "Configured minimum pool size", float64(ps.Min)},
		{"pdfsvc_pool_max", "Configured maximum pool size", float64(ps.Max)},
		{"pdfsvc_pool_scale_up_events_total", "Pool scale-up events", float64(ps.ScaleUpEvents)},
		{"pdfsvc_pool_scale_down_events_total", "Pool scale-down events", float64(ps.ScaleDownEvents)},
		{"pdfsvc_pool_average_wait_seconds", "Average acquire wait time", ps.AverageWait.Seconds()},
		{"pdfsvc_queue_depth", "Current job queue depth", float64(m.queue.Len())},
		{"pdfsvc_queue_capacity", "Configured job queue capacity", float64(m.queue.Cap())},
	}

	counterType := "gauge"
	for _, g := range gauges {
		fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", g.name, counterType)
		fmt.Fprintf(w, "%s %g\n", g.name, g.value)
	}

	counts, err := m.store.Stats(r.Context())
	if err != nil {
		m.logger.Warn("metrics: task stats unavailable", "error", err)
		return
	}
	taskGauges := []struct {
		name  string
		help  string
		value float64
	}{
		{"pdfsvc_tasks_total", "Tasks currently recorded in the store", float64(counts.Total)},
		{"pdfsvc_tasks_completed_total", "Tasks that completed successfully", float64(counts.Completed)},
		{"pdfsvc_tasks_failed_total", "Tasks that failed", float64(counts.Failed)},
		{"pdfsvc_tasks_active", "Tasks currently queued or processing", float64(counts.Active)},
		{"pdfsvc_tasks_average_processing_seconds", "Average time from creation to completion", counts.AverageProcessingTime.Seconds()},
	}
	for _, g := range taskGauges {
		fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", g.name, counterType)
		fmt.Fprintf(w, "%s %g\n", g.name, g.value)
	}
}
