// Package api is the thin Submission & Query Facade of spec.md §4.7: it
// translates the HTTP surface (§6) into calls against the task store,
// job queue, and render pool, and carries no rendering logic itself.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/IshaanNene/pdfsvc/internal/config"
	"github.com/IshaanNene/pdfsvc/internal/observability"
	"github.com/IshaanNene/pdfsvc/internal/renderpool"
	"github.com/IshaanNene/pdfsvc/internal/taskstore"
	"github.com/IshaanNene/pdfsvc/internal/types"
)

// Queue is the subset of jobqueue.Queue the facade needs.
type Queue interface {
	Enqueue(job types.Job) error
	Len() int
	Cap() int
}

// Server is the HTTP facade described by spec.md §6.
type Server struct {
	mux     *http.ServeMux
	port    int
	pdfDir  string
	logger  *slog.Logger
	store   *taskstore.Store
	queue   Queue
	pool    *renderpool.Pool
	metrics *observability.Metrics
}

// NewServer wires the facade against its three collaborators.
func NewServer(port int, pdfDir string, store *taskstore.Store, queue Queue, pool *renderpool.Pool, logger *slog.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		port:   port,
		pdfDir: pdfDir,
		logger: logger.With("component", "api_server"),
		store:  store,
		queue:  queue,
		pool:   pool,
	}
	s.metrics = observability.New(pool, queue, storeAdapter{store}, logger)
	s.registerRoutes()
	return s
}

// storeAdapter satisfies observability.TaskStats over *taskstore.Store
// without the observability package importing taskstore directly.
type storeAdapter struct{ store *taskstore.Store }

func (a storeAdapter) Stats(ctx context.Context) (observability.TaskCounts, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return observability.TaskCounts{}, err
	}
	return observability.TaskCounts{
		Total:                 stats.Total,
		Completed:             stats.Completed,
		Failed:                stats.Failed,
		Active:                stats.Active,
		AverageProcessingTime: stats.AverageProcessingTime,
	}, nil
}

// ListenAndServe blocks serving the facade's routes.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("api server starting", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /generate_pdf", s.handleGeneratePDF)
	s.mux.HandleFunc("GET /pdf_status/{task_id}", s.handlePDFStatus)
	s.mux.HandleFunc("GET /pdf/{filename}", s.handlePDFFile)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.Handle("GET /metrics", s.metrics)
}

type generateRequest struct {
	URL string `json:"url"`
}

type generateResponse struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	QueueSize int    `json:"queue_size"`
}

// handleGeneratePDF implements spec.md §6's submission endpoint: create
// a pending task, mark it queued, enqueue it, and hand back its id. The
// task is marked queued before the job is enqueued, so a worker that
// dequeues it at once finds it claimable. A full queue fails the request
// rather than blocking it (spec.md §4.4).
func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := config.ValidateURL(body.URL); err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	taskID := uuid.NewString()

	if err := s.store.Create(ctx, taskID); err != nil {
		s.logger.Error("create task failed", "error", err)
		s.jsonError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	job := types.Job{
		TaskID:     taskID,
		URL:        body.URL,
		HostPrefix: hostPrefix(r),
	}

	if err := s.store.MarkQueued(ctx, taskID); err != nil {
		s.logger.Error("mark queued failed", "error", err, "task_id", taskID)
	}

	if err := s.queue.Enqueue(job); err != nil {
		if failErr := s.store.Fail(ctx, taskID, "queue full"); failErr != nil {
			s.logger.Error("mark failed after queue-full failed", "error", failErr)
		}
		s.jsonError(w, http.StatusServiceUnavailable, "Server too busy, please try again later")
		return
	}

	s.jsonResponse(w, http.StatusAccepted, generateResponse{
		TaskID:    taskID,
		Status:    string(types.StatusQueued),
		QueueSize: s.queue.Len(),
	})
}

// handlePDFStatus implements spec.md §6's status-query endpoint.
func (s *Server) handlePDFStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	task, err := s.store.Get(r.Context(), taskID)
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "Task ID not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

// handlePDFFile serves a completed render's PDF from disk. The filename
// path segment is never joined onto pdfDir unsanitized: only its base
// name is used, so a "../" segment can't escape the directory.
func (s *Server) handlePDFFile(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.PathValue("filename"))
	if filename == "." || filename == string(filepath.Separator) || !strings.HasSuffix(filename, ".pdf") {
		s.jsonError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.pdfDir, filename))
}

// handleHealth implements spec.md §6's health endpoint shape:
// { status, active_tasks, queue_size, chrome_instances:{available,busy,total,min,max} }.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.jsonError(w, http.StatusServiceUnavailable, "Store unreachable")
		return
	}
	taskStats, err := s.store.Stats(r.Context())
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to load task stats")
		return
	}
	poolStats := s.pool.Stats()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_tasks": taskStats.Active,
		"queue_size":   s.queue.Len(),
		"chrome_instances": map[string]int{
			"available": poolStats.Available,
			"busy":      poolStats.Busy,
			"total":     poolStats.Total,
			"min":       poolStats.Min,
			"max":       poolStats.Max,
		},
	})
}

// handleStats implements spec.md §6's flat stats shape, with chrome_pool
// field names grounded on performance_test.py's final_stats.chrome_pool
// reads (available_instances, busy_instances, current_instances,
// min_instances, max_instances, peak_instances, scale_up_events,
// scale_down_events, average_wait_time).
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	taskStats, err := s.store.Stats(r.Context())
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to load task stats")
		return
	}
	poolStats := s.pool.Stats()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"total_tasks":             taskStats.Total,
		"completed_tasks":         taskStats.Completed,
		"failed_tasks":            taskStats.Failed,
		"active_tasks":            taskStats.Active,
		"queue_size":              s.queue.Len(),
		"average_processing_time": taskStats.AverageProcessingTime.Seconds(),
		"chrome_pool": map[string]any{
			"available_instances": poolStats.Available,
			"busy_instances":      poolStats.Busy,
			"current_instances":   poolStats.Total,
			"min_instances":       poolStats.Min,
			"max_instances":       poolStats.Max,
			"peak_instances":      poolStats.Peak,
			"scale_up_events":     poolStats.ScaleUpEvents,
			"scale_down_events":   poolStats.ScaleDownEvents,
			"average_wait_time":   poolStats.AverageWait.Seconds(),
			"last_scale_up":       poolStats.LastScaleUp,
			"last_scale_down":     poolStats.LastScaleDown,
		},
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"detail": message})
}

// hostPrefix derives the scheme+host prefix used to build absolute PDF
// URLs, honoring a reverse proxy's X-Forwarded-Proto when present.
func hostPrefix(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
