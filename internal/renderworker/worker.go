// Package renderworker runs the fixed pool of consumer goroutines that
// pull jobs off the bounded queue, drive one render through a pooled
// engine, and persist the outcome (spec.md §4.5).
package renderworker

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/pdfsvc/internal/render"
	"github.com/IshaanNene/pdfsvc/internal/renderpool"
	"github.com/IshaanNene/pdfsvc/internal/taskstore"
	"github.com/IshaanNene/pdfsvc/internal/types"
)

// Store is the subset of taskstore.Store a worker needs.
type Store interface {
	MarkProcessing(ctx context.Context, taskID string) error
	Complete(ctx context.Context, taskID, pdfURL, pdfFilename string) error
	Fail(ctx context.Context, taskID, reason string) error
}

var _ Store = (*taskstore.Store)(nil)

// Config bundles everything a worker pool needs beyond the queue.
type Config struct {
	NWorkers int
	PDFDir   string
	Render   render.Options
}

// Pool runs NWorkers goroutines over a jobqueue.Queue's job channel.
type Pool struct {
	cfg    Config
	pool   *renderpool.Pool
	store  Store
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New constructs a worker pool. Start must be called to launch workers.
func New(cfg Config, enginePool *renderpool.Pool, store Store, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:    cfg,
		pool:   enginePool,
		store:  store,
		logger: logger.With("component", "render_worker"),
	}
}

// Start launches cfg.NWorkers consumer goroutines over jobs. It returns
// immediately; call Wait to block until all workers exit (which happens
// once jobs is closed and drained).
func (p *Pool) Start(ctx context.Context, jobs <-chan types.Job) {
	n := p.cfg.NWorkers
	if n < 1 {
		n = 1
	}
	p.logger.Info("starting render workers", "workers", n)
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i, jobs)
	}
}

// Wait blocks until every worker goroutine has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int, jobs <-chan types.Job) {
	defer p.wg.Done()
	logger := p.logger.With("worker_id", id)

	for job := range jobs {
		p.process(ctx, logger, job)
	}
	logger.Debug("worker exiting, job channel closed")
}

// process runs one job end to end: mark processing, acquire an engine,
// render, record the outcome, and always release the engine — even on
// failure (spec.md §4.5's "release happens on every exit path").
func (p *Pool) process(ctx context.Context, logger *slog.Logger, job types.Job) {
	logger = logger.With("task_id", job.TaskID, "url", job.URL)

	if err := p.store.MarkProcessing(ctx, job.TaskID); err != nil {
		logger.Error("mark processing failed", "error", err)
		return
	}

	handle, err := p.pool.Acquire(ctx)
	if err != nil {
		logger.Error("acquire render engine failed", "error", err)
		p.fail(ctx, logger, job.TaskID, err)
		return
	}
	defer p.pool.Release(handle.ID)

	// A fresh uuid, not the task id, names the PDF file (spec.md §4.5/§5):
	// the artifact's identity is independent of the task that produced it.
	filename := uuid.NewString() + ".pdf"
	outputPath := filepath.Join(p.cfg.PDFDir, filename)

	opts := p.cfg.Render
	opts.OutputPath = outputPath

	start := time.Now()
	if err := render.Render(handle.Browser, job.URL, opts, p.logger); err != nil {
		logger.Error("render failed", "error", err, "duration", time.Since(start))
		p.fail(ctx, logger, job.TaskID, err)
		return
	}

	pdfURL := job.HostPrefix + "/pdf/" + filename
	if err := p.store.Complete(ctx, job.TaskID, pdfURL, filename); err != nil {
		logger.Error("mark complete failed", "error", err)
		return
	}
	logger.Info("render complete", "duration", time.Since(start))
}

func (p *Pool) fail(ctx context.Context, logger *slog.Logger, taskID string, cause error) {
	if err := p.store.Fail(ctx, taskID, cause.Error()); err != nil {
		logger.Error("mark failed failed", "error", err, "cause", cause)
	}
}
