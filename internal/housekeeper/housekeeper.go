// Package housekeeper runs the two independent periodic loops spec.md
// §4.6 describes: a pool scale-down monitor and a task retention
// sweeper. Both run until their context is cancelled.
package housekeeper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/pdfsvc/internal/renderpool"
)

// Store is the subset of taskstore.Store the sweeper needs.
type Store interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// Config controls the housekeeper's two loop intervals.
type Config struct {
	ScaleDownInterval time.Duration
	SweepInterval     time.Duration
	Retention         time.Duration
	PDFDir            string
	// DeletePDFFiles controls whether a sweep that purged at least one row
	// also removes files in PDFDir older than Retention. See DESIGN.md for
	// the open-question decision this implements (spec.md §9).
	DeletePDFFiles bool
}

// Housekeeper owns the two background loops.
type Housekeeper struct {
	cfg    Config
	pool   *renderpool.Pool
	store  Store
	logger *slog.Logger
}

// New constructs a Housekeeper. Run must be called to start its loops.
func New(cfg Config, pool *renderpool.Pool, store Store, logger *slog.Logger) *Housekeeper {
	return &Housekeeper{
		cfg:    cfg,
		pool:   pool,
		store:  store,
		logger: logger.With("component", "housekeeper"),
	}
}

// Run blocks, running both loops until ctx is cancelled.
func (h *Housekeeper) Run(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h.scaleDownLoop(gctx)
		return nil
	})
	g.Go(func() error {
		h.sweepLoop(gctx)
		return nil
	})

	_ = g.Wait()
	h.logger.Info("housekeeper stopped")
}

// scaleDownLoop calls Pool.ScaleDownCheck on a fixed interval. A panic
// recovery isn't needed here: ScaleDownCheck never panics by design, but
// an unexpected failure inside it is logged and the loop continues
// rather than exiting, since one bad tick shouldn't end monitoring.
func (h *Housekeeper) scaleDownLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.ScaleDownInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pool.ScaleDownCheck()
		}
	}
}

// sweepLoop purges terminal tasks older than Retention on a fixed
// interval, optionally removing their PDF files from disk.
func (h *Housekeeper) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep(ctx)
		}
	}
}

func (h *Housekeeper) sweep(ctx context.Context) {
	n, err := h.store.PurgeOlderThan(ctx, h.cfg.Retention)
	if err != nil {
		h.logger.Error("retention sweep failed", "error", err)
		return
	}
	if n > 0 {
		h.logger.Info("retention sweep complete", "tasks_purged", n)
	}
	if !h.cfg.DeletePDFFiles || n == 0 {
		return
	}
	h.pruneOrphanPDFs()
}

// pruneOrphanPDFs removes every regular file in PDFDir whose modification
// time is older than Retention. It does not check whether a task row
// still names the file: it walks PDFDir rather than tracking filenames
// purged above, since PurgeOlderThan only reports a count.
func (h *Housekeeper) pruneOrphanPDFs() {
	entries, err := os.ReadDir(h.cfg.PDFDir)
	if err != nil {
		h.logger.Warn("pdf dir read failed during prune", "error", err)
		return
	}
	cutoff := time.Now().Add(-h.cfg.Retention)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(h.cfg.PDFDir, entry.Name())
		if err := os.Remove(path); err != nil {
			h.logger.Warn("pdf file removal failed", "path", path, "error", err)
		}
	}
}
