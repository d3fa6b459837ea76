package renderpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/pdfsvc/internal/types"
)

// Pool is an elastic collection of render engine Handles with
// acquire/release semantics, lifetime caps, reactive scale-up on
// contention, and idle scale-down (spec.md §4.2).
//
// All pool mutations happen under mu. The mutex is never held across
// engine I/O (launch or close) — acquire's slow paths and scaleUpCheck
// release it before calling into the browser process.
type Pool struct {
	mu     sync.Mutex
	logger *slog.Logger

	available []*Handle          // FIFO, oldest first
	busy      map[uint64]*Handle // keyed by handle id, not pointer identity

	min          int
	max          int
	maxUses      int
	maxAge       time.Duration
	chromiumPath string

	acquireTimeout   time.Duration
	pollInterval     time.Duration
	minScaleInterval time.Duration
	scaleDownIdle    time.Duration

	nextID   uint64
	reserved int // slots claimed for an in-flight engine launch, not yet in busy

	scaleUpEvents   int
	scaleDownEvents int
	lastScaleUp     time.Time
	lastScaleDown   time.Time
	peak            int
	cumulativeWait  time.Duration
	waitCount       int
}

// Config bundles the pool's bounds and timing knobs.
type Config struct {
	Min              int
	Max              int
	MaxUses          int
	MaxAge           time.Duration
	ChromiumPath     string
	AcquireTimeout   time.Duration
	PollInterval     time.Duration
	MinScaleInterval time.Duration
	ScaleDownIdle    time.Duration
}

// New creates a pool. It does not eagerly warm up to Min — the pool
// may lazily reach Min as acquire creates handles on demand, per
// spec.md §3's Pool State invariant ("after warm-up").
func New(cfg Config, logger *slog.Logger) *Pool {
	return &Pool{
		logger:           logger.With("component", "render_pool"),
		busy:             make(map[uint64]*Handle),
		min:              cfg.Min,
		max:              cfg.Max,
		maxUses:          cfg.MaxUses,
		maxAge:           cfg.MaxAge,
		chromiumPath:     cfg.ChromiumPath,
		acquireTimeout:   cfg.AcquireTimeout,
		pollInterval:     cfg.PollInterval,
		minScaleInterval: cfg.MinScaleInterval,
		scaleDownIdle:    cfg.ScaleDownIdle,
	}
}

// Acquire returns a non-expired handle, creating one if there is room
// or waiting for a release otherwise. See spec.md §4.2 for the full
// algorithm this implements.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	deadline := time.Now().Add(p.acquireTimeout)
	waitStart := time.Now()
	firstPass := true

	for {
		p.mu.Lock()
		p.evictExpiredLocked()

		if n := len(p.available); n > 0 {
			h := p.available[0]
			p.available = p.available[1:]
			h.use()
			p.busy[h.ID] = h
			p.mu.Unlock()
			if !firstPass {
				p.recordWait(time.Since(waitStart))
			}
			return h, nil
		}

		total := len(p.busy) + len(p.available) + p.reserved
		if total < p.max {
			p.nextID++
			id := p.nextID
			p.reserved++
			p.mu.Unlock()

			h, err := newHandle(id, p.chromiumPath, p.maxUses, p.maxAge, p.logger)
			if err != nil {
				p.mu.Lock()
				p.reserved--
				p.mu.Unlock()
				return nil, err
			}

			p.mu.Lock()
			p.reserved--
			h.use()
			p.busy[h.ID] = h
			if n := len(p.busy) + len(p.available); n > p.peak {
				p.peak = n
			}
			p.mu.Unlock()
			if !firstPass {
				p.recordWait(time.Since(waitStart))
			}
			return h, nil
		}

		// Pool is at max and fully busy: nudge a scale-up (a no-op
		// here since total == max, kept for parity with spec.md's
		// contention hook) and fall through to the wait loop.
		p.mu.Unlock()
		p.ScaleUpCheck()

		if firstPass {
			firstPass = false
		}

		if time.Now().After(deadline) {
			p.recordWait(time.Since(waitStart))
			return nil, types.ErrPoolExhausted
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.pollInterval):
		}

		if time.Now().After(deadline) {
			p.recordWait(time.Since(waitStart))
			return nil, types.ErrPoolExhausted
		}
	}
}

// evictExpiredLocked sweeps available for expired handles and closes
// them. Caller must hold mu.
func (p *Pool) evictExpiredLocked() {
	kept := p.available[:0]
	for _, h := range p.available {
		if h.expired() {
			go h.close(p.logger)
			continue
		}
		kept = append(kept, h)
	}
	p.available = kept
}

// Release returns a handle acquired via Acquire back to the pool, or
// closes it if it has expired in the meantime.
func (p *Pool) Release(id uint64) {
	p.mu.Lock()
	h, ok := p.busy[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.busy, id)

	if h.expired() {
		p.mu.Unlock()
		h.close(p.logger)
		return
	}

	p.available = append(p.available, h)
	p.mu.Unlock()
}

// ScaleUpCheck creates one new handle if the pool has room and the
// minimum scale interval has elapsed since the last scale-up. Failures
// are logged, never propagated (spec.md §4.2).
func (p *Pool) ScaleUpCheck() {
	p.mu.Lock()
	total := len(p.busy) + len(p.available) + p.reserved
	if total >= p.max || time.Since(p.lastScaleUp) < p.minScaleInterval {
		p.mu.Unlock()
		return
	}
	p.nextID++
	id := p.nextID
	p.reserved++
	p.mu.Unlock()

	h, err := newHandle(id, p.chromiumPath, p.maxUses, p.maxAge, p.logger)
	if err != nil {
		p.mu.Lock()
		p.reserved--
		p.mu.Unlock()
		p.logger.Warn("scale-up failed", "error", err)
		return
	}

	p.mu.Lock()
	p.reserved--
	p.available = append(p.available, h)
	p.scaleUpEvents++
	p.lastScaleUp = time.Now()
	if n := len(p.busy) + len(p.available); n > p.peak {
		p.peak = n
	}
	p.mu.Unlock()

	p.logger.Info("pool scale-up", "handle_id", id, "total", len(p.busy)+len(p.available))
}

// ScaleDownCheck closes one idle handle above Min if the minimum scale
// interval has elapsed and an available handle has been idle past
// ScaleDownIdle (spec.md §4.2).
func (p *Pool) ScaleDownCheck() {
	p.mu.Lock()
	total := len(p.busy) + len(p.available)
	if total <= p.min || time.Since(p.lastScaleDown) < p.minScaleInterval {
		p.mu.Unlock()
		return
	}

	var victim *Handle
	idx := -1
	for i, h := range p.available {
		if time.Since(h.lastUsed) > p.scaleDownIdle {
			victim = h
			idx = i
			break
		}
	}
	if victim == nil {
		p.mu.Unlock()
		return
	}

	p.available = append(p.available[:idx], p.available[idx+1:]...)
	p.scaleDownEvents++
	p.lastScaleDown = time.Now()
	p.mu.Unlock()

	victim.close(p.logger)
	p.logger.Info("pool scale-down", "handle_id", victim.ID)
}

// Shutdown cancels no background monitor itself (the Housekeeper owns
// that lifecycle) but closes every handle in both sets. Idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	all := make([]*Handle, 0, len(p.available)+len(p.busy))
	all = append(all, p.available...)
	for _, h := range p.busy {
		all = append(all, h)
	}
	p.available = nil
	p.busy = make(map[uint64]*Handle)
	p.mu.Unlock()

	for _, h := range all {
		h.close(p.logger)
	}
}

func (p *Pool) recordWait(d time.Duration) {
	p.mu.Lock()
	p.cumulativeWait += d
	p.waitCount++
	p.mu.Unlock()
}

// Stats is a point-in-time snapshot of the pool's state, rendered by
// the API facade under /health and /stats (spec.md §6).
type Stats struct {
	Available       int
	Busy            int
	Total           int
	Min             int
	Max             int
	Peak            int
	ScaleUpEvents   int
	ScaleDownEvents int
	LastScaleUp     time.Time
	LastScaleDown   time.Time
	AverageWait     time.Duration
}

// Stats returns a consistent snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var avgWait time.Duration
	if p.waitCount > 0 {
		avgWait = p.cumulativeWait / time.Duration(p.waitCount)
	}

	return Stats{
		Available:       len(p.available),
		Busy:            len(p.busy),
		Total:           len(p.available) + len(p.busy),
		Min:             p.min,
		Max:             p.max,
		Peak:            p.peak,
		ScaleUpEvents:   p.scaleUpEvents,
		ScaleDownEvents: p.scaleDownEvents,
		LastScaleUp:     p.lastScaleUp,
		LastScaleDown:   p.lastScaleDown,
		AverageWait:     avgWait,
	}
}
