package renderpool

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Handle is an owned handle to one warm headless browser process.
// Exactly one owner holds it at a time: either the pool's available
// list, or a worker that is currently rendering through it.
type Handle struct {
	ID      uint64
	Browser *rod.Browser

	launcher *launcher.Launcher

	usageCount int
	createdAt  time.Time
	lastUsed   time.Time

	maxUses int
	maxAge  time.Duration
}

// newHandle launches a Chromium process with the flags spec.md §6
// requires and connects a Rod client to it.
func newHandle(id uint64, chromiumPath string, maxUses int, maxAge time.Duration, logger *slog.Logger) (*Handle, error) {
	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-extensions").
		Set("disable-plugins").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding")

	if chromiumPath != "" {
		l = l.Bin(chromiumPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, err
	}

	now := time.Now()
	logger.Info("render engine started", "handle_id", id)

	return &Handle{
		ID:        id,
		Browser:   browser,
		launcher:  l,
		createdAt: now,
		lastUsed:  now,
		maxUses:   maxUses,
		maxAge:    maxAge,
	}, nil
}

// use records one acquisition against the handle.
func (h *Handle) use() {
	h.usageCount++
	h.lastUsed = time.Now()
}

// expired is the pure predicate from spec.md §4.1: true once the
// handle has reached either reuse cap.
func (h *Handle) expired() bool {
	return h.usageCount >= h.maxUses || time.Since(h.createdAt) >= h.maxAge
}

// close performs an idempotent, best-effort shutdown of the underlying
// browser process. Engine close errors are never propagated — only
// logged — per spec.md §4.1 and §7.
func (h *Handle) close(logger *slog.Logger) {
	if h.Browser != nil {
		if err := h.Browser.Close(); err != nil {
			logger.Warn("engine close error", "handle_id", h.ID, "error", err)
		}
		h.Browser = nil
	}
	if h.launcher != nil {
		h.launcher.Cleanup()
		h.launcher = nil
	}
}
