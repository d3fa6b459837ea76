package renderpool

import (
	"log/slog"
	"testing"
	"time"
)

func newTestPool() *Pool {
	return New(Config{
		Min:              1,
		Max:              3,
		MaxUses:          3,
		MaxAge:           time.Hour,
		AcquireTimeout:   time.Second,
		PollInterval:     10 * time.Millisecond,
		MinScaleInterval: 0,
		ScaleDownIdle:    time.Millisecond,
	}, slog.Default())
}

func TestStatsOnEmptyPool(t *testing.T) {
	p := newTestPool()
	stats := p.Stats()
	if stats.Total != 0 || stats.Available != 0 || stats.Busy != 0 {
		t.Errorf("expected empty pool stats, got %+v", stats)
	}
	if stats.Min != 1 || stats.Max != 3 {
		t.Errorf("expected min/max 1/3, got %d/%d", stats.Min, stats.Max)
	}
}

func TestReleaseOfUnknownIDIsNoop(t *testing.T) {
	p := newTestPool()
	p.Release(999) // must not panic or alter state
	if stats := p.Stats(); stats.Total != 0 {
		t.Errorf("expected no state change, got %+v", stats)
	}
}

func TestReleaseReturnsHandleToAvailable(t *testing.T) {
	p := newTestPool()
	h := &Handle{ID: 1, maxUses: 3, maxAge: time.Hour, createdAt: time.Now(), lastUsed: time.Now()}

	p.mu.Lock()
	p.busy[h.ID] = h
	p.mu.Unlock()

	p.Release(h.ID)

	stats := p.Stats()
	if stats.Available != 1 || stats.Busy != 0 {
		t.Errorf("expected 1 available, 0 busy, got %+v", stats)
	}
}

func TestReleaseClosesExpiredHandle(t *testing.T) {
	p := newTestPool()
	h := &Handle{ID: 1, maxUses: 1, maxAge: time.Hour, createdAt: time.Now(), lastUsed: time.Now(), usageCount: 1}

	p.mu.Lock()
	p.busy[h.ID] = h
	p.mu.Unlock()

	p.Release(h.ID)

	stats := p.Stats()
	if stats.Available != 0 || stats.Busy != 0 {
		t.Errorf("expected expired handle dropped entirely, got %+v", stats)
	}
}

func TestEvictExpiredLocked(t *testing.T) {
	p := newTestPool()
	fresh := &Handle{ID: 1, maxUses: 3, maxAge: time.Hour, createdAt: time.Now(), lastUsed: time.Now()}
	stale := &Handle{ID: 2, maxUses: 1, maxAge: time.Hour, createdAt: time.Now(), lastUsed: time.Now(), usageCount: 1}

	p.mu.Lock()
	p.available = []*Handle{fresh, stale}
	p.evictExpiredLocked()
	kept := len(p.available)
	p.mu.Unlock()

	if kept != 1 {
		t.Fatalf("expected 1 surviving handle, got %d", kept)
	}
}

func TestScaleDownCheckRespectsMin(t *testing.T) {
	p := newTestPool()
	h := &Handle{ID: 1, maxUses: 3, maxAge: time.Hour, createdAt: time.Now(), lastUsed: time.Now().Add(-time.Hour)}

	p.mu.Lock()
	p.available = []*Handle{h}
	p.mu.Unlock()

	p.ScaleDownCheck() // total (1) <= min (1): must not scale down

	if stats := p.Stats(); stats.Available != 1 {
		t.Errorf("expected handle kept at min, got %+v", stats)
	}
}

func TestScaleDownCheckClosesIdleAboveMin(t *testing.T) {
	p := newTestPool()
	h1 := &Handle{ID: 1, maxUses: 3, maxAge: time.Hour, createdAt: time.Now(), lastUsed: time.Now().Add(-time.Hour)}
	h2 := &Handle{ID: 2, maxUses: 3, maxAge: time.Hour, createdAt: time.Now(), lastUsed: time.Now().Add(-time.Hour)}

	p.mu.Lock()
	p.available = []*Handle{h1, h2}
	p.mu.Unlock()

	p.ScaleDownCheck()

	if stats := p.Stats(); stats.Available != 1 {
		t.Errorf("expected one handle closed above min, got %+v", stats)
	}
	if stats := p.Stats(); stats.ScaleDownEvents != 1 {
		t.Errorf("expected one scale-down event recorded")
	}
}
