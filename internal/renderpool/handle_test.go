package renderpool

import (
	"log/slog"
	"testing"
	"time"
)

func TestHandleExpiredByUsage(t *testing.T) {
	h := &Handle{
		ID:         1,
		createdAt:  time.Now(),
		lastUsed:   time.Now(),
		maxUses:    3,
		maxAge:     time.Hour,
		usageCount: 3,
	}
	if !h.expired() {
		t.Error("expected handle at max uses to be expired")
	}
}

func TestHandleExpiredByAge(t *testing.T) {
	h := &Handle{
		ID:        2,
		createdAt: time.Now().Add(-2 * time.Hour),
		lastUsed:  time.Now(),
		maxUses:   100,
		maxAge:    time.Hour,
	}
	if !h.expired() {
		t.Error("expected old handle to be expired")
	}
}

func TestHandleNotExpired(t *testing.T) {
	h := &Handle{
		ID:         3,
		createdAt:  time.Now(),
		lastUsed:   time.Now(),
		maxUses:    3,
		maxAge:     time.Hour,
		usageCount: 1,
	}
	if h.expired() {
		t.Error("fresh handle should not be expired")
	}
}

func TestHandleUseIncrementsCount(t *testing.T) {
	h := &Handle{maxUses: 5, maxAge: time.Hour}
	h.use()
	h.use()
	if h.usageCount != 2 {
		t.Errorf("expected usage count 2, got %d", h.usageCount)
	}
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	h := &Handle{ID: 4}
	logger := slog.Default()
	h.close(logger) // no browser/launcher set — must not panic
	h.close(logger)
}
