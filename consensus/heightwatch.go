package consensus

import (
	"context"
	"sync"

	"github.com/fedimint-go/fedimintd/core"
)

// HeightWatch lets API handlers block until the committed consensus height
// reaches at least some value, without polling. Advance replaces the
// broadcast channel so every current waiter wakes; WaitAtLeast blocks only
// if the current height is already below the requested one.
type HeightWatch struct {
	mu     sync.Mutex
	height core.EpochIndex
	ch     chan struct{}
}

// NewHeightWatch starts the watch at height 0.
func NewHeightWatch() *HeightWatch {
	return &HeightWatch{ch: make(chan struct{})}
}

// Advance records a new committed height and wakes every current waiter.
// No-op if height does not exceed the current value.
func (h *HeightWatch) Advance(height core.EpochIndex) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if height <= h.height {
		return
	}
	h.height = height
	close(h.ch)
	h.ch = make(chan struct{})
}

// Height returns the last height Advance recorded.
func (h *HeightWatch) Height() core.EpochIndex {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.height
}

// WaitAtLeast blocks until the recorded height is >= target, or ctx is done.
func (h *HeightWatch) WaitAtLeast(ctx context.Context, target core.EpochIndex) error {
	for {
		h.mu.Lock()
		if h.height >= target {
			h.mu.Unlock()
			return nil
		}
		wake := h.ch
		h.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
