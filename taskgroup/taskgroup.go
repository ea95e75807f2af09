// Package taskgroup provides the cooperative task-spawning and shutdown
// primitive used throughout the federation core: the engine loop, each
// module's proposer task, and the API server task all observe the
// same shutdown signal and are torn down together on the first
// unrecoverable error. Built directly on golang.org/x/sync/errgroup rather
// than reinvented by hand.
package taskgroup

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fedimint-go/fedimintd/log"
)

// Group owns a set of long-lived goroutines ("tasks") and a shared shutdown
// signal. The zero value is not usable; use New.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group

	mu       sync.Mutex
	shutdown bool
}

// New returns a Group derived from parent. Cancelling parent, or calling
// Shutdown, both close Done() and cause Wait to return once every spawned
// task has observed it and exited.
func New(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(parent)
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{ctx: ctx, cancel: cancel, eg: eg}
}

// Spawn starts a long-lived task. fn must return promptly after ctx is
// done; a fatal (non-nil, non-shutdown) error from any task cancels ctx for
// every other task in the group and is returned from Wait — an integrity
// violation in the consensus engine tears down the whole task group this
// way. A panic inside fn is intentionally not recovered here: engine and
// proposer panics must crash the process; only the API layer recovers
// handler panics, at its own call site.
func (g *Group) Spawn(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		err := fn(g.ctx)
		if err != nil && g.ctx.Err() == nil {
			log.Error("task exited with error, shutting down task group", "task", name, "err", err)
		}
		return err
	})
}

// Context returns the group's context; it is done once Shutdown is called or
// any spawned task returns a non-nil error.
func (g *Group) Context() context.Context { return g.ctx }

// Done returns a channel closed when the group is shutting down.
func (g *Group) Done() <-chan struct{} { return g.ctx.Done() }

// IsShuttingDown reports whether Shutdown has been requested (by a caller or
// by a failed task). The consensus engine polls this between rounds.
func (g *Group) IsShuttingDown() bool {
	select {
	case <-g.ctx.Done():
		return true
	default:
		return false
	}
}

// Shutdown requests every spawned task to stop. Idempotent.
func (g *Group) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shutdown {
		return
	}
	g.shutdown = true
	g.cancel()
}

// Wait blocks until every spawned task has returned, then returns the first
// non-nil error any of them produced (nil on clean shutdown).
func (g *Group) Wait() error {
	return g.eg.Wait()
}
