package consensus

import (
	"context"

	"github.com/fedimint-go/fedimintd/core"
)

// SubmissionQueueCapacity bounds the submission channel: large enough to
// absorb a normal burst of client transactions and module proposals,
// small enough to back-pressure a pathological client before memory grows
// unbounded.
const SubmissionQueueCapacity = 1000

// SubmissionQueue is the bounded, multi-producer single-consumer channel
// between item producers (API handlers, per-module proposer tasks) and the
// engine. API handlers are expected to call Submit, which suspends the
// caller while the queue is full; proposer tasks call TryPropose, which
// drops the item instead of blocking (the next proposal tick re-proposes,
// so nothing is lost by dropping).
type SubmissionQueue struct {
	ch chan core.ConsensusItem
}

// NewSubmissionQueue allocates a queue at SubmissionQueueCapacity.
func NewSubmissionQueue() *SubmissionQueue {
	return &SubmissionQueue{ch: make(chan core.ConsensusItem, SubmissionQueueCapacity)}
}

// Submit enqueues item, blocking until space is available or ctx is done.
// Used by API write handlers: back-pressure here is desirable, since it
// slows a client submitting faster than the federation can apply.
func (q *SubmissionQueue) Submit(ctx context.Context, item core.ConsensusItem) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPropose enqueues item if there is room, and silently drops it
// otherwise. Used by proposer tasks, for which losing one tick's proposal
// is harmless — the next tick re-proposes the same content.
func (q *SubmissionQueue) TryPropose(item core.ConsensusItem) (dropped bool) {
	select {
	case q.ch <- item:
		return false
	default:
		return true
	}
}

// Drain removes up to max items already queued, without blocking. Used by
// the engine when assembling a proposal batch; any items left in the queue
// beyond max remain for the next round.
func (q *SubmissionQueue) Drain(max int) []core.ConsensusItem {
	items := make([]core.ConsensusItem, 0, max)
	for len(items) < max {
		select {
		case item := <-q.ch:
			items = append(items, item)
		default:
			return items
		}
	}
	return items
}

// Len reports the number of items currently queued.
func (q *SubmissionQueue) Len() int { return len(q.ch) }
