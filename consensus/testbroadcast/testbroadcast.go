// Package testbroadcast is a single-process, in-memory stand-in for the
// atomic-broadcast layer: it accepts one proposed batch, assigns it the
// next epoch number, and hands that outcome to the next NextOutcome call
// (each outcome is delivered once). It drives a consensus engine end-to-end without a real
// BFT transport, for both automated tests and a single-node local-dev
// instance of the daemon. It is never a substitute for a real
// threshold-signed broadcast across multiple processes.
package testbroadcast

import (
	"context"
	"sync"

	"github.com/fedimint-go/fedimintd/core"
)

// Broadcast is a single-peer AtomicBroadcast double: useful for exercising
// the engine loop with exactly one federation member.
type Broadcast struct {
	mu      sync.Mutex
	cond    *sync.Cond
	epoch   core.EpochIndex
	pending *core.SignedEpochOutcome
	closed  bool
}

// New returns an empty broadcast double starting at epoch 0.
func New() *Broadcast {
	b := &Broadcast{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// ProposeBatch assigns the next epoch number to items and makes the
// resulting outcome available to NextOutcome.
func (b *Broadcast) ProposeBatch(ctx context.Context, items []core.ConsensusItem, sig core.ThresholdSignature) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.epoch++
	ordered := make([]core.OrderedItem, 0, len(items))
	for _, it := range items {
		ordered = append(ordered, core.OrderedItem{Peer: 0, Item: it})
	}
	outcome := core.SignedEpochOutcome{Epoch: b.epoch, Items: ordered, Sig: sig}
	b.pending = &outcome
	b.cond.Broadcast()
	return nil
}

// NextOutcome blocks until a proposed batch is available, then returns it.
func (b *Broadcast) NextOutcome(ctx context.Context) (core.SignedEpochOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending == nil && !b.closed {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				b.mu.Lock()
				b.cond.Broadcast()
				b.mu.Unlock()
			case <-done:
			}
		}()
		b.cond.Wait()
		close(done)
		if ctx.Err() != nil {
			return core.SignedEpochOutcome{}, ctx.Err()
		}
	}
	if b.closed {
		return core.SignedEpochOutcome{}, context.Canceled
	}
	out := *b.pending
	b.pending = nil
	return out, nil
}

// Close wakes any blocked NextOutcome callers with an error.
func (b *Broadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// Keychain is a trivial Keychain double that always verifies and signs
// with a fixed marker, for tests that don't exercise real cryptography.
type Keychain struct {
	// RejectEpoch, if non-zero, makes VerifyEpoch fail for that one epoch,
	// letting tests exercise the engine's fatal-signature path.
	RejectEpoch core.EpochIndex
}

func (k *Keychain) Sign(epoch core.EpochIndex, items []core.ConsensusItem) (core.ThresholdSignature, error) {
	return core.ThresholdSignature("test-signature"), nil
}

func (k *Keychain) VerifyEpoch(outcome core.SignedEpochOutcome) bool {
	if k.RejectEpoch != 0 && outcome.Epoch == k.RejectEpoch {
		return false
	}
	return true
}
