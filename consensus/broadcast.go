package consensus

import (
	"context"

	"github.com/fedimint-go/fedimintd/core"
)

// AtomicBroadcast is the opaque, external BFT primitive the engine drives:
// it accepts one batch of locally-proposed items per round and eventually
// delivers a signed, totally-ordered SignedEpochOutcome to every correct
// peer. How agreement is reached (protocol rounds, network transport,
// threshold-signature aggregation) is entirely its concern; the engine
// only ever sees the two operations below.
type AtomicBroadcast interface {
	// ProposeBatch hands this peer's locally-signed proposal for the next
	// round to the broadcast layer. It may block until the layer is ready
	// to accept a new proposal.
	ProposeBatch(ctx context.Context, items []core.ConsensusItem, sig core.ThresholdSignature) error

	// NextOutcome blocks until the next epoch outcome is available, or ctx
	// is done.
	NextOutcome(ctx context.Context) (core.SignedEpochOutcome, error)
}
