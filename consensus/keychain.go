package consensus

import "github.com/fedimint-go/fedimintd/core"

// Keychain signs locally-proposed item batches and verifies the threshold
// signature on a finished epoch outcome. The signing/verification scheme
// itself (the threshold cryptography) is an external collaborator: the
// engine only needs these two operations.
type Keychain interface {
	// Sign produces the per-peer signature share this engine contributes
	// toward a proposed batch for epoch.
	Sign(epoch core.EpochIndex, items []core.ConsensusItem) (core.ThresholdSignature, error)

	// VerifyEpoch checks outcome's threshold signature against the known
	// epoch public key.
	VerifyEpoch(outcome core.SignedEpochOutcome) bool
}
