package query

import "github.com/fedimint-go/fedimintd/core"

// ValidHistory succeeds on the first response whose threshold signature
// verifies against the federation's epoch public key — a single
// honestly-signed epoch is as trustworthy as threshold independent peers
// agreeing — and otherwise behaves exactly like CurrentConsensus.
type ValidHistory[R any] struct {
	verify func(R) bool
	inner  *CurrentConsensus[R]
}

// NewValidHistory returns a strategy that trusts a single verifiable
// signature, falling back to CurrentConsensus(threshold) otherwise.
func NewValidHistory[R any](threshold int, verify func(R) bool) *ValidHistory[R] {
	return &ValidHistory[R]{verify: verify, inner: NewCurrentConsensus[R](threshold)}
}

func (v *ValidHistory[R]) OnResponse(peer core.PeerID, value R, err error) Step[R] {
	if err == nil && !v.inner.done && v.verify(value) {
		v.inner.done = true
		return successStep(value)
	}
	return v.inner.OnResponse(peer, value, err)
}
