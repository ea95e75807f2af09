package query

import "github.com/fedimint-go/fedimintd/core"

// TrustAllPeers accepts the first Ok response it sees as the final answer.
// A peer's error fails only that peer; it never contributes to a
// terminal Failure on its own.
type TrustAllPeers[R any] struct {
	done bool
}

// NewTrustAllPeers returns a strategy that trusts whichever peer answers
// first.
func NewTrustAllPeers[R any]() *TrustAllPeers[R] { return &TrustAllPeers[R]{} }

func (t *TrustAllPeers[R]) OnResponse(peer core.PeerID, value R, err error) Step[R] {
	if t.done {
		return continueStep[R]()
	}
	if err != nil {
		return failMembersStep[R](map[core.PeerID]error{peer: err})
	}
	t.done = true
	return successStep(value)
}
