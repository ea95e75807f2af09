package query

import "github.com/fedimint-go/fedimintd/core"

// NotFoundError is the sentinel error shape Retry404 looks for: a peer
// response carrying HTTP-style code 404 means that peer simply hasn't
// caught up to a just-committed epoch yet, not that the request is
// invalid.
type NotFoundError struct {
	Peer core.PeerID
}

func (e *NotFoundError) Error() string { return "peer has not yet seen the requested epoch" }

// Retry404 behaves like CurrentConsensus, except that a *NotFoundError
// from a peer retries that peer instead of counting it toward Failure —
// a lagging peer may not yet have the just-committed epoch it was asked
// about.
type Retry404[R any] struct {
	inner *CurrentConsensus[R]
}

// NewRetry404 returns a strategy wrapping CurrentConsensus(threshold) with
// 404-aware retries.
func NewRetry404[R any](threshold int) *Retry404[R] {
	return &Retry404[R]{inner: NewCurrentConsensus[R](threshold)}
}

func (r *Retry404[R]) OnResponse(peer core.PeerID, value R, err error) Step[R] {
	if nf, ok := err.(*NotFoundError); ok {
		return retryStep[R]([]core.PeerID{nf.Peer})
	}
	return r.inner.OnResponse(peer, value, err)
}
