package query

import "github.com/fedimint-go/fedimintd/core"

// EventuallyConsistent wraps CurrentConsensus(threshold): once threshold
// responses have been collected in a round without reaching agreement, it
// emits RetryMembers for every responder so far and starts a fresh round.
// Peers in different epochs are expected to converge after another round;
// this strategy does not know how to target a specific epoch directly.
type EventuallyConsistent[R any] struct {
	threshold  int
	inner      *CurrentConsensus[R]
	responders []core.PeerID
	count      int
}

// NewEventuallyConsistent returns a strategy that retries the whole round
// once threshold responses fail to agree.
func NewEventuallyConsistent[R any](threshold int) *EventuallyConsistent[R] {
	return &EventuallyConsistent[R]{threshold: threshold, inner: NewCurrentConsensus[R](threshold)}
}

func (e *EventuallyConsistent[R]) OnResponse(peer core.PeerID, value R, err error) Step[R] {
	step := e.inner.OnResponse(peer, value, err)
	if step.Kind != Continue {
		return step
	}

	e.responders = append(e.responders, peer)
	e.count++
	if e.count >= e.threshold {
		responders := e.responders
		e.inner = NewCurrentConsensus[R](e.threshold)
		e.responders = nil
		e.count = 0
		return retryStep[R](responders)
	}
	return continueStep[R]()
}
