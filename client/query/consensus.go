package query

import (
	"reflect"

	"github.com/fedimint-go/fedimintd/core"
	"github.com/fedimint-go/fedimintd/log"
)

type valueSupport[R any] struct {
	value      R
	supporters map[core.PeerID]bool
}

// CurrentConsensus accumulates distinct Ok values along with the set of
// peers that returned each; it succeeds once any one value's supporter
// set reaches threshold, and fails once the number of distinct erroring
// peers reaches threshold. Storage is a linear list scanned with
// reflect.DeepEqual: responses are expected to be few, and R carries no
// ordering or hashing constraint.
type CurrentConsensus[R any] struct {
	threshold int
	entries   []*valueSupport[R]
	errs      map[core.PeerID]error
	done      bool
}

// NewCurrentConsensus returns a strategy requiring threshold matching Ok
// responses (or erroring peers) before reaching a terminal Step.
func NewCurrentConsensus[R any](threshold int) *CurrentConsensus[R] {
	return &CurrentConsensus[R]{threshold: threshold, errs: make(map[core.PeerID]error)}
}

func (c *CurrentConsensus[R]) OnResponse(peer core.PeerID, value R, err error) Step[R] {
	if c.done {
		return continueStep[R]()
	}

	if err != nil {
		c.errs[peer] = err
		if len(c.errs) >= c.threshold {
			c.done = true
			return failureStep[R](copyErrs(c.errs))
		}
		return continueStep[R]()
	}

	for _, e := range c.entries {
		if reflect.DeepEqual(e.value, value) {
			if e.supporters[peer] {
				log.Debug("query: duplicate response from peer for an already-seen value, ignoring", "peer", peer)
				return continueStep[R]()
			}
			e.supporters[peer] = true
			if len(e.supporters) >= c.threshold {
				c.done = true
				return successStep(e.value)
			}
			return continueStep[R]()
		}
	}

	e := &valueSupport[R]{value: value, supporters: map[core.PeerID]bool{peer: true}}
	c.entries = append(c.entries, e)
	if len(e.supporters) >= c.threshold {
		c.done = true
		return successStep(value)
	}
	return continueStep[R]()
}

func copyErrs(m map[core.PeerID]error) map[core.PeerID]error {
	out := make(map[core.PeerID]error, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
