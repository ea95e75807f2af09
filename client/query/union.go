package query

import (
	"reflect"

	"github.com/fedimint-go/fedimintd/core"
)

// UnionResponses collects the deduplicated union of each peer's Vec<R>
// across the first threshold Ok peers; errors accumulate and are folded
// exactly like CurrentConsensus's error-threshold rule. Errors from
// different peers are tracked independently of Ok counting, so a mix of
// failing and succeeding peers is handled without cross-contaminating the
// two counts.
//
// UnionResponsesSingle is a near twin of this type for a single-value (not
// Vec) per-peer response; both are kept here with identical union-building
// logic rather than merged into one generic shape.
type UnionResponses[E any] struct {
	threshold int
	okPeers   map[core.PeerID]bool
	union     []E
	errs      map[core.PeerID]error
	done      bool
}

// NewUnionResponses returns a strategy requiring threshold Ok peers before
// emitting the deduplicated union of their values.
func NewUnionResponses[E any](threshold int) *UnionResponses[E] {
	return &UnionResponses[E]{threshold: threshold, okPeers: make(map[core.PeerID]bool), errs: make(map[core.PeerID]error)}
}

func (u *UnionResponses[E]) OnResponse(peer core.PeerID, value []E, err error) Step[[]E] {
	if u.done {
		return continueStep[[]E]()
	}
	if err != nil {
		u.errs[peer] = err
		if len(u.errs) >= u.threshold {
			u.done = true
			return failureStep[[]E](copyErrs(u.errs))
		}
		return continueStep[[]E]()
	}
	if u.okPeers[peer] {
		return continueStep[[]E]()
	}
	u.okPeers[peer] = true
	u.union = unionAppend(u.union, value)

	if len(u.okPeers) >= u.threshold {
		u.done = true
		return successStep(append([]E(nil), u.union...))
	}
	return continueStep[[]E]()
}

// UnionResponsesSingle is UnionResponses for peers that each answer with a
// single R instead of a slice.
type UnionResponsesSingle[E any] struct {
	threshold int
	okPeers   map[core.PeerID]bool
	union     []E
	errs      map[core.PeerID]error
	done      bool
}

// NewUnionResponsesSingle returns a strategy requiring threshold Ok peers
// before emitting the deduplicated union of their single-value answers.
func NewUnionResponsesSingle[E any](threshold int) *UnionResponsesSingle[E] {
	return &UnionResponsesSingle[E]{threshold: threshold, okPeers: make(map[core.PeerID]bool), errs: make(map[core.PeerID]error)}
}

func (u *UnionResponsesSingle[E]) OnResponse(peer core.PeerID, value E, err error) Step[[]E] {
	if u.done {
		return continueStep[[]E]()
	}
	if err != nil {
		u.errs[peer] = err
		if len(u.errs) >= u.threshold {
			u.done = true
			return failureStep[[]E](copyErrs(u.errs))
		}
		return continueStep[[]E]()
	}
	if u.okPeers[peer] {
		return continueStep[[]E]()
	}
	u.okPeers[peer] = true
	u.union = unionAppend(u.union, []E{value})

	if len(u.okPeers) >= u.threshold {
		u.done = true
		return successStep(append([]E(nil), u.union...))
	}
	return continueStep[[]E]()
}

func unionAppend[E any](union []E, values []E) []E {
	for _, v := range values {
		found := false
		for _, existing := range union {
			if reflect.DeepEqual(existing, v) {
				found = true
				break
			}
		}
		if !found {
			union = append(union, v)
		}
	}
	return union
}
