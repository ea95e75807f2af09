// Package federation drives a query.Strategy against the members of a
// federation: issuing one call per peer, feeding each result back into
// the strategy, and acting on its directives (retry, fail-member,
// terminate) until a Success or Failure is reached.
package federation

import (
	"context"
	"fmt"

	"github.com/fedimint-go/fedimintd/client/query"
	"github.com/fedimint-go/fedimintd/core"
	"github.com/fedimint-go/fedimintd/log"
)

// PeerCaller issues one request to peer and returns its typed result.
// The concrete RPC transport (JSON-RPC over WebSocket in production) is an
// external collaborator; this package only needs the call shape.
type PeerCaller[R any] func(ctx context.Context, peer core.PeerID) (R, error)

// Client is the set of federation members a query is run against.
type Client struct {
	Peers []core.PeerID
}

// New returns a Client addressing the given peers.
func New(peers []core.PeerID) *Client {
	return &Client{Peers: append([]core.PeerID(nil), peers...)}
}

// RunStrategy drives strategy to a terminal Success or Failure. It is a
// free function rather than a *Client method because Go methods cannot
// introduce their own type parameters: it calls every active peer once
// per round, feeds each response into strategy as it resolves, and honors
// RetryMembers/FailMembers/Continue directives until Success or Failure
// terminates the round.
func RunStrategy[R any](ctx context.Context, c *Client, strategy query.Strategy[R], call PeerCaller[R]) (R, error) {
	active := append([]core.PeerID(nil), c.Peers...)
	var zero R

	for {
		if len(active) == 0 {
			return zero, fmt.Errorf("federation: no active peers remain")
		}

		type response struct {
			peer  core.PeerID
			value R
			err   error
		}
		results := make(chan response, len(active))
		for _, p := range active {
			go func(peer core.PeerID) {
				v, err := call(ctx, peer)
				results <- response{peer: peer, value: v, err: err}
			}(p)
		}

		var retry []core.PeerID
		failed := make(map[core.PeerID]bool)

		for i := 0; i < len(active); i++ {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case r := <-results:
				step := strategy.OnResponse(r.peer, r.value, r.err)
				switch step.Kind {
				case query.Success:
					return step.Value, nil
				case query.Failure:
					return zero, newStrategyFailure(step.Errors)
				case query.RetryMembers:
					retry = append(retry, step.Peers...)
				case query.FailMembers:
					for p := range step.Errors {
						failed[p] = true
					}
					log.Debug("federation: peers failed this round", "peers", step.Errors)
				case query.Continue:
				}
			}
		}

		active = nextRound(active, retry, failed)
	}
}

// nextRound carries every active peer that wasn't explicitly failed forward
// into the next round by default — a bare Continue (no directive naming the
// peer) is not a retry request, it just means the strategy hasn't reached a
// terminal step yet and wants to hear from that peer again. retry only adds
// peers back in (e.g. EventuallyConsistent/Retry404 re-including a peer
// outside the original active set); it never narrows the active set.
func nextRound(active, retry []core.PeerID, failed map[core.PeerID]bool) []core.PeerID {
	var next []core.PeerID
	inNext := make(map[core.PeerID]bool, len(active))
	for _, p := range active {
		if failed[p] {
			continue
		}
		inNext[p] = true
		next = append(next, p)
	}
	for _, p := range retry {
		if failed[p] || inNext[p] {
			continue
		}
		inNext[p] = true
		next = append(next, p)
	}
	return next
}

// StrategyFailure wraps the collected per-peer errors a Strategy produced
// on a terminal Failure step.
type StrategyFailure struct {
	Errors map[core.PeerID]error
}

func (e *StrategyFailure) Error() string {
	return fmt.Sprintf("federation: query strategy failed against %d peers", len(e.Errors))
}

func newStrategyFailure(errs map[core.PeerID]error) *StrategyFailure {
	return &StrategyFailure{Errors: errs}
}
