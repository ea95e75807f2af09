// Package query implements client-side combinators that fold N peer
// responses into a single Byzantine-tolerant answer.
package query

import "github.com/fedimint-go/fedimintd/core"

// StepKind tags the directive a Strategy emits after observing one more
// peer response.
type StepKind int

const (
	// Continue means more responses are needed before a result can be
	// produced.
	Continue StepKind = iota
	// RetryMembers asks the caller to re-issue the request to the named
	// peers.
	RetryMembers
	// FailMembers marks the named peers as failed for this round, with
	// their errors.
	FailMembers
	// Success carries the final answer.
	Success
	// Failure gives up and carries every collected error.
	Failure
)

// Step is the directive a Strategy emits in response to one peer answer.
type Step[R any] struct {
	Kind   StepKind
	Value  R
	Peers  []core.PeerID
	Errors map[core.PeerID]error
}

func continueStep[R any]() Step[R]         { return Step[R]{Kind: Continue} }
func retryStep[R any](peers []core.PeerID) Step[R] {
	return Step[R]{Kind: RetryMembers, Peers: peers}
}
func failMembersStep[R any](errs map[core.PeerID]error) Step[R] {
	return Step[R]{Kind: FailMembers, Errors: errs}
}
func successStep[R any](v R) Step[R] { return Step[R]{Kind: Success, Value: v} }
func failureStep[R any](errs map[core.PeerID]error) Step[R] {
	return Step[R]{Kind: Failure, Errors: errs}
}

// Strategy folds one (peer, result) observation at a time into a Step
// directive. Success is emitted at most once per strategy instance;
// Failure carries only collected errors, never a partial result.
type Strategy[R any] interface {
	// OnResponse is called once per peer response (Ok or error). peer
	// must not repeat with a different value after the strategy has
	// already produced a terminal Step.
	OnResponse(peer core.PeerID, value R, err error) Step[R]
}
