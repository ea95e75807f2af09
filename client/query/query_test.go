package query_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/client/query"
	"github.com/fedimint-go/fedimintd/core"
)

func TestCurrentConsensusSuccess(t *testing.T) {
	s := query.NewCurrentConsensus[string](3)

	step := s.OnResponse(1, "a", nil)
	require.Equal(t, query.Continue, step.Kind)

	step = s.OnResponse(2, "a", nil)
	require.Equal(t, query.Continue, step.Kind)

	step = s.OnResponse(3, "a", nil)
	require.Equal(t, query.Success, step.Kind)
	require.Equal(t, "a", step.Value)
}

func TestCurrentConsensusFailureViaErrors(t *testing.T) {
	s := query.NewCurrentConsensus[string](3)
	e1, e2, e3 := errors.New("e1"), errors.New("e2"), errors.New("e3")

	require.Equal(t, query.Continue, s.OnResponse(1, "", e1).Kind)
	require.Equal(t, query.Continue, s.OnResponse(2, "", e2).Kind)

	step := s.OnResponse(3, "", e3)
	require.Equal(t, query.Failure, step.Kind)
	require.Equal(t, map[core.PeerID]error{1: e1, 2: e2, 3: e3}, step.Errors)
}

func TestRetry404(t *testing.T) {
	s := query.NewRetry404[string](2)

	step := s.OnResponse(1, "", &query.NotFoundError{Peer: 1})
	require.Equal(t, query.RetryMembers, step.Kind)
	require.Equal(t, []core.PeerID{1}, step.Peers)

	require.Equal(t, query.Continue, s.OnResponse(2, "x", nil).Kind)

	step = s.OnResponse(3, "x", nil)
	require.Equal(t, query.Success, step.Kind)
	require.Equal(t, "x", step.Value)
}

func TestUnionResponses(t *testing.T) {
	s := query.NewUnionResponses[string](2)

	step := s.OnResponse(1, []string{"a", "b"}, nil)
	require.Equal(t, query.Continue, step.Kind)

	step = s.OnResponse(2, []string{"b", "c"}, nil)
	require.Equal(t, query.Success, step.Kind)
	require.Equal(t, []string{"a", "b", "c"}, step.Value)
}

func TestEventuallyConsistentRetriesThenConverges(t *testing.T) {
	s := query.NewEventuallyConsistent[string](2)

	step := s.OnResponse(1, "a", nil)
	require.Equal(t, query.Continue, step.Kind)

	step = s.OnResponse(2, "b", nil)
	require.Equal(t, query.RetryMembers, step.Kind)
	require.ElementsMatch(t, []core.PeerID{1, 2}, step.Peers)

	step = s.OnResponse(1, "a", nil)
	require.Equal(t, query.Continue, step.Kind)

	step = s.OnResponse(2, "a", nil)
	require.Equal(t, query.Success, step.Kind)
	require.Equal(t, "a", step.Value)
}

func TestTrustAllPeers(t *testing.T) {
	s := query.NewTrustAllPeers[string]()

	step := s.OnResponse(1, "", errors.New("down"))
	require.Equal(t, query.FailMembers, step.Kind)

	step = s.OnResponse(2, "x", nil)
	require.Equal(t, query.Success, step.Kind)
	require.Equal(t, "x", step.Value)
}

func TestValidHistoryTrustsVerifiedSignatureImmediately(t *testing.T) {
	s := query.NewValidHistory[string](3, func(v string) bool { return v == "signed" })

	step := s.OnResponse(1, "signed", nil)
	require.Equal(t, query.Success, step.Kind)
	require.Equal(t, "signed", step.Value)
}

func TestValidHistoryFallsBackToCurrentConsensus(t *testing.T) {
	s := query.NewValidHistory[string](2, func(v string) bool { return false })

	require.Equal(t, query.Continue, s.OnResponse(1, "a", nil).Kind)
	step := s.OnResponse(2, "a", nil)
	require.Equal(t, query.Success, step.Kind)
	require.Equal(t, "a", step.Value)
}
