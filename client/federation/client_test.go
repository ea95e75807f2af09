package federation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/client/federation"
	"github.com/fedimint-go/fedimintd/client/query"
	"github.com/fedimint-go/fedimintd/core"
)

func TestRunStrategyCurrentConsensus(t *testing.T) {
	c := federation.New([]core.PeerID{1, 2, 3})
	strategy := query.NewCurrentConsensus[string](3)

	call := func(ctx context.Context, peer core.PeerID) (string, error) {
		return "agreed", nil
	}

	value, err := federation.RunStrategy[string](context.Background(), c, strategy, call)
	require.NoError(t, err)
	require.Equal(t, "agreed", value)
}

// A round that splits across two values plus some errors, with no value and
// no error count reaching threshold, must not drop the peers that merely
// returned Continue — they stay active and get polled again next round.
func TestRunStrategyCurrentConsensusCarriesContinuePeersToNextRound(t *testing.T) {
	c := federation.New([]core.PeerID{1, 2, 3, 4})
	strategy := query.NewCurrentConsensus[string](3)

	var mu sync.Mutex
	calls := map[core.PeerID]int{}

	call := func(ctx context.Context, peer core.PeerID) (string, error) {
		mu.Lock()
		n := calls[peer]
		calls[peer] = n + 1
		mu.Unlock()

		if n == 0 {
			switch peer {
			case 1:
				return "a", nil
			case 2:
				return "b", nil
			default:
				return "", context.DeadlineExceeded
			}
		}
		return "a", nil
	}

	value, err := federation.RunStrategy[string](context.Background(), c, strategy, call)
	require.NoError(t, err)
	require.Equal(t, "a", value)
}

func TestRunStrategyAllPeersFail(t *testing.T) {
	c := federation.New([]core.PeerID{1, 2, 3})
	strategy := query.NewCurrentConsensus[string](3)

	call := func(ctx context.Context, peer core.PeerID) (string, error) {
		return "", context.DeadlineExceeded
	}

	_, err := federation.RunStrategy[string](context.Background(), c, strategy, call)
	require.Error(t, err)
	var sf *federation.StrategyFailure
	require.ErrorAs(t, err, &sf)
	require.Len(t, sf.Errors, 3)
}
