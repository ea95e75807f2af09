package consensus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/consensus"
	"github.com/fedimint-go/fedimintd/consensus/testbroadcast"
	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/database/memorystore"
	"github.com/fedimint-go/fedimintd/module/example"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

func TestEngineAppliesOutcomeAndAdvancesHeight(t *testing.T) {
	db := database.New(memorystore.New())
	tg := taskgroup.New(context.Background())
	defer tg.Shutdown()

	cfgs := map[core.ModuleInstanceID]coremodule.Config{0: {Kind: example.Kind}}
	inits := coremodule.InitRegistry{example.Kind: example.Init}
	reg, err := coremodule.NewRegistry(context.Background(), cfgs, inits, db, tg, 1, 0)
	require.NoError(t, err)

	broadcast := testbroadcast.New()
	keychain := &testbroadcast.Keychain{}
	queue := consensus.NewSubmissionQueue()
	lastConsensus := consensus.NewLastConsensusByPeer()
	heights := consensus.NewHeightWatch()

	engine, err := consensus.NewEngine(0, db, keychain, broadcast, reg, queue, lastConsensus, consensus.NewConnectionStatus(), heights, nil)
	require.NoError(t, err)

	require.NoError(t, queue.Submit(context.Background(), core.ModuleItem(0, []byte{0, 0, 0, 0, 0, 0, 0, 1})))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx, tg) }()

	require.NoError(t, heights.WaitAtLeast(ctx, 1))

	epoch, ok, err := db.HighestAppliedEpoch()
	require.NoError(t, err)
	require.True(t, ok)
	require.GreaterOrEqual(t, epoch, core.EpochIndex(1))

	epochOfPeer, ok := lastConsensus.Get(0)
	require.True(t, ok)
	require.GreaterOrEqual(t, epochOfPeer, core.EpochIndex(1))

	prefixed := db.WithModulePrefix(0)
	snap, err := prefixed.BeginReadSnapshot()
	require.NoError(t, err)
	v, ok, err := snap.Get([]byte("counter"))
	snap.Rollback()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), beUint64(v))

	tg.Shutdown()
	cancel()
	<-done
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func TestEngineRejectsBadSignature(t *testing.T) {
	db := database.New(memorystore.New())
	tg := taskgroup.New(context.Background())
	defer tg.Shutdown()

	reg, err := coremodule.NewRegistry(context.Background(), nil, coremodule.InitRegistry{}, db, tg, 1, 0)
	require.NoError(t, err)

	broadcast := testbroadcast.New()
	keychain := &testbroadcast.Keychain{RejectEpoch: 1}
	queue := consensus.NewSubmissionQueue()
	heights := consensus.NewHeightWatch()

	engine, err := consensus.NewEngine(0, db, keychain, broadcast, reg, queue, consensus.NewLastConsensusByPeer(), consensus.NewConnectionStatus(), heights, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = engine.Run(ctx, tg)
	var fatal *consensus.FatalError
	require.ErrorAs(t, err, &fatal)

	_, ok, err := db.HighestAppliedEpoch()
	require.NoError(t, err)
	require.False(t, ok)
}
