package example_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/database/memorystore"
	"github.com/fedimint-go/fedimintd/module/example"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

func TestRegistryConstructsAndMigratesExampleModule(t *testing.T) {
	db := database.New(memorystore.New())
	tg := taskgroup.New(context.Background())
	defer tg.Shutdown()

	cfgs := map[core.ModuleInstanceID]coremodule.Config{
		0: {Kind: example.Kind},
	}
	inits := coremodule.InitRegistry{example.Kind: example.Init}

	reg, err := coremodule.NewRegistry(context.Background(), cfgs, inits, db, tg, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	version, ok, err := db.ModuleSchemaVersion(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(example.CurrentDatabaseVersion), version)
}

func TestProposeThenApplyAdvancesCounter(t *testing.T) {
	db := database.New(memorystore.New())
	tg := taskgroup.New(context.Background())
	defer tg.Shutdown()

	cfgs := map[core.ModuleInstanceID]coremodule.Config{0: {Kind: example.Kind}}
	inits := coremodule.InitRegistry{example.Kind: example.Init}
	reg, err := coremodule.NewRegistry(context.Background(), cfgs, inits, db, tg, 1, 0)
	require.NoError(t, err)

	mod, _, ok := reg.Get(0)
	require.True(t, ok)

	prefixed := db.WithModulePrefix(0)
	snap, err := prefixed.BeginReadSnapshot()
	require.NoError(t, err)
	items, err := mod.ProposeConsensus(context.Background(), snap, 0)
	snap.Rollback()
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, uint64(1), binary.BigEndian.Uint64(items[0]))

	tx := prefixed.BeginWrite()
	require.NoError(t, mod.ApplyItem(context.Background(), tx, 0, 0, items[0]))
	require.NoError(t, tx.Commit())

	snap, err = prefixed.BeginReadSnapshot()
	require.NoError(t, err)
	defer snap.Rollback()
	v, ok, err := snap.Get([]byte("counter"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), binary.BigEndian.Uint64(v))
}
