package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/core"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/database/memorystore"
)

func TestPrefixIsolation(t *testing.T) {
	db := database.New(memorystore.New())
	a := db.WithModulePrefix(1)
	b := db.WithModulePrefix(2)

	tx := a.BeginWrite()
	require.NoError(t, tx.Put([]byte("key"), []byte("a-value")))
	require.NoError(t, tx.Commit())

	tx = b.BeginWrite()
	_, ok, err := tx.Get([]byte("key"))
	require.NoError(t, err)
	require.False(t, ok, "module 2's keyspace must not see module 1's writes")
	tx.Rollback()
}

func TestCommitIsAtomicAndAdvancesHighWaterMark(t *testing.T) {
	db := database.New(memorystore.New())

	_, ok, err := db.HighestAppliedEpoch()
	require.NoError(t, err)
	require.False(t, ok)

	tx := db.BeginWrite()
	require.NoError(t, tx.Put([]byte("x"), []byte("1")))
	require.NoError(t, database.SetHighestAppliedEpoch(tx, core.EpochIndex(5)))
	require.NoError(t, tx.Commit())

	epoch, ok, err := db.HighestAppliedEpoch()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, core.EpochIndex(5), epoch)
}

func TestWriteTransactionsSerialize(t *testing.T) {
	db := database.New(memorystore.New())

	tx1 := db.BeginWrite()
	done := make(chan struct{})
	go func() {
		tx2 := db.BeginWrite()
		close(done)
		tx2.Rollback()
	}()

	select {
	case <-done:
		t.Fatal("second write transaction started before the first was released")
	default:
	}

	tx1.Rollback()
	<-done
}

func TestModuleSchemaVersion(t *testing.T) {
	db := database.New(memorystore.New())

	_, ok, err := db.ModuleSchemaVersion(3)
	require.NoError(t, err)
	require.False(t, ok)

	tx := db.BeginWrite()
	require.NoError(t, db.SetModuleSchemaVersion(tx, 3, 2))
	require.NoError(t, tx.Commit())

	version, ok, err := db.ModuleSchemaVersion(3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), version)
}
