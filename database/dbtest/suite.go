// Package dbtest is a shared database.KeyValueStore conformance suite,
// runnable against every backend so the memory and LevelDB implementations
// are held to the same behavior.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/database"
)

// TestKeyValueStoreSuite exercises the common contract every
// database.KeyValueStore implementation must satisfy.
func TestKeyValueStoreSuite(t *testing.T, newStore func() database.KeyValueStore) {
	t.Run("PutGetHasDelete", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ok, err := s.Has([]byte("k"))
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, s.Put([]byte("k"), []byte("v")))
		ok, err = s.Has([]byte("k"))
		require.NoError(t, err)
		require.True(t, ok)

		v, err := s.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("v"), v)

		require.NoError(t, s.Delete([]byte("k")))
		_, err = s.Get([]byte("k"))
		require.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("Iterator", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		require.NoError(t, s.Put([]byte("a/1"), []byte("1")))
		require.NoError(t, s.Put([]byte("a/2"), []byte("2")))
		require.NoError(t, s.Put([]byte("b/1"), []byte("3")))

		it := s.NewIterator([]byte("a/"))
		defer it.Release()

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		require.NoError(t, it.Error())
		require.Equal(t, []string{"a/1", "a/2"}, keys)
	})

	t.Run("BatchAtomic", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		b := s.NewBatch()
		require.NoError(t, b.Put([]byte("x"), []byte("1")))
		require.NoError(t, b.Put([]byte("y"), []byte("2")))
		require.Equal(t, 2, b.Len())
		require.NoError(t, b.Write())

		vx, err := s.Get([]byte("x"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), vx)
		vy, err := s.Get([]byte("y"))
		require.NoError(t, err)
		require.Equal(t, []byte("2"), vy)
	})

	t.Run("SnapshotIsolation", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		require.NoError(t, s.Put([]byte("k"), []byte("before")))
		snap, err := s.Snapshot()
		require.NoError(t, err)
		defer snap.Release()

		require.NoError(t, s.Put([]byte("k"), []byte("after")))

		v, err := snap.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("before"), v)

		live, err := s.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("after"), live)
	})
}
