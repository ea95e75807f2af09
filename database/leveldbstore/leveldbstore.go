// Package leveldbstore is the durable database.KeyValueStore backend,
// wrapping github.com/syndtr/goleveldb.
package leveldbstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/fedimint-go/fedimintd/database"
)

// Store adapts *leveldb.DB to database.KeyValueStore.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *Store) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, database.ErrNotFound
	}
	return v, err
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) NewIterator(prefix []byte) database.Iterator {
	return &iterator{it: s.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

type iterator struct {
	it iteratorLike
}

// iteratorLike matches the subset of leveldb/iterator.Iterator we use.
type iteratorLike interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

func (it *iterator) Next() bool    { return it.it.Next() }
func (it *iterator) Key() []byte   { return it.it.Key() }
func (it *iterator) Value() []byte { return it.it.Value() }
func (it *iterator) Release()      { it.it.Release() }
func (it *iterator) Error() error  { return it.it.Error() }

type batch struct {
	b  *leveldb.Batch
	db *leveldb.DB
}

func (s *Store) NewBatch() database.Batch {
	return &batch{b: new(leveldb.Batch), db: s.db}
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Write() error { return b.db.Write(b.b, nil) }
func (b *batch) Reset()       { b.b.Reset() }
func (b *batch) Len() int     { return b.b.Len() }

type snapshot struct {
	snap *leveldb.Snapshot
}

func (s *Store) Snapshot() (database.Snapshot, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot{snap: snap}, nil
}

func (sn *snapshot) Has(key []byte) (bool, error) {
	ok, err := sn.snap.Has(key, nil)
	if err != nil && errors.IsNotFound(err) {
		return false, nil
	}
	return ok, err
}

func (sn *snapshot) Get(key []byte) ([]byte, error) {
	v, err := sn.snap.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, database.ErrNotFound
	}
	return v, err
}

func (sn *snapshot) NewIterator(prefix []byte) database.Iterator {
	return &iterator{it: sn.snap.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (sn *snapshot) Release() { sn.snap.Release() }
