// Package memorystore is an in-memory database.KeyValueStore, used in tests.
package memorystore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/fedimint-go/fedimintd/database"
)

// Store is a sync.RWMutex-guarded sorted map.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[string(key)] = v
	return nil
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) snapshotData() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		vv := make([]byte, len(v))
		copy(vv, v)
		cp[k] = vv
	}
	return cp
}

func (s *Store) sortedKeys(data map[string][]byte, prefix []byte) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) NewIterator(prefix []byte) database.Iterator {
	data := s.snapshotData()
	return &iterator{data: data, keys: s.sortedKeys(data, prefix), idx: -1}
}

type iterator struct {
	data map[string][]byte
	keys []string
	idx  int
}

func (it *iterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *iterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *iterator) Value() []byte { return it.data[it.keys[it.idx]] }
func (it *iterator) Release()      {}
func (it *iterator) Error() error  { return nil }

type batch struct {
	s   *Store
	ops []op
}

type op struct {
	del   bool
	key   []byte
	value []byte
}

func (s *Store) NewBatch() database.Batch { return &batch{s: s} }

func (b *batch) Put(key, value []byte) error {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.ops = append(b.ops, op{key: k, value: v})
	return nil
}

func (b *batch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, op{del: true, key: k})
	return nil
}

func (b *batch) Write() error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for _, o := range b.ops {
		if o.del {
			delete(b.s.data, string(o.key))
		} else {
			b.s.data[string(o.key)] = o.value
		}
	}
	return nil
}

func (b *batch) Reset()   { b.ops = b.ops[:0] }
func (b *batch) Len() int { return len(b.ops) }

type snapshot struct {
	data map[string][]byte
	s    *Store
}

func (s *Store) Snapshot() (database.Snapshot, error) {
	return &snapshot{data: s.snapshotData(), s: s}, nil
}

func (sn *snapshot) Has(key []byte) (bool, error) {
	_, ok := sn.data[string(key)]
	return ok, nil
}

func (sn *snapshot) Get(key []byte) ([]byte, error) {
	v, ok := sn.data[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return v, nil
}

func (sn *snapshot) NewIterator(prefix []byte) database.Iterator {
	return &iterator{data: sn.data, keys: sn.s.sortedKeys(sn.data, prefix), idx: -1}
}

func (sn *snapshot) Release() {}
