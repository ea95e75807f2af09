package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/fedimint-go/fedimintd/core"
)

var (
	keyHighestAppliedEpoch = []byte("global/highest_applied_epoch")
	moduleVersionKeyPrefix = []byte("global/module_version/")
)

// Database is the prefixed, transactional handle modules and the engine use.
// It wraps a KeyValueStore and owns the high-water-mark / schema-version
// bookkeeping; the storage backend itself is an external collaborator
// (LevelDB in production, an in-memory store in tests).
type Database struct {
	store  KeyValueStore
	prefix []byte

	// commitMu serializes write transactions so commits never overlap: one
	// write transaction applies one outcome at a time. It is shared by every
	// Database derived from the same underlying store via
	// WithPrefix/WithModulePrefix.
	commitMu *sync.Mutex
}

// New wraps store as the global (unprefixed) Database.
func New(store KeyValueStore) *Database {
	return &Database{store: store, commitMu: &sync.Mutex{}}
}

// WithPrefix returns a view of db whose keys are all implicitly prefixed.
// Prefixes nest: calling WithPrefix on an already-prefixed Database extends
// the prefix.
func (db *Database) WithPrefix(prefix []byte) *Database {
	return &Database{
		store:    db.store,
		prefix:   append(append([]byte(nil), db.prefix...), prefix...),
		commitMu: db.commitMu,
	}
}

// WithModulePrefix returns the keyspace owned by one module instance,
// namespaced as module/<instance_id>/....
func (db *Database) WithModulePrefix(id core.ModuleInstanceID) *Database {
	return db.WithPrefix([]byte(fmt.Sprintf("module/%d/", id)))
}

func (db *Database) prefixed(key []byte) []byte {
	if len(db.prefix) == 0 {
		return key
	}
	out := make([]byte, 0, len(db.prefix)+len(key))
	out = append(out, db.prefix...)
	out = append(out, key...)
	return out
}

// BeginWrite opens a write transaction. Only one write transaction may be
// committed at a time across the whole Database (commitMu is shared with
// every prefixed view derived from the same store), giving callers one
// write transaction at a time with an atomic commit.
func (db *Database) BeginWrite() *Tx {
	db.commitMu.Lock()
	return &Tx{db: db, batch: db.store.NewBatch(), writable: true}
}

// BeginReadSnapshot opens a read-only, point-in-time transaction. Safe to use
// concurrently with a write transaction in flight (it observes the state as
// of the moment the snapshot was taken).
func (db *Database) BeginReadSnapshot() (*Tx, error) {
	snap, err := db.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Tx{db: db, snap: snap}, nil
}

// Tx is a single read or read-write transaction over a (possibly prefixed)
// Database. It satisfies core.ReadTxn and core.WriteTxn.
type Tx struct {
	db       *Database
	batch    Batch
	snap     Snapshot
	writable bool
	done     bool
}

var _ core.WriteTxn = (*Tx)(nil)
var _ core.ReadTxn = (*Tx)(nil)

// View returns a core.WriteTxn over the same open transaction (same batch
// and, for a read transaction, the same snapshot) but rooted at a
// different Database prefix. The engine uses this to hand a module its own
// prefixed view of an in-flight write transaction without letting the
// module commit or roll back the transaction itself — View's return value
// has no Commit/Rollback of its own.
func (db *Database) View(tx *Tx) core.WriteTxn {
	return &Tx{db: db, batch: tx.batch, snap: tx.snap, writable: tx.writable}
}

func (tx *Tx) Get(key []byte) ([]byte, bool, error) {
	pk := tx.db.prefixed(key)
	var (
		v   []byte
		err error
	)
	if tx.snap != nil {
		v, err = tx.snap.Get(pk)
	} else {
		v, err = tx.db.store.Get(pk)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (tx *Tx) Has(key []byte) (bool, error) {
	pk := tx.db.prefixed(key)
	if tx.snap != nil {
		return tx.snap.Has(pk)
	}
	return tx.db.store.Has(pk)
}

func (tx *Tx) Put(key, value []byte) error {
	if !tx.writable {
		return errors.New("database: write on read-only transaction")
	}
	return tx.batch.Put(tx.db.prefixed(key), value)
}

func (tx *Tx) Delete(key []byte) error {
	if !tx.writable {
		return errors.New("database: delete on read-only transaction")
	}
	return tx.batch.Delete(tx.db.prefixed(key))
}

func (tx *Tx) Iterate(prefix []byte) (core.Iterator, error) {
	pk := tx.db.prefixed(prefix)
	var it Iterator
	if tx.snap != nil {
		it = tx.snap.NewIterator(pk)
	} else {
		it = tx.db.store.NewIterator(pk)
	}
	return &iterAdapter{it: it}, nil
}

type iterAdapter struct{ it Iterator }

func (a *iterAdapter) Next() bool    { return a.it.Next() }
func (a *iterAdapter) Key() []byte   { return a.it.Key() }
func (a *iterAdapter) Value() []byte { return a.it.Value() }
func (a *iterAdapter) Close() error {
	a.it.Release()
	return a.it.Error()
}

// Commit applies a write transaction's buffered batch atomically.
func (tx *Tx) Commit() error {
	if tx.done {
		return errors.New("database: transaction already closed")
	}
	if !tx.writable {
		return errors.New("database: cannot commit a read-only transaction")
	}
	tx.done = true
	defer tx.db.commitMu.Unlock()
	return tx.batch.Write()
}

// Rollback discards a write transaction without applying it, or releases a
// read snapshot. Safe to call after Commit (no-op).
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.writable {
		tx.db.commitMu.Unlock()
		return
	}
	if tx.snap != nil {
		tx.snap.Release()
	}
}

// HighestAppliedEpoch reads the persisted high-water mark, or (0, false) if
// no epoch has ever been committed.
func (db *Database) HighestAppliedEpoch() (core.EpochIndex, bool, error) {
	tx, err := db.BeginReadSnapshot()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()
	v, ok, err := tx.Get(keyHighestAppliedEpoch)
	if err != nil || !ok {
		return 0, false, err
	}
	return core.EpochIndex(binary.BigEndian.Uint64(v)), true, nil
}

// SetHighestAppliedEpoch advances the persisted high-water mark inside an
// already-open write transaction, so it commits atomically with the rest of
// the outcome's mutations.
func SetHighestAppliedEpoch(tx core.WriteTxn, epoch core.EpochIndex) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(epoch))
	return tx.Put(keyHighestAppliedEpoch, v[:])
}

// ModuleSchemaVersion reads the persisted schema version for a module
// instance's prefixed keyspace, or (0, false) if never recorded.
func (db *Database) ModuleSchemaVersion(id core.ModuleInstanceID) (uint32, bool, error) {
	tx, err := db.BeginReadSnapshot()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()
	key := moduleVersionKey(id)
	v, ok, err := tx.Get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	return binary.BigEndian.Uint32(v), true, nil
}

// SetModuleSchemaVersion persists the schema version for a module instance
// inside an already-open write transaction.
func (db *Database) SetModuleSchemaVersion(tx core.WriteTxn, id core.ModuleInstanceID, version uint32) error {
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], version)
	return tx.Put(moduleVersionKey(id), v[:])
}

func moduleVersionKey(id core.ModuleInstanceID) []byte {
	key := make([]byte, 0, len(moduleVersionKeyPrefix)+8)
	key = append(key, moduleVersionKeyPrefix...)
	var idBuf [2]byte
	binary.BigEndian.PutUint16(idBuf[:], uint16(id))
	key = append(key, idBuf[:]...)
	return key
}

// HasPrefix is a small helper modules use when scanning their own keyspace.
func HasPrefix(key, prefix []byte) bool { return bytes.HasPrefix(key, prefix) }
