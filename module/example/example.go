// Package example is a minimal module: it proposes one counter-increment
// item per tick and applies it by incrementing a persisted counter,
// exercising the registry/migration/proposal pipeline end-to-end without
// pulling in any real mint/wallet/lightning business logic. Used by tests
// and by the default single-node fedimintd configuration.
package example

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

// Kind names this module in server config.
const Kind core.ModuleKind = "example"

// CurrentDatabaseVersion is the schema version the code in this package
// expects. Bump it and add a migration when the persisted layout changes.
const CurrentDatabaseVersion = 1

var counterKey = []byte("counter")

// Config is this module's instance configuration; it carries nothing
// interesting beyond existing at all.
type Config struct{}

// Module increments a persisted counter once per proposal tick.
type Module struct {
	self core.PeerID
	db   *database.Database
}

// Init is this module's static descriptor plus registry.Init wiring.
var Init = coremodule.Init{
	ModuleInit: moduleInit{},
	Construct:  construct,
}

type moduleInit struct{}

func (moduleInit) DatabaseVersion() uint32 { return CurrentDatabaseVersion }

func (moduleInit) Migrations() map[uint32]core.MigrationFunc {
	return map[uint32]core.MigrationFunc{
		1: migrateToV1,
	}
}

func migrateToV1(ctx context.Context, tx core.WriteTxn) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], 0)
	return tx.Put(counterKey, v[:])
}

func construct(ctx context.Context, numPeers int, cfg json.RawMessage, db *database.Database, tg *taskgroup.Group, self core.PeerID) (core.Module, error) {
	var c Config
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &c); err != nil {
			return nil, fmt.Errorf("example module: invalid config: %w", err)
		}
	}
	return &Module{self: self, db: db}, nil
}

// ProposeConsensus proposes the next counter value as a single item.
func (m *Module) ProposeConsensus(ctx context.Context, dbSnapshot core.ReadTxn, instance core.ModuleInstanceID) ([][]byte, error) {
	v, ok, err := dbSnapshot.Get(counterKey)
	if err != nil {
		return nil, err
	}
	var current uint64
	if ok {
		current = binary.BigEndian.Uint64(v)
	}

	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, current+1)
	return [][]byte{payload}, nil
}

// ApplyItem advances the persisted counter to the proposed value if it is
// higher than what is already stored (idempotent re-application of the
// same or a stale value is a no-op).
func (m *Module) ApplyItem(ctx context.Context, dbTx core.WriteTxn, instance core.ModuleInstanceID, proposer core.PeerID, payload []byte) error {
	if len(payload) != 8 {
		return fmt.Errorf("example module: malformed counter payload (%d bytes)", len(payload))
	}
	proposed := binary.BigEndian.Uint64(payload)

	v, ok, err := dbTx.Get(counterKey)
	if err != nil {
		return err
	}
	var current uint64
	if ok {
		current = binary.BigEndian.Uint64(v)
	}
	if proposed <= current {
		return nil
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], proposed)
	return dbTx.Put(counterKey, buf[:])
}

// APIEndpoints exposes a single read endpoint returning the current
// counter value.
func (m *Module) APIEndpoints() []core.APIEndpoint {
	return []core.APIEndpoint{
		{
			Path:         "counter",
			RequiresAuth: false,
			Handler:      m.handleCounter,
		},
	}
}

func (m *Module) handleCounter(ctx context.Context, reqCtx any, params []byte) (any, error) {
	tx, err := m.db.BeginReadSnapshot()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current uint64
	if v, ok, err := tx.Get(counterKey); err != nil {
		return nil, err
	} else if ok {
		current = binary.BigEndian.Uint64(v)
	}

	return struct {
		Counter uint64 `json:"counter"`
	}{Counter: current}, nil
}
