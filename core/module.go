package core

import "context"

// APIEndpoint is one named, typed RPC handler a module contributes.
// Req/Resp are carried as opaque JSON by the API layer; the module package
// is responsible for unmarshaling Req and marshaling Resp itself so that the
// core module interface stays free of generics (Go generics don't compose
// with a heterogeneous endpoint list stored in a single slice).
type APIEndpoint struct {
	// Path must match [0-9a-z_]+; the API layer namespaces it as
	// module_<instance_id>_<path> before registering it.
	Path string
	// RequiresAuth gates this endpoint behind the admin credential.
	RequiresAuth bool
	// Handler receives the raw JSON request params and the opaque
	// per-request context value the API layer threads through (an
	// *api.Context in practice; typed as `any` here to avoid an import
	// cycle between core and api).
	Handler func(ctx context.Context, reqCtx any, params []byte) (any, error)
}

// Module is the capability set the engine and API layer interact with.
// Modules are otherwise opaque: the engine never inspects module internals,
// only calls through this interface (capability-based polymorphism in place
// of the trait-object dispatch the original design used).
type Module interface {
	// ProposeConsensus is called periodically (via a dedicated proposer
	// task) against a read-only database snapshot to collect items this
	// module instance wants the federation to agree on.
	ProposeConsensus(ctx context.Context, dbSnapshot ReadTxn, instance ModuleInstanceID) ([][]byte, error)

	// ApplyItem applies one already-agreed module item inside the
	// engine's write transaction. Returning an error here is a fatal
	// integrity violation: the payload was supposed to have been
	// validated before ever being proposed.
	ApplyItem(ctx context.Context, dbTx WriteTxn, instance ModuleInstanceID, proposer PeerID, payload []byte) error

	// APIEndpoints lists the named endpoints this module instance serves.
	APIEndpoints() []APIEndpoint
}

// ModuleInit is the static, per-kind descriptor the registry resolves by
// ModuleKind before any instance exists: it reports the schema version and
// migrations the module's code expects. Keeping this separate from Module
// lets the registry run migrations against a module's prefixed keyspace
// strictly before constructing the runtime instance.
type ModuleInit interface {
	// DatabaseVersion is the schema version this module's code expects.
	DatabaseVersion() uint32

	// Migrations maps a target schema version to the function that
	// migrates a prefixed database from version-1 to version.
	Migrations() map[uint32]MigrationFunc
}

// MigrationFunc migrates a module's prefixed keyspace to its target
// version. Migrations must be idempotent: applying one whose target is
// already the persisted version is skipped by the caller, never invoked
// twice for the same version in one run.
type MigrationFunc func(ctx context.Context, dbTx WriteTxn) error

// ReadTxn is the read-only view a module sees during proposal.
type ReadTxn interface {
	Get(key []byte) ([]byte, bool, error)
	Has(key []byte) (bool, error)
	Iterate(prefix []byte) (Iterator, error)
}

// WriteTxn is the read-write view a module sees while applying an item or
// running a migration.
type WriteTxn interface {
	ReadTxn
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Iterator walks key/value pairs in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}
