// Package module builds and owns the ModuleRegistry: construction,
// migrations, and ordered iteration. The registry is immutable after
// construction: entries are created once at startup and never removed
// during a run.
package module

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fedimint-go/fedimintd/core"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

// ConstructFn builds one module instance. db is already prefixed to this
// instance's keyspace by the caller.
type ConstructFn func(ctx context.Context, numPeers int, cfg json.RawMessage, db *database.Database, tg *taskgroup.Group, self core.PeerID) (core.Module, error)

// Init is the static per-kind descriptor the registry resolves by
// ModuleKind: its schema version/migrations are consulted before any
// instance is constructed.
type Init struct {
	core.ModuleInit
	Construct ConstructFn
}

// InitRegistry resolves a module kind name to its Init descriptor.
type InitRegistry map[core.ModuleKind]Init

// Config is one configured module instance as read from the federation
// config file.
type Config struct {
	Kind core.ModuleKind `json:"kind"`
	Cfg  json.RawMessage `json:"cfg"`
}

type entry struct {
	id     core.ModuleInstanceID
	kind   core.ModuleKind
	module core.Module
}

// Registry is the ordered, immutable module_instance_id -> (kind, module)
// mapping the engine and API layer look modules up through.
type Registry struct {
	order   []core.ModuleInstanceID
	entries map[core.ModuleInstanceID]entry
}

// NewRegistry constructs every configured module instance: for each entry it
// resolves the Init descriptor for its kind (failing startup on an unknown
// kind), runs schema migrations against its prefixed database, then invokes
// Construct. Construction is fatal-on-error: any single module failing to
// construct aborts the whole registry.
func NewRegistry(
	ctx context.Context,
	cfgs map[core.ModuleInstanceID]Config,
	inits InitRegistry,
	db *database.Database,
	tg *taskgroup.Group,
	numPeers int,
	self core.PeerID,
) (*Registry, error) {
	ids := make([]core.ModuleInstanceID, 0, len(cfgs))
	for id := range cfgs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	reg := &Registry{entries: make(map[core.ModuleInstanceID]entry, len(ids))}
	for _, id := range ids {
		cfg := cfgs[id]
		init, ok := inits[cfg.Kind]
		if !ok {
			return nil, fmt.Errorf("module registry: configuration for unsupported module kind %q (instance %d)", cfg.Kind, id)
		}

		prefixed := db.WithModulePrefix(id)

		if err := runMigrations(ctx, db, prefixed, id, init.DatabaseVersion(), init.Migrations()); err != nil {
			return nil, fmt.Errorf("module registry: migrate module %d (%s): %w", id, cfg.Kind, err)
		}

		mod, err := init.Construct(ctx, numPeers, cfg.Cfg, prefixed, tg, self)
		if err != nil {
			return nil, fmt.Errorf("module registry: init module %d (%s): %w", id, cfg.Kind, err)
		}

		reg.order = append(reg.order, id)
		reg.entries[id] = entry{id: id, kind: cfg.Kind, module: mod}
	}
	return reg, nil
}

// Get returns the module instance for id, or ok=false if id is not present
// in the registry (an engine or API lookup for an absent instance signals
// configuration drift between peers).
func (r *Registry) Get(id core.ModuleInstanceID) (core.Module, core.ModuleKind, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, "", false
	}
	return e.module, e.kind, true
}

// InstanceModule is one entry as returned by Iter, in registry (key) order.
type InstanceModule struct {
	ID     core.ModuleInstanceID
	Kind   core.ModuleKind
	Module core.Module
}

// Iter returns every registered module instance in ascending instance-id
// order.
func (r *Registry) Iter() []InstanceModule {
	out := make([]InstanceModule, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		out = append(out, InstanceModule{ID: e.id, Kind: e.kind, Module: e.module})
	}
	return out
}

// Len reports the number of configured module instances.
func (r *Registry) Len() int { return len(r.order) }
