package module

import (
	"context"
	"fmt"

	"github.com/fedimint-go/fedimintd/core"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/log"
)

// runMigrations brings a module instance's prefixed database from its
// recorded schema version up to target, running each intermediate
// migration in its own write transaction against the module's own
// prefixed keyspace. The recorded version itself is bookkept in the
// global (unprefixed) database, so global and prefixedForID must be views
// over the same underlying store. Re-running it when the recorded version
// already equals target is a no-op.
func runMigrations(ctx context.Context, global, prefixedForID *database.Database, id core.ModuleInstanceID, target uint32, migrations map[uint32]core.MigrationFunc) error {
	current, ok, err := global.ModuleSchemaVersion(id)
	if err != nil {
		return fmt.Errorf("module %d: read schema version: %w", id, err)
	}
	if !ok {
		current = 0
	}
	if current == target {
		return nil
	}
	if current > target {
		return fmt.Errorf("module %d: persisted schema version %d is newer than code version %d", id, current, target)
	}

	for v := current + 1; v <= target; v++ {
		fn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("module %d: missing migration to version %d", id, v)
		}
		log.Info("running module migration", "module_instance", id, "to_version", v)
		tx := prefixedForID.BeginWrite()
		if err := fn(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("module %d: migration to version %d: %w", id, v, err)
		}
		globalView := global.View(tx)
		if err := global.SetModuleSchemaVersion(globalView, id, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("module %d: persist schema version %d: %w", id, v, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("module %d: commit migration to version %d: %w", id, v, err)
		}
	}
	return nil
}
