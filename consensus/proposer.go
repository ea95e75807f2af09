package consensus

import (
	"context"
	"time"

	"github.com/fedimint-go/fedimintd/core"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/log"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

// ProposalInterval is how often a proposer task wakes to call
// ProposeConsensus. 1 second in production; overridden to 100ms under a
// test-environment flag.
const ProposalInterval = time.Second

// TestProposalInterval is the interval used when the test-environment flag
// is set.
const TestProposalInterval = 100 * time.Millisecond

// ProposalTimeout bounds a single ProposeConsensus call. Exceeding it logs
// a warning and moves on; the next tick retries, so no work is lost.
const ProposalTimeout = 30 * time.Second

// SpawnProposer starts the long-lived proposer task for one module
// instance: on each tick it takes a read-only database snapshot, asks the
// module to propose consensus items, and offers each returned item to the
// submission queue on a best-effort basis. Exactly one such task exists
// per module instance for the lifetime of the process.
func SpawnProposer(
	tg *taskgroup.Group,
	id core.ModuleInstanceID,
	mod core.Module,
	db *database.Database,
	queue *SubmissionQueue,
	interval time.Duration,
) {
	tg.Spawn(proposerTaskName(id), func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				proposeOnce(ctx, id, mod, db, queue)
			}
		}
	})
}

func proposeOnce(ctx context.Context, id core.ModuleInstanceID, mod core.Module, db *database.Database, queue *SubmissionQueue) {
	tctx, cancel := context.WithTimeout(ctx, ProposalTimeout)
	defer cancel()

	tx, err := db.BeginReadSnapshot()
	if err != nil {
		log.Warn("proposer: failed to open database snapshot", "module_instance", id, "err", err)
		return
	}
	defer tx.Rollback()

	items, err := mod.ProposeConsensus(tctx, tx, id)
	if err != nil {
		if tctx.Err() != nil {
			log.Warn("proposer: consensus_proposal timed out", "module_instance", id)
			return
		}
		log.Warn("proposer: consensus_proposal failed", "module_instance", id, "err", err)
		return
	}

	for _, payload := range items {
		item := core.ModuleItem(id, payload)
		if dropped := queue.TryPropose(item); dropped {
			log.Debug("proposer: submission queue full, dropping item for this tick", "module_instance", id)
		}
	}
}

func proposerTaskName(id core.ModuleInstanceID) string {
	return "proposer-" + id.String()
}
