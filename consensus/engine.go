package consensus

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/log"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

// ProposeBatchSize bounds how many items the engine drains from the
// submission queue for a single proposal round. Submission-channel drain
// is non-blocking and size-capped; any excess remains queued for the next
// round.
const ProposeBatchSize = 256

// recentOutcomesCacheSize bounds the in-memory window of recently applied
// epoch outcomes the engine keeps around for cheap API history lookups,
// beyond what a database read would cost.
const recentOutcomesCacheSize = 128

// TransactionApplier dispatches an applied ItemTransaction to the module
// input/output handlers that interpret it. Business logic for any
// particular transaction format is out of this package's scope; this is
// the seam a concrete mint/wallet/lightning implementation plugs into.
type TransactionApplier interface {
	ApplyTransaction(ctx context.Context, dbTx core.WriteTxn, payload []byte) error
}

// Engine runs the consensus main loop: it proposes locally-queued items to
// the broadcast layer, receives ordered signed epoch outcomes, verifies
// and applies them, and keeps the federation's shared peer-state maps up
// to date.
type Engine struct {
	self core.PeerID

	db       *database.Database
	keychain Keychain
	conn     *ConnectionStatus

	queue         *SubmissionQueue
	lastConsensus *LastConsensusByPeer
	heights       *HeightWatch
	registry      *coremodule.Registry
	broadcast     AtomicBroadcast
	txApplier     TransactionApplier

	recent *lru.ARCCache
}

// NewEngine wires an Engine from its collaborators. txApplier may be nil if
// the federation's module set never emits ItemTransaction items.
func NewEngine(
	self core.PeerID,
	db *database.Database,
	keychain Keychain,
	broadcast AtomicBroadcast,
	registry *coremodule.Registry,
	queue *SubmissionQueue,
	lastConsensus *LastConsensusByPeer,
	conn *ConnectionStatus,
	heights *HeightWatch,
	txApplier TransactionApplier,
) (*Engine, error) {
	recent, err := lru.NewARC(recentOutcomesCacheSize)
	if err != nil {
		return nil, fmt.Errorf("consensus: allocate recent-outcome cache: %w", err)
	}
	return &Engine{
		self:          self,
		db:            db,
		keychain:      keychain,
		conn:          conn,
		queue:         queue,
		lastConsensus: lastConsensus,
		heights:       heights,
		registry:      registry,
		broadcast:     broadcast,
		txApplier:     txApplier,
		recent:        recent,
	}, nil
}

// Run executes the main consensus loop until ctx is done (clean shutdown,
// returns nil) or a *FatalError occurs (returned as-is, tearing down the
// owning task group). Transient faults — a proposal round that fails to
// sign or hand off its batch, or a failed outcome receive — are logged and
// the loop continues.
func (e *Engine) Run(ctx context.Context, tg *taskgroup.Group) error {
	for {
		if tg.IsShuttingDown() {
			return nil
		}

		if err := e.proposeRound(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("consensus: propose round failed, continuing", "err", err)
		}

		outcome, err := e.broadcast.NextOutcome(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("consensus: failed to receive next outcome, retrying", "err", err)
			continue
		}

		if err := e.applyOutcome(ctx, outcome); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// proposeRound drains a bounded batch from the submission queue, signs it,
// and hands it to the broadcast layer. An empty batch is still proposed:
// the broadcast layer is responsible for deciding whether an empty round
// produces an outcome.
func (e *Engine) proposeRound(ctx context.Context) error {
	items := e.queue.Drain(ProposeBatchSize)
	sig, err := e.keychain.Sign(e.heights.Height()+1, items)
	if err != nil {
		return fmt.Errorf("sign proposal: %w", err)
	}
	return e.broadcast.ProposeBatch(ctx, items, sig)
}

// applyOutcome verifies, applies, and persists a finished epoch outcome.
// Any failure here is a *FatalError: this process can no longer be trusted
// to keep the replicated state machine in lockstep with its peers.
func (e *Engine) applyOutcome(ctx context.Context, outcome core.SignedEpochOutcome) error {
	if !e.keychain.VerifyEpoch(outcome) {
		return fatalf(fmt.Sprintf("epoch %d: threshold signature does not verify", outcome.Epoch), nil)
	}

	highest, ok, err := e.db.HighestAppliedEpoch()
	if err != nil {
		return fatalf("read highest applied epoch", err)
	}
	if ok && outcome.Epoch <= highest {
		log.Debug("consensus: outcome already applied, skipping", "epoch", outcome.Epoch)
		return nil
	}

	tx := e.db.BeginWrite()
	for _, oi := range outcome.Items {
		if err := e.applyItem(ctx, tx, oi); err != nil {
			tx.Rollback()
			return err
		}
		e.lastConsensus.Advance(oi.Peer, outcome.Epoch)
	}
	if err := database.SetHighestAppliedEpoch(tx, outcome.Epoch); err != nil {
		tx.Rollback()
		return fatalf("persist highest applied epoch", err)
	}
	if err := tx.Commit(); err != nil {
		return fatalf(fmt.Sprintf("commit epoch %d", outcome.Epoch), err)
	}

	e.recent.Add(outcome.Epoch, outcome)
	e.heights.Advance(outcome.Epoch)
	return nil
}

func (e *Engine) applyItem(ctx context.Context, tx *database.Tx, oi core.OrderedItem) error {
	switch oi.Item.Kind {
	case core.ItemModule:
		mod, _, ok := e.registry.Get(oi.Item.ModuleInstanceID)
		if !ok {
			return fatalf(fmt.Sprintf("item references unknown module instance %d", oi.Item.ModuleInstanceID), nil)
		}
		prefixed := e.db.WithModulePrefix(oi.Item.ModuleInstanceID)
		moduleTx := prefixed.View(tx)
		if err := mod.ApplyItem(ctx, moduleTx, oi.Item.ModuleInstanceID, oi.Peer, oi.Item.Payload); err != nil {
			return fatalf(fmt.Sprintf("apply item for module instance %d", oi.Item.ModuleInstanceID), err)
		}
		return nil
	case core.ItemTransaction:
		if e.txApplier == nil {
			return fatalf("received ItemTransaction with no transaction applier configured", nil)
		}
		if err := e.txApplier.ApplyTransaction(ctx, tx, oi.Item.Payload); err != nil {
			return fatalf("apply transaction", err)
		}
		return nil
	case core.ItemEpochInfo:
		return nil
	default:
		return fatalf(fmt.Sprintf("unknown consensus item kind %d", oi.Item.Kind), nil)
	}
}

// RecentOutcome returns a recently-applied outcome from the in-memory
// cache without touching the database, or ok=false on a cache miss (the
// caller should fall back to a database read for anything older).
func (e *Engine) RecentOutcome(epoch core.EpochIndex) (core.SignedEpochOutcome, bool) {
	v, ok := e.recent.Get(epoch)
	if !ok {
		return core.SignedEpochOutcome{}, false
	}
	return v.(core.SignedEpochOutcome), true
}

// Heights exposes the height watch so the API layer can block a caller
// until a submitted item is observably committed.
func (e *Engine) Heights() *HeightWatch { return e.heights }

// LastConsensus exposes the shared per-peer last-applied-epoch map.
func (e *Engine) LastConsensus() *LastConsensusByPeer { return e.lastConsensus }
