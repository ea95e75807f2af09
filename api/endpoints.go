package api

import (
	"context"
	"encoding/json"

	"github.com/fedimint-go/fedimintd/core"
	"github.com/fedimint-go/fedimintd/taskgroup"
)

// BuiltinEndpoints returns the server's own consensus endpoints (as
// opposed to module-contributed ones): submitting a transaction, reading
// overall consensus status, and (admin-only) requesting shutdown.
func (s *Server) BuiltinEndpoints(tg *taskgroup.Group) []core.APIEndpoint {
	return []core.APIEndpoint{
		{Path: "submit_transaction", Handler: s.handleSubmitTransaction},
		{Path: "consensus_status", Handler: s.handleConsensusStatus},
		{Path: "shutdown", RequiresAuth: true, Handler: shutdownHandler(tg)},
	}
}

type submitTransactionRequest struct {
	Transaction []byte `json:"transaction"`
}

type submitTransactionResponse struct {
	Accepted bool `json:"accepted"`
}

// handleSubmitTransaction turns a write request into a ConsensusItem and
// enqueues it. The response means "accepted", not "committed" — clients
// watch the epoch height to observe commit.
func (s *Server) handleSubmitTransaction(ctx context.Context, reqCtx any, params []byte) (any, error) {
	rc := reqCtx.(*Context)

	var req submitTransactionRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &RPCError{Code: ErrCodeBadRequest, Message: "malformed request body"}
	}

	item := core.TransactionItem(req.Transaction)
	if err := rc.Queue.Submit(ctx, item); err != nil {
		return nil, err
	}
	return submitTransactionResponse{Accepted: true}, nil
}

type consensusStatusResponse struct {
	Height core.EpochIndex `json:"height"`
}

// handleConsensusStatus is fronted by a 500ms expiring cache: within the
// window every caller gets the same cached answer instead of each one
// recomputing it.
func (s *Server) handleConsensusStatus(ctx context.Context, reqCtx any, params []byte) (any, error) {
	rc := reqCtx.(*Context)
	v, err := s.statusCache.Get(func() (any, error) {
		return consensusStatusResponse{Height: rc.Engine.Heights().Height()}, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func shutdownHandler(tg *taskgroup.Group) func(context.Context, any, []byte) (any, error) {
	return func(ctx context.Context, reqCtx any, params []byte) (any, error) {
		tg.Shutdown()
		return struct{}{}, nil
	}
}
