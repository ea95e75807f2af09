package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/core"
)

func TestRegisterPanicsOnIllegalPath(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, "")
	require.Panics(t, func() {
		s.RegisterBuiltin(core.APIEndpoint{Path: "Bad-Path!", Handler: noopHandler})
	})
}

func TestRegisterModuleNamespacesPath(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, "")
	s.RegisterModule(7, stubModule{})
	_, ok := s.endpoints["module_7_ping"]
	require.True(t, ok)
}

func TestHandleUnauthorizedWithoutAdminToken(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, "secret")
	s.RegisterBuiltin(core.APIEndpoint{Path: "admin_only", RequiresAuth: true, Handler: noopHandler})

	resp := s.handle(context.Background(), Request{ID: "1", Method: "admin_only"}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrCodeUnauthorized, resp.Error.Code)
}

func TestHandlePanicIsConvertedTo500(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, "")
	s.RegisterBuiltin(core.APIEndpoint{Path: "boom", Handler: func(ctx context.Context, reqCtx any, params []byte) (any, error) {
		panic("boom")
	}})

	resp := s.handle(context.Background(), Request{ID: "1", Method: "boom"}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrCodePanic, resp.Error.Code)
}

func TestHandleTimeout(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, "")
	s.RegisterBuiltin(core.APIEndpoint{Path: "slow", Handler: func(ctx context.Context, reqCtx any, params []byte) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})

	orig := HandlerTimeout
	HandlerTimeout = 10 * time.Millisecond
	defer func() { HandlerTimeout = orig }()

	resp := s.handle(context.Background(), Request{ID: "1", Method: "slow"}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrCodeTimeout, resp.Error.Code)
}

func noopHandler(ctx context.Context, reqCtx any, params []byte) (any, error) {
	return struct{}{}, nil
}

type stubModule struct{}

func (stubModule) ProposeConsensus(ctx context.Context, dbSnapshot core.ReadTxn, instance core.ModuleInstanceID) ([][]byte, error) {
	return nil, nil
}
func (stubModule) ApplyItem(ctx context.Context, dbTx core.WriteTxn, instance core.ModuleInstanceID, proposer core.PeerID, payload []byte) error {
	return nil
}
func (stubModule) APIEndpoints() []core.APIEndpoint {
	return []core.APIEndpoint{{Path: "ping", Handler: noopHandler}}
}
