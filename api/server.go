// Package api implements the JSON-RPC-over-WebSocket surface: endpoint
// registration with path validation, the per-request timeout and panic
// guard, module endpoint namespacing, and the admin-auth gate. The
// transport itself rides on gorilla/websocket; each connection speaks a
// single JSON-RPC-shaped request/response pair per message.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fedimint-go/fedimintd/consensus"
	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/log"
)

// HandlerTimeout bounds every endpoint handler invocation. Exceeding it
// yields a structured request-timeout error to the client. A var rather
// than a const so tests can shrink it instead of sleeping 60 real seconds.
var HandlerTimeout = 60 * time.Second

var pathPattern = regexp.MustCompile(`^[0-9a-z_]+$`)

// Error codes per the wire contract: -32000 timeout, 500 panicked
// handler, 400/422 bad request, 401 unauthorized; anything else is
// endpoint-defined.
const (
	ErrCodeTimeout       = -32000
	ErrCodePanic         = 500
	ErrCodeBadRequest    = 400
	ErrCodeUnprocessable = 422
	ErrCodeUnauthorized  = 401
)

// RPCError is the error object shape returned to clients in place of a
// successful result.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Request is one decoded JSON-RPC call as read off the websocket
// connection.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is the wire shape returned for a Request.
type Response struct {
	ID     string    `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *RPCError `json:"error,omitempty"`
}

// Context is the per-request value handlers receive: it carries the
// caller's admin credential (if any) and a handle onto shared state an
// endpoint may need (the database, engine, registry). It is passed to
// handlers as the opaque `any` core.APIEndpoint.Handler expects, to avoid
// an import cycle between core and api.
type Context struct {
	context.Context

	RequestID string
	AdminAuth bool

	DB       *database.Database
	Engine   *consensus.Engine
	Queue    *consensus.SubmissionQueue
	Registry *coremodule.Registry
}

// endpoint is a registered, namespaced handler plus its auth requirement.
type endpoint struct {
	core.APIEndpoint
}

// Server owns the full namespaced endpoint table and the shared state
// passed to every handler.
type Server struct {
	AdminToken string

	DB       *database.Database
	Engine   *consensus.Engine
	Queue    *consensus.SubmissionQueue
	Registry *coremodule.Registry

	endpoints map[string]endpoint
	upgrader  websocket.Upgrader

	statusCache *ExpiringCache
}

// NewServer builds an empty server ready to have endpoints registered.
func NewServer(db *database.Database, engine *consensus.Engine, queue *consensus.SubmissionQueue, registry *coremodule.Registry, adminToken string) *Server {
	return &Server{
		AdminToken:  adminToken,
		DB:          db,
		Engine:      engine,
		Queue:       queue,
		Registry:    registry,
		endpoints:   make(map[string]endpoint),
		statusCache: NewExpiringCache(500 * time.Millisecond),
	}
}

// RegisterBuiltin registers one of the server's own (non-module)
// endpoints at its unnamespaced path.
func (s *Server) RegisterBuiltin(ep core.APIEndpoint) {
	s.register(ep.Path, ep)
}

// RegisterModule registers every endpoint a module instance exposes,
// namespaced as module_<instance_id>_<name>.
func (s *Server) RegisterModule(id core.ModuleInstanceID, mod core.Module) {
	for _, ep := range mod.APIEndpoints() {
		namespaced := fmt.Sprintf("module_%d_%s", id, ep.Path)
		s.register(namespaced, ep)
	}
}

// register validates path and installs the endpoint. An illegal path is a
// configuration error the operator must fix before startup, so it panics
// rather than being reported at request time.
func (s *Server) register(path string, ep core.APIEndpoint) {
	if !pathPattern.MatchString(path) {
		panic(fmt.Sprintf("api: illegal endpoint path %q (must match [0-9a-z_]+)", path))
	}
	if _, exists := s.endpoints[path]; exists {
		panic(fmt.Sprintf("api: duplicate endpoint path %q", path))
	}
	s.endpoints[path] = endpoint{APIEndpoint: ep}
}

// ServeHTTP upgrades the connection and serves JSON-RPC requests over it
// until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("api: websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// The admin credential is carried once per connection (the upgrade
	// request's Authorization header), not re-sent with every message.
	authenticated := s.AdminToken != "" && r.Header.Get("Authorization") == "Bearer "+s.AdminToken

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := s.handle(r.Context(), req, authenticated)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, req Request, authenticated bool) Response {
	ep, ok := s.endpoints[req.Method]
	if !ok {
		return errorResponse(req.ID, ErrCodeBadRequest, fmt.Sprintf("unknown method %q", req.Method))
	}

	if ep.RequiresAuth && !authenticated {
		return errorResponse(req.ID, ErrCodeUnauthorized, "unauthorized")
	}

	reqCtx := &Context{
		Context:   ctx,
		RequestID: uuid.NewString(),
		AdminAuth: authenticated,
		DB:        s.DB,
		Engine:    s.Engine,
		Queue:     s.Queue,
		Registry:  s.Registry,
	}

	result, err := s.callWithTimeoutAndPanicGuard(reqCtx, ep, req.Params)
	if err != nil {
		if rpcErr, ok := err.(*RPCError); ok {
			return Response{ID: req.ID, Error: rpcErr}
		}
		return errorResponse(req.ID, ErrCodeBadRequest, err.Error())
	}
	return Response{ID: req.ID, Result: result}
}

// callWithTimeoutAndPanicGuard enforces HandlerTimeout and converts a
// panicked handler into a 500-class error instead of crashing the server.
// This is the last line of defense; handlers are expected not to panic.
func (s *Server) callWithTimeoutAndPanicGuard(reqCtx *Context, ep endpoint, params json.RawMessage) (result any, err error) {
	tctx, cancel := context.WithTimeout(reqCtx.Context, HandlerTimeout)
	defer cancel()
	reqCtx.Context = tctx

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("api: handler panicked", "request_id", reqCtx.RequestID, "recovered", rec)
				done <- outcome{err: &RPCError{Code: ErrCodePanic, Message: "internal error"}}
			}
		}()
		v, err := ep.Handler(tctx, reqCtx, params)
		done <- outcome{result: v, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-tctx.Done():
		return nil, &RPCError{Code: ErrCodeTimeout, Message: "request timeout"}
	}
}

func errorResponse(id string, code int, msg string) Response {
	return Response{ID: id, Error: &RPCError{Code: code, Message: msg}}
}
