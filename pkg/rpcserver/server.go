// Package rpcserver implements the verifying JSON-RPC front-end (spec
// §4.G): a StarkNet JSON-RPC 2.0-compatible HTTP endpoint that forwards
// most methods unchanged, resolves block ids for block-anchored methods,
// and verifies getStorageAt/call against the L1-anchored state root.
// Grounded on Beerus's src/rpc.rs (single-vs-batch request handling,
// notification suppression, the dispatch-table shape) and the teacher's
// pkg/server concrete net/http handler idiom (constructor with logger
// fallback, explicit writeJSON/writeError helpers, signal-driven graceful
// shutdown in main.go).
package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/certen/starknet-lite-proxy/pkg/blockresolve"
	"github.com/certen/starknet-lite-proxy/pkg/executor"
	"github.com/certen/starknet-lite-proxy/pkg/l1tracker"
	"github.com/certen/starknet-lite-proxy/pkg/logging"
	"github.com/certen/starknet-lite-proxy/pkg/rpcerr"
	"github.com/certen/starknet-lite-proxy/pkg/stateproxy"
)

// Backend is the subset of *backend.Client the front-end needs, narrowed
// to an interface so tests can substitute an in-memory stub.
type Backend interface {
	blockresolve.HeaderFetcher
	stateproxy.BackendClient
	RawCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error)
}

// Tracker is the subset of *l1tracker.Tracker the front-end needs.
type Tracker interface {
	Snapshot() l1tracker.State
}

// Executor is the subset of *executor.Executor the front-end needs.
type Executor interface {
	Call(ctx context.Context, fc executor.FunctionCall, blockNumber uint64, reader executor.StateReader) (executor.CallResult, error)
}

// Server is the JSON-RPC 2.0 HTTP front-end.
type Server struct {
	backend  Backend
	tracker  Tracker
	executor Executor
	cache    *stateproxy.StorageCache
	log      *logging.Logger

	httpServer *http.Server
}

// New constructs a Server. addr is the listen address (spec §6's
// rpc_addr); cache is shared across requests so the executor's call
// handler benefits from cross-request storage reuse (spec §4.E).
func New(addr string, be Backend, tracker Tracker, exec Executor, cache *stateproxy.StorageCache, log *logging.Logger) *Server {
	if log == nil {
		log = logging.New(logging.LevelInfo)
	}
	s := &Server{
		backend:  be,
		tracker:  tracker,
		executor: exec,
		cache:    cache,
		log:      log.With("rpcserver"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleHTTP)
	mux.HandleFunc("/", s.handleHTTP)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down; it
// always returns a non-nil error (http.ErrServerClosed on clean shutdown).
func (s *Server) ListenAndServe() error {
	s.log.Info("listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// wireRequest is a single JSON-RPC 2.0 request. ID is a pointer so a
// missing "id" member (a notification, spec §4.G) is distinguishable
// from a present one.
type wireRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type wireResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *rpcerr.Error    `json:"error,omitempty"`
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeHTTPStatus(w, http.StatusMethodNotAllowed, rpcerr.InvalidParams(fmt.Errorf("only POST is allowed")))
		return
	}

	requestID := uuid.NewString()
	log := s.log

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("request %s: read body: %v", requestID, err)
		writeHTTPStatus(w, http.StatusBadRequest, rpcerr.ParseError(err))
		return
	}

	trimmed := bytes.TrimSpace(body)
	w.Header().Set("Content-Type", "application/json")

	if len(trimmed) > 0 && trimmed[0] == '[' {
		s.handleBatch(r.Context(), w, trimmed, requestID)
		return
	}
	s.handleSingleBody(r.Context(), w, trimmed, requestID)
}

func (s *Server) handleBatch(ctx context.Context, w http.ResponseWriter, body []byte, requestID string) {
	var reqs []wireRequest
	if err := json.Unmarshal(body, &reqs); err != nil {
		writeHTTPStatus(w, http.StatusOK, rpcerr.ParseError(err))
		return
	}

	responses := make([]wireResponse, 0, len(reqs))
	for _, req := range reqs {
		resp := s.handleSingle(ctx, req, requestID)
		if req.ID != nil {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := json.NewEncoder(w).Encode(responses); err != nil {
		s.log.Error("request %s: encode batch response: %v", requestID, err)
	}
}

func (s *Server) handleSingleBody(ctx context.Context, w http.ResponseWriter, body []byte, requestID string) {
	var req wireRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeHTTPStatus(w, http.StatusOK, rpcerr.ParseError(err))
		return
	}

	resp := s.handleSingle(ctx, req, requestID)
	if req.ID == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("request %s: encode response: %v", requestID, err)
	}
}

// handleSingle dispatches one JSON-RPC request and always returns a
// well-formed envelope; the caller decides whether to write it out
// (notifications never get a response, spec §4.G).
func (s *Server) handleSingle(ctx context.Context, req wireRequest, requestID string) wireResponse {
	result, rpcErr := s.dispatch(ctx, req.Method, req.Params)
	if rpcErr != nil {
		s.log.Warn("request %s: method=%s failed: %v", requestID, req.Method, rpcErr)
		return wireResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return wireResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// writeHTTPStatus writes a bare JSON-RPC error envelope with no id (used
// for failures that occur before a request can even be parsed).
func writeHTTPStatus(w http.ResponseWriter, status int, rpcErr *rpcerr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wireResponse{JSONRPC: "2.0", Error: rpcErr})
}
