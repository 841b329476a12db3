package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/certen/starknet-lite-proxy/pkg/backend"
	"github.com/certen/starknet-lite-proxy/pkg/executor"
	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/l1tracker"
	"github.com/certen/starknet-lite-proxy/pkg/stateproxy"
	"github.com/certen/starknet-lite-proxy/pkg/trie"
)

func mustFelt(t *testing.T, hex string) felt.Felt {
	t.Helper()
	f, err := felt.FromHex(hex)
	require.NoError(t, err)
	return f
}

type stubBackend struct {
	header    backend.Header
	headerErr error

	storage    felt.Felt
	storageErr error
	proof      trie.GetProofResult
	proofErr   error

	nonce     felt.Felt
	classHash felt.Felt
	class     []byte

	rawResult     json.RawMessage
	rawErr        error
	rawCalls      []string
	rawLastParams []interface{}
}

func (s *stubBackend) GetBlockHeader(ctx context.Context, id backend.BlockID) (backend.Header, error) {
	return s.header, s.headerErr
}
func (s *stubBackend) GetStorageAt(ctx context.Context, contractAddress, key felt.Felt, id backend.BlockID) (felt.Felt, error) {
	return s.storage, s.storageErr
}
func (s *stubBackend) GetProof(ctx context.Context, id backend.BlockID, contractAddress felt.Felt, keys []felt.Felt) (trie.GetProofResult, error) {
	return s.proof, s.proofErr
}
func (s *stubBackend) GetNonce(ctx context.Context, contractAddress felt.Felt, id backend.BlockID) (felt.Felt, error) {
	return s.nonce, nil
}
func (s *stubBackend) GetClassHashAt(ctx context.Context, contractAddress felt.Felt, id backend.BlockID) (felt.Felt, error) {
	return s.classHash, nil
}
func (s *stubBackend) GetClass(ctx context.Context, classHash felt.Felt, id backend.BlockID) ([]byte, error) {
	return s.class, nil
}
func (s *stubBackend) RawCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	s.rawCalls = append(s.rawCalls, method)
	s.rawLastParams = params
	if s.rawErr != nil {
		return nil, s.rawErr
	}
	return s.rawResult, nil
}

type stubTracker struct{ state l1tracker.State }

func (s *stubTracker) Snapshot() l1tracker.State { return s.state }

type stubExecutor struct {
	result executor.CallResult
	err    error
}

func (s *stubExecutor) Call(ctx context.Context, fc executor.FunctionCall, blockNumber uint64, reader executor.StateReader) (executor.CallResult, error) {
	return s.result, s.err
}

func newTestServer(be Backend, tr Tracker, exec Executor) *Server {
	return New("", be, tr, exec, stateproxy.NewStorageCache(), nil)
}

func doHTTP(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.handleHTTP(rec, req)
	return rec
}

func TestHandleHTTP_PassThrough(t *testing.T) {
	be := &stubBackend{rawResult: json.RawMessage(`"0x534e5f5345504f4c4941"`)}
	s := newTestServer(be, &stubTracker{}, &stubExecutor{})

	rec := doHTTP(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_chainId","params":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.JSONEq(t, `"0x534e5f5345504f4c4941"`, string(resp.Result))
	require.Equal(t, []string{"starknet_chainId"}, be.rawCalls)
}

func TestHandleHTTP_Notification_NoResponseBody(t *testing.T) {
	be := &stubBackend{rawResult: json.RawMessage(`"0x1"`)}
	s := newTestServer(be, &stubTracker{}, &stubExecutor{})

	rec := doHTTP(t, s, `{"jsonrpc":"2.0","method":"starknet_blockNumber","params":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.Bytes())
	require.Len(t, be.rawCalls, 1)
}

func TestHandleHTTP_MethodNotFound(t *testing.T) {
	s := newTestServer(&stubBackend{}, &stubTracker{}, &stubExecutor{})

	rec := doHTTP(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_bogus","params":[]}`)
	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, -32601, resp.Error.Code)
}

func TestHandleHTTP_Batch(t *testing.T) {
	be := &stubBackend{rawResult: json.RawMessage(`"0x1"`)}
	s := newTestServer(be, &stubTracker{}, &stubExecutor{})

	body := `[
		{"jsonrpc":"2.0","id":1,"method":"starknet_chainId","params":[]},
		{"jsonrpc":"2.0","method":"starknet_blockNumber","params":[]},
		{"jsonrpc":"2.0","id":2,"method":"starknet_bogus","params":[]}
	]`
	rec := doHTTP(t, s, body)

	var resps []wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resps))
	require.Len(t, resps, 2)
	require.Nil(t, resps[0].Error)
	require.NotNil(t, resps[1].Error)
	require.Equal(t, 2, len(be.rawCalls))
}

func TestHandleHTTP_BlockAnchored_ResolvesClampedHead(t *testing.T) {
	be := &stubBackend{nonce: felt.FromUint64(5), rawResult: json.RawMessage(`"0x5"`)}
	snap := l1tracker.State{BlockNumber: 10, BlockHash: mustFelt(t, "0xabc"), Root: mustFelt(t, "0xdef")}
	s := newTestServer(be, &stubTracker{state: snap}, &stubExecutor{})

	body := `{"jsonrpc":"2.0","id":1,"method":"starknet_getNonce","params":[{"block_number":999},"0x1"]}`
	rec := doHTTP(t, s, body)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.Len(t, be.rawLastParams, 2)

	resolvedRaw, ok := be.rawLastParams[0].(json.RawMessage)
	require.True(t, ok)
	var resolved backend.BlockID
	require.NoError(t, json.Unmarshal(resolvedRaw, &resolved))
	require.NotNil(t, resolved.Number)
	require.Equal(t, uint64(10), *resolved.Number)
}

func TestHandleHTTP_GetStorageAt_VerifiesProof(t *testing.T) {
	value := mustFelt(t, "0x47616d65206f66204c69666520546f6b656e")
	root := mustFelt(t, "0x157598a5ab5c9f01da1a279e2fba356e3f7d0ee9977c80e32922f2ca5cd5d56")
	storageRoot := mustFelt(t, "0x1e224db31dfb3e1b8c95670a12f1903d4a32ac7bb83f4b209029e14155bbca9")
	classCommitment := felt.Zero()
	stateCommitment := root
	contractAddress := mustFelt(t, "0x0341c1bdfd89f69748aa00b5742b03adbffd79b8e80cab5c50d91cd8c2a79be1")

	proof := trie.GetProofResult{
		ClassCommitment: &classCommitment,
		StateCommitment: &stateCommitment,
		ContractData: &trie.ContractData{
			ClassHash: felt.Zero(),
			Root:      storageRoot,
			Nonce:     felt.Zero(),
			StorageProofs: [][]trie.ProofNode{{
				{Edge: &trie.EdgeNode{
					Child: value,
					Path:  trie.EdgePath{Len: 231, Value: mustFelt(t, "0x3dfd89f69748aa00b5742b03adbffd79b8e80cab5c50d91cd8c2a79be1")},
				}},
			}},
		},
	}

	be := &stubBackend{storage: value, proof: proof}
	snap := l1tracker.State{BlockNumber: 42, BlockHash: mustFelt(t, "0x42"), Root: root}
	s := newTestServer(be, &stubTracker{state: snap}, &stubExecutor{})

	body := `{"jsonrpc":"2.0","id":1,"method":"starknet_getStorageAt","params":["` +
		contractAddress.Hex() + `","` + contractAddress.Hex() + `","latest"]}`
	rec := doHTTP(t, s, body)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.JSONEq(t, `"`+value.Hex()+`"`, string(resp.Result))
}

func TestHandleHTTP_GetStorageAt_RejectsBadProof(t *testing.T) {
	value := mustFelt(t, "0x47616d65206f66204c69666520546f6b656e")
	badRoot := felt.FromUint64(999)
	contractAddress := mustFelt(t, "0x0341c1bdfd89f69748aa00b5742b03adbffd79b8e80cab5c50d91cd8c2a79be1")

	be := &stubBackend{storage: value, proof: trie.GetProofResult{
		ContractData: &trie.ContractData{StorageProofs: [][]trie.ProofNode{{}}},
	}}
	snap := l1tracker.State{BlockNumber: 1, BlockHash: felt.FromUint64(1), Root: badRoot}
	s := newTestServer(be, &stubTracker{state: snap}, &stubExecutor{})

	body := `{"jsonrpc":"2.0","id":1,"method":"starknet_getStorageAt","params":["` +
		contractAddress.Hex() + `","` + contractAddress.Hex() + `","latest"]}`
	rec := doHTTP(t, s, body)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, -32700, resp.Error.Code)
}

func TestHandleHTTP_Call_DispatchesToExecutor(t *testing.T) {
	exec := &stubExecutor{result: executor.CallResult{Retdata: []felt.Felt{felt.FromUint64(7)}}}
	snap := l1tracker.State{BlockNumber: 1, BlockHash: felt.FromUint64(1), Root: felt.FromUint64(2)}
	s := newTestServer(&stubBackend{}, &stubTracker{state: snap}, exec)

	body := `{"jsonrpc":"2.0","id":1,"method":"starknet_call","params":[{"contract_address":"0x1","entry_point_selector":"0x2","calldata":[]},"latest"]}`
	rec := doHTTP(t, s, body)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)

	var retdata []felt.Felt
	require.NoError(t, json.Unmarshal(resp.Result, &retdata))
	require.Len(t, retdata, 1)
	require.True(t, retdata[0].Equal(felt.FromUint64(7)))
}

func TestHandleHTTP_RejectsNonPost(t *testing.T) {
	s := newTestServer(&stubBackend{}, &stubTracker{}, &stubExecutor{})
	req := httptest.NewRequest(http.MethodGet, "/rpc", nil)
	rec := httptest.NewRecorder()
	s.handleHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
