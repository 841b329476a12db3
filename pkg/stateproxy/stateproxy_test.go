package stateproxy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/certen/starknet-lite-proxy/pkg/backend"
	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/trie"
)

func mustFelt(t *testing.T, hex string) felt.Felt {
	t.Helper()
	f, err := felt.FromHex(hex)
	require.NoError(t, err)
	return f
}

type stubBackend struct {
	storage   felt.Felt
	storageErr error
	proof     trie.GetProofResult
	proofErr  error
	nonce     felt.Felt
	nonceErr  error
	classHash felt.Felt
	classErr  error
	class     []byte
	getClassErr error

	proofCalls int
}

func (s *stubBackend) GetStorageAt(ctx context.Context, contractAddress, key felt.Felt, id backend.BlockID) (felt.Felt, error) {
	return s.storage, s.storageErr
}
func (s *stubBackend) GetProof(ctx context.Context, id backend.BlockID, contractAddress felt.Felt, keys []felt.Felt) (trie.GetProofResult, error) {
	s.proofCalls++
	return s.proof, s.proofErr
}
func (s *stubBackend) GetNonce(ctx context.Context, contractAddress felt.Felt, id backend.BlockID) (felt.Felt, error) {
	return s.nonce, s.nonceErr
}
func (s *stubBackend) GetClassHashAt(ctx context.Context, contractAddress felt.Felt, id backend.BlockID) (felt.Felt, error) {
	return s.classHash, s.classErr
}
func (s *stubBackend) GetClass(ctx context.Context, classHash felt.Felt, id backend.BlockID) ([]byte, error) {
	return s.class, s.getClassErr
}

func TestGetStorageAt_SkipsProofForZeroValue(t *testing.T) {
	stub := &stubBackend{storage: felt.Zero()}
	proxy := New(stub, felt.Zero(), felt.Zero(), NewStorageCache())

	value, err := proxy.GetStorageAt(context.Background(), felt.Zero(), felt.Zero())
	require.NoError(t, err)
	require.True(t, value.IsZero())
	require.Equal(t, 0, stub.proofCalls)
}

func TestGetStorageAt_VerifiesNonZeroValue(t *testing.T) {
	value := mustFelt(t, "0x47616d65206f66204c69666520546f6b656e")
	root := mustFelt(t, "0x157598a5ab5c9f01da1a279e2fba356e3f7d0ee9977c80e32922f2ca5cd5d56")
	storageRoot := mustFelt(t, "0x1e224db31dfb3e1b8c95670a12f1903d4a32ac7bb83f4b209029e14155bbca9")
	classCommitment := felt.Zero()
	stateCommitment := root

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
		ContractProof: nil,
	}

	stub := &stubBackend{storage: value, proof: proof}
	proxy := New(stub, felt.Zero(), root, NewStorageCache())

	contractAddress := mustFelt(t, "0x0341c1bdfd89f69748aa00b5742b03adbffd79b8e80cab5c50d91cd8c2a79be1")
	result, err := proxy.GetStorageAt(context.Background(), contractAddress, contractAddress)
	require.NoError(t, err)
	require.True(t, result.Equal(value))
	require.Equal(t, 1, stub.proofCalls)
}

func TestGetStorageAt_CachesHit(t *testing.T) {
	value := felt.FromUint64(0)
	stub := &stubBackend{storage: value}
	cache := NewStorageCache()
	proxy := New(stub, felt.Zero(), felt.Zero(), cache)

	_, err := proxy.GetStorageAt(context.Background(), felt.Zero(), felt.Zero())
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	_, err = proxy.GetStorageAt(context.Background(), felt.Zero(), felt.Zero())
	require.NoError(t, err)
}

func TestGetCompiledClassHash_AlwaysUndeclared(t *testing.T) {
	proxy := New(&stubBackend{}, felt.Zero(), felt.Zero(), NewStorageCache())
	_, err := proxy.GetCompiledClassHash(context.Background(), felt.Zero())
	require.ErrorIs(t, err, ErrUndeclaredClassHash)
}

func TestWriteSideOperationsAreNoOps(t *testing.T) {
	proxy := New(&stubBackend{}, felt.Zero(), felt.Zero(), NewStorageCache())
	require.NoError(t, proxy.SetStorageAt(context.Background(), felt.Zero(), felt.Zero(), felt.Zero()))
	require.NoError(t, proxy.IncrementNonce(context.Background(), felt.Zero()))
	require.NoError(t, proxy.SetClassHashAt(context.Background(), felt.Zero(), felt.Zero()))
	require.NoError(t, proxy.SetCompiledClassHash(context.Background(), felt.Zero(), felt.Zero()))
}
