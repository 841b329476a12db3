// Package stateproxy implements the state reader proxy (spec §4.E): a
// per-call adapter that fetches contract storage, nonces, class hashes
// and compiled classes from the untrusted backend, verifying storage
// reads via pkg/trie and caching verified values. Grounded on Beerus's
// src/exe/mod.rs (StateReader method semantics, including which methods
// verify and which don't) and the teacher's bounded-LRU cache shape
// (accumulate-lite-client-2/liteclient/cache/account.go).
package stateproxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/certen/starknet-lite-proxy/pkg/backend"
	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/trie"
)

// ErrUndeclaredClassHash is the sentinel GetCompiledClassHash always
// returns: the sandbox executor is expected to supply this itself
// (spec §4.E).
var ErrUndeclaredClassHash = errors.New("stateproxy: undeclared class hash")

// BackendClient is the subset of *backend.Client the proxy needs,
// narrowed to an interface so tests can substitute a stub (grounded on
// the teacher's DataBackend-interface-over-concrete-client pattern).
type BackendClient interface {
	GetStorageAt(ctx context.Context, contractAddress, key felt.Felt, id backend.BlockID) (felt.Felt, error)
	GetProof(ctx context.Context, id backend.BlockID, contractAddress felt.Felt, keys []felt.Felt) (trie.GetProofResult, error)
	GetNonce(ctx context.Context, contractAddress felt.Felt, id backend.BlockID) (felt.Felt, error)
	GetClassHashAt(ctx context.Context, contractAddress felt.Felt, id backend.BlockID) (felt.Felt, error)
	GetClass(ctx context.Context, classHash felt.Felt, id backend.BlockID) ([]byte, error)
}

// Proxy is the per-call object described in spec §4.E:
// {backend_client, state, cache}.
type Proxy struct {
	client    BackendClient
	blockHash felt.Felt
	root      felt.Felt
	cache     *StorageCache
}

// New constructs a Proxy bound to one tracker snapshot (blockHash/root)
// for the duration of a single RPC request or call execution.
func New(client BackendClient, blockHash, root felt.Felt, cache *StorageCache) *Proxy {
	return &Proxy{client: client, blockHash: blockHash, root: root, cache: cache}
}

// GetStorageAt implements spec §4.E's five-step storage read: cache
// lookup, backend fetch, zero-value fast path, proof fetch+verify,
// cache insert.
func (p *Proxy) GetStorageAt(ctx context.Context, address, key felt.Felt) (felt.Felt, error) {
	if v, ok := p.cache.Get(p.blockHash, address, key); ok {
		return v, nil
	}

	id := backend.HashID(p.blockHash)
	value, err := p.client.GetStorageAt(ctx, address, key, id)
	if err != nil {
		return felt.Zero(), fmt.Errorf("stateproxy: get_storage_at: %w", err)
	}

	// A zero slot is the trie's implicit default; the backend cannot
	// forge it into nonzero without breaking the root, so no proof is
	// needed (spec §4.E step 3, §8 P3, §9's documented trade-off).
	if value.IsZero() {
		p.cache.Put(p.blockHash, address, key, value)
		return value, nil
	}

	proof, err := p.client.GetProof(ctx, id, address, []felt.Felt{key})
	if err != nil {
		return felt.Zero(), fmt.Errorf("stateproxy: get_storage_at: fetch proof: %w", err)
	}

	if err := trie.Verify(p.root, address, key, value, proof); err != nil {
		return felt.Zero(), fmt.Errorf("stateproxy: get_storage_at: verify proof: %w", err)
	}

	p.cache.Put(p.blockHash, address, key, value)
	return value, nil
}

// GetNonceAt forwards to the backend with no additional Merkle check
// (documented trust downgrade, spec §9 open question, resolved as
// option (b): document rather than add a fresh getProof round trip).
func (p *Proxy) GetNonceAt(ctx context.Context, address felt.Felt) (felt.Felt, error) {
	nonce, err := p.client.GetNonce(ctx, address, backend.HashID(p.blockHash))
	if err != nil {
		return felt.Zero(), fmt.Errorf("stateproxy: get_nonce_at: %w", err)
	}
	return nonce, nil
}

// GetClassHashAt forwards to the backend with no additional Merkle
// check, mirroring GetNonceAt (spec §9).
func (p *Proxy) GetClassHashAt(ctx context.Context, address felt.Felt) (felt.Felt, error) {
	classHash, err := p.client.GetClassHashAt(ctx, address, backend.HashID(p.blockHash))
	if err != nil {
		return felt.Zero(), fmt.Errorf("stateproxy: get_class_hash_at: %w", err)
	}
	return classHash, nil
}

// GetCompiledContractClass fetches the raw compiled class for
// classHash. The VM (pkg/executor) is responsible for decoding it into
// whatever representation the execution engine needs.
func (p *Proxy) GetCompiledContractClass(ctx context.Context, classHash felt.Felt) ([]byte, error) {
	class, err := p.client.GetClass(ctx, classHash, backend.HashID(p.blockHash))
	if err != nil {
		return nil, fmt.Errorf("stateproxy: get_compiled_contract_class: %w", err)
	}
	return class, nil
}

// GetCompiledClassHash always fails: the sandbox is expected to supply
// this itself (spec §4.E).
func (p *Proxy) GetCompiledClassHash(ctx context.Context, classHash felt.Felt) (felt.Felt, error) {
	return felt.Zero(), ErrUndeclaredClassHash
}

// Write-side operations are no-ops: the proxy serves read-only calls
// (spec §4.E). They are not part of executor.StateReader, which declares
// only the read methods.

func (p *Proxy) SetStorageAt(ctx context.Context, address, key, value felt.Felt) error { return nil }

func (p *Proxy) IncrementNonce(ctx context.Context, address felt.Felt) error { return nil }

func (p *Proxy) SetClassHashAt(ctx context.Context, address, classHash felt.Felt) error { return nil }

func (p *Proxy) SetCompiledClassHash(ctx context.Context, classHash, compiledClassHash felt.Felt) error {
	return nil
}
