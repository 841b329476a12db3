package backend

import (
	"context"
	"fmt"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/trie"
)

// GetBlockHeader fetches the header for a concrete (never tag) block id,
// used by the block resolver to validate historical lookups (spec §4.D).
func (c *Client) GetBlockHeader(ctx context.Context, id BlockID) (Header, error) {
	var header Header
	if err := c.Call(ctx, "starknet_getBlockWithTxHashes", []interface{}{id}, &header); err != nil {
		return Header{}, fmt.Errorf("backend: getBlockHeader: %w", err)
	}
	return header, nil
}

// GetStorageAt fetches a single contract storage slot at the given
// block. It does not verify the result; callers that need verification
// pair this with GetProof and pkg/trie.Verify (spec §4.E).
func (c *Client) GetStorageAt(ctx context.Context, contractAddress, key felt.Felt, id BlockID) (felt.Felt, error) {
	var value felt.Felt
	if err := c.Call(ctx, "starknet_getStorageAt", []interface{}{contractAddress, key, id}, &value); err != nil {
		return felt.Zero(), fmt.Errorf("backend: getStorageAt: %w", err)
	}
	return value, nil
}

// GetProof fetches the Merkle-Patricia inclusion proof for a set of
// storage keys at the given block, using the pathfinder_getProof
// extension (spec §6).
func (c *Client) GetProof(ctx context.Context, id BlockID, contractAddress felt.Felt, keys []felt.Felt) (trie.GetProofResult, error) {
	var wire wireGetProofResult
	if err := c.Call(ctx, "pathfinder_getProof", []interface{}{id, contractAddress, keys}, &wire); err != nil {
		return trie.GetProofResult{}, fmt.Errorf("backend: getProof: %w", err)
	}
	return wire.toTrie()
}

// GetNonce fetches a contract's nonce at the given block. Forwarded to
// the backend with no Merkle check (documented trust downgrade, spec §9).
func (c *Client) GetNonce(ctx context.Context, contractAddress felt.Felt, id BlockID) (felt.Felt, error) {
	var nonce felt.Felt
	if err := c.Call(ctx, "starknet_getNonce", []interface{}{id, contractAddress}, &nonce); err != nil {
		return felt.Zero(), fmt.Errorf("backend: getNonce: %w", err)
	}
	return nonce, nil
}

// GetClassHashAt fetches the class hash deployed at a contract address.
// Forwarded with no Merkle check, mirroring GetNonce (spec §9).
func (c *Client) GetClassHashAt(ctx context.Context, contractAddress felt.Felt, id BlockID) (felt.Felt, error) {
	var classHash felt.Felt
	if err := c.Call(ctx, "starknet_getClassHashAt", []interface{}{id, contractAddress}, &classHash); err != nil {
		return felt.Zero(), fmt.Errorf("backend: getClassHashAt: %w", err)
	}
	return classHash, nil
}

// GetClass fetches the compiled contract class for a class hash.
func (c *Client) GetClass(ctx context.Context, classHash felt.Felt, id BlockID) ([]byte, error) {
	raw, err := c.RawCall(ctx, "starknet_getClass", []interface{}{id, classHash})
	if err != nil {
		return nil, fmt.Errorf("backend: getClass: %w", err)
	}
	return raw, nil
}

// SpecVersion fetches the backend's reported StarkNet JSON-RPC spec
// version (spec §3's supplemented feeder-gateway passthrough).
func (c *Client) SpecVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.Call(ctx, "starknet_specVersion", nil, &version); err != nil {
		return "", fmt.Errorf("backend: specVersion: %w", err)
	}
	return version, nil
}
