// Package blockresolve implements the block-ID resolver (spec §4.D):
// translating a client-supplied BlockID into a concrete (never tag)
// id plus the state root Merkle proofs at that block must reconcile
// against. Grounded on Beerus's src/rpc.rs (resolve_block_id /
// resolve_block_by_number / resolve_block_by_hash) and on the teacher's
// plain error-wrapping struct idiom (no teacher analogue exists for this
// component, per DESIGN.md).
package blockresolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/certen/starknet-lite-proxy/pkg/backend"
	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/l1tracker"
)

// ErrPendingUnsupported is returned when a client requests the "pending"
// block tag, which this proxy cannot anchor to any L1-committed root.
var ErrPendingUnsupported = errors.New("blockresolve: pending block is not supported")

// HeaderFetcher is the subset of the backend client the resolver needs;
// satisfied by *backend.Client, narrowed here so tests can supply a stub.
type HeaderFetcher interface {
	GetBlockHeader(ctx context.Context, id backend.BlockID) (backend.Header, error)
}

// Resolved is the output pair spec §4.D describes: a concrete block id
// (Number or Hash, never a tag) and the root Merkle proofs at that block
// must reconcile against.
type Resolved struct {
	ID   backend.BlockID
	Root felt.Felt
}

// Resolve translates id against the tracker snapshot snap, fetching a
// historical header from fetcher when id refers to a block older than
// the anchored head.
func Resolve(ctx context.Context, fetcher HeaderFetcher, snap l1tracker.State, id backend.BlockID) (Resolved, error) {
	switch {
	case id.Number != nil:
		return resolveByNumber(ctx, fetcher, snap, *id.Number)
	case id.Hash != nil:
		return resolveByHash(ctx, fetcher, snap, *id.Hash)
	case id.Tag == backend.TagLatest:
		return Resolved{ID: backend.NumberID(snap.BlockNumber), Root: snap.Root}, nil
	case id.Tag == backend.TagPending:
		return Resolved{}, ErrPendingUnsupported
	default:
		return Resolved{}, fmt.Errorf("blockresolve: empty block id")
	}
}

// resolveByNumber clamps forward to the anchored head when n is at or
// beyond it (no backend call), otherwise fetches and validates a
// historical header.
func resolveByNumber(ctx context.Context, fetcher HeaderFetcher, snap l1tracker.State, n uint64) (Resolved, error) {
	if n >= snap.BlockNumber {
		return Resolved{ID: backend.NumberID(snap.BlockNumber), Root: snap.Root}, nil
	}

	header, err := fetcher.GetBlockHeader(ctx, backend.NumberID(n))
	if err != nil {
		return Resolved{}, fmt.Errorf("blockresolve: fetch header for block %d: %w", n, err)
	}
	if header.BlockNumber != n {
		return Resolved{}, fmt.Errorf("blockresolve: backend returned header for block %d, requested %d", header.BlockNumber, n)
	}
	return Resolved{ID: backend.NumberID(n), Root: header.NewRoot}, nil
}

// resolveByHash accepts the anchored head's hash without a backend call,
// otherwise fetches a header and validates both the hash and that it
// precedes the anchored head.
func resolveByHash(ctx context.Context, fetcher HeaderFetcher, snap l1tracker.State, h felt.Felt) (Resolved, error) {
	if h.Equal(snap.BlockHash) {
		return Resolved{ID: backend.HashID(h), Root: snap.Root}, nil
	}

	header, err := fetcher.GetBlockHeader(ctx, backend.HashID(h))
	if err != nil {
		return Resolved{}, fmt.Errorf("blockresolve: fetch header for hash %s: %w", h.Hex(), err)
	}
	if !header.BlockHash.Equal(h) {
		return Resolved{}, fmt.Errorf("blockresolve: backend returned header for hash %s, requested %s", header.BlockHash.Hex(), h.Hex())
	}
	if header.BlockNumber >= snap.BlockNumber {
		return Resolved{}, fmt.Errorf("blockresolve: header for hash %s is not historical (block %d >= anchored head %d)", h.Hex(), header.BlockNumber, snap.BlockNumber)
	}
	return Resolved{ID: backend.HashID(h), Root: header.NewRoot}, nil
}
