package stateproxy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
)

func TestStorageCache_HitAndMiss(t *testing.T) {
	cache := NewStorageCache()
	blockHash, address, key := felt.FromUint64(1), felt.FromUint64(2), felt.FromUint64(3)

	_, ok := cache.Get(blockHash, address, key)
	require.False(t, ok)

	cache.Put(blockHash, address, key, felt.FromUint64(42))
	value, ok := cache.Get(blockHash, address, key)
	require.True(t, ok)
	require.Equal(t, "0x2a", value.Hex())
}

func TestStorageCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewStorageCacheWithBound(2)
	blockHash := felt.FromUint64(1)

	cache.Put(blockHash, felt.FromUint64(1), felt.FromUint64(1), felt.FromUint64(100))
	cache.Put(blockHash, felt.FromUint64(2), felt.FromUint64(2), felt.FromUint64(200))
	require.Equal(t, 2, cache.Len())

	// touch the first entry so the second becomes least-recently-used
	_, ok := cache.Get(blockHash, felt.FromUint64(1), felt.FromUint64(1))
	require.True(t, ok)

	cache.Put(blockHash, felt.FromUint64(3), felt.FromUint64(3), felt.FromUint64(300))
	require.Equal(t, 2, cache.Len())

	_, ok = cache.Get(blockHash, felt.FromUint64(2), felt.FromUint64(2))
	require.False(t, ok, "entry 2 should have been evicted as LRU")

	_, ok = cache.Get(blockHash, felt.FromUint64(1), felt.FromUint64(1))
	require.True(t, ok)
}
