package stateproxy

import (
	"sync"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
)

// defaultMaxEntries bounds the storage cache (spec §9's redesign of the
// originally-unbounded global map), grounded on the teacher's
// cache/account.go LRU-eviction shape (accessOrder slice + maxEntries),
// adapted to a single (block_hash, address, key) keyspace with no TTL:
// spec §9 says entries never go stale within a process lifetime, only
// unreachable once the tracker advances past their block.
const defaultMaxEntries = 100_000

// cacheKey identifies one cached storage read. Felt isn't itself
// comparable (it wraps a big.Int, whose internal slice breaks map-key
// equality), so the key is built from canonical hex strings.
type cacheKey struct {
	blockHash string
	address   string
	storage   string
}

func newCacheKey(blockHash, address, key felt.Felt) cacheKey {
	return cacheKey{blockHash: blockHash.Hex(), address: address.Hex(), storage: key.Hex()}
}

// StorageCache is the process-wide, exclusive-lock-guarded map spec §3
// describes, bounded by an LRU eviction policy per §9's redesign flag.
type StorageCache struct {
	mu          sync.Mutex
	entries     map[cacheKey]felt.Felt
	accessOrder []cacheKey
	maxEntries  int
}

// NewStorageCache constructs a cache bounded at the default entry count.
func NewStorageCache() *StorageCache {
	return NewStorageCacheWithBound(defaultMaxEntries)
}

// NewStorageCacheWithBound constructs a cache bounded at maxEntries,
// letting tests and operators tune the memory budget explicitly.
func NewStorageCacheWithBound(maxEntries int) *StorageCache {
	return &StorageCache{
		entries:    make(map[cacheKey]felt.Felt),
		maxEntries: maxEntries,
	}
}

// Get returns the previously verified value for (blockHash, address,
// key), or false on a miss. A hit refreshes the entry's LRU position.
func (c *StorageCache) Get(blockHash, address, key felt.Felt) (felt.Felt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := newCacheKey(blockHash, address, key)
	v, ok := c.entries[k]
	if ok {
		c.touch(k)
	}
	return v, ok
}

// Put inserts or refreshes (blockHash, address, key) -> value, evicting
// the least-recently-used entry if the cache is over its bound.
func (c *StorageCache) Put(blockHash, address, key, value felt.Felt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := newCacheKey(blockHash, address, key)
	if _, exists := c.entries[k]; !exists {
		c.evictIfFull()
	}
	c.entries[k] = value
	c.touch(k)
}

// Len reports the current number of cached entries.
func (c *StorageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *StorageCache) touch(k cacheKey) {
	for i, existing := range c.accessOrder {
		if existing == k {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			break
		}
	}
	c.accessOrder = append(c.accessOrder, k)
}

func (c *StorageCache) evictIfFull() {
	if c.maxEntries <= 0 || len(c.entries) < c.maxEntries {
		return
	}
	for len(c.accessOrder) > 0 && len(c.entries) >= c.maxEntries {
		lru := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		delete(c.entries, lru)
	}
}
