package mypermobil

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is one settled outcome held by a Coordinator: either a value or a
// captured failure. Entries are replaced, never mutated.
type Entry[V any] struct {
	Value     V
	Err       error
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is past its TTL at now.
func (e Entry[V]) Expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// Store holds coordinator entries. Implementations must be safe for
// concurrent use; expiry is judged by the coordinator, not the store.
type Store[K comparable, V any] interface {
	Get(key K) (Entry[V], bool)
	Set(key K, entry Entry[V])
	Delete(key K)
	Clear()
	Len() int
}

// ShardedStore is an unbounded in-memory store split into mutex-guarded
// shards so unrelated keys rarely contend.
type ShardedStore[K comparable, V any] struct {
	shards    []*storeShard[K, V]
	numShards int
}

type storeShard[K comparable, V any] struct {
	mu    sync.RWMutex
	store map[K]Entry[V]
}

// NewShardedStore returns a store with 16 shards.
func NewShardedStore[K comparable, V any]() *ShardedStore[K, V] {
	numShards := 16
	shards := make([]*storeShard[K, V], numShards)
	for i := range shards {
		shards[i] = &storeShard[K, V]{
			store: make(map[K]Entry[V]),
		}
	}
	return &ShardedStore[K, V]{
		shards:    shards,
		numShards: numShards,
	}
}

func (s *ShardedStore[K, V]) getShard(key K) *storeShard[K, V] {
	hash := fnv.New32a()
	switch k := any(key).(type) {
	case string:
		hash.Write([]byte(k))
	default:
		fmt.Fprintf(hash, "%#v", k)
	}
	return s.shards[hash.Sum32()%uint32(s.numShards)]
}

func (s *ShardedStore[K, V]) Get(key K) (Entry[V], bool) {
	shard := s.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	entry, exists := shard.store[key]
	return entry, exists
}

func (s *ShardedStore[K, V]) Set(key K, entry Entry[V]) {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.store[key] = entry
}

func (s *ShardedStore[K, V]) Delete(key K) {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

func (s *ShardedStore[K, V]) Clear() {
	for _, shard := range s.shards {
		shard.mu.Lock()
		shard.store = make(map[K]Entry[V])
		shard.mu.Unlock()
	}
}

func (s *ShardedStore[K, V]) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

// LRUStore bounds the number of entries, evicting the least recently used
// one when full.
type LRUStore[K comparable, V any] struct {
	cache *lru.Cache[K, Entry[V]]
}

// NewLRUStore returns a store holding at most size entries.
func NewLRUStore[K comparable, V any](size int) (*LRUStore[K, V], error) {
	c, err := lru.New[K, Entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru store: %w", err)
	}
	return &LRUStore[K, V]{cache: c}, nil
}

func (s *LRUStore[K, V]) Get(key K) (Entry[V], bool) { return s.cache.Get(key) }

func (s *LRUStore[K, V]) Set(key K, entry Entry[V]) { s.cache.Add(key, entry) }

func (s *LRUStore[K, V]) Delete(key K) { s.cache.Remove(key) }

func (s *LRUStore[K, V]) Clear() { s.cache.Purge() }

func (s *LRUStore[K, V]) Len() int { return s.cache.Len() }
