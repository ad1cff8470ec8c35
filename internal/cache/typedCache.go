package cache

import (
	"encoding/json"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/pkg/logger_i"
)

type EntryType string

const (
	TypeEmbedding          EntryType = "embedding"
	TypeGenerationResponse EntryType = "generation_response"
	TypeRetrievalResult    EntryType = "retrieval_result"
	TypeCredential         EntryType = "credential"
)

func EntryTypes() []EntryType {
	return []EntryType{TypeEmbedding, TypeGenerationResponse, TypeRetrievalResult, TypeCredential}
}

type entry struct {
	entryType  EntryType
	key        string
	payload    []byte
	size       int64
	ttl        time.Duration
	created    time.Time
	lastAccess time.Time
}

func (e *entry) expiredAt(now time.Time) bool {
	return now.Sub(e.created) > e.ttl
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// TypedCache is an in-memory store partitioned by entry type, with a TTL per
// type and one global size ceiling. Keys are sharded so concurrent access on
// unrelated keys does not contend on a single lock; operations on the same
// key serialize on the owning shard.
type TypedCache struct {
	shards   []*shard
	maxSize  int64
	ttls     map[EntryType]time.Duration
	currSize atomic.Int64
	logger   *logger_i.Logger
	clock    func() time.Time
}

func New() *TypedCache {
	return newWithClock(time.Now)
}

func newWithClock(clock func() time.Time) *TypedCache {
	shards := make([]*shard, config.CacheShardCount)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return &TypedCache{
		shards:  shards,
		maxSize: config.CacheMaxSizeBytes,
		ttls: map[EntryType]time.Duration{
			TypeEmbedding:          config.CacheTTLEmbedding,
			TypeGenerationResponse: config.CacheTTLGenerationResponse,
			TypeRetrievalResult:    config.CacheTTLRetrievalResult,
			TypeCredential:         config.CacheTTLCredential,
		},
		logger: logger_i.NewLogger("TypedCache"),
		clock:  clock,
	}
}

func compositeKey(entryType EntryType, key string) string {
	return string(entryType) + "\x00" + key
}

func (c *TypedCache) shardFor(composite string) *shard {
	h := fnv.New32a()
	h.Write([]byte(composite))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get unmarshals the stored payload into out. A stale or undecodable entry is
// a miss. The only side effect is the access-time bookkeeping eviction uses.
func (c *TypedCache) Get(entryType EntryType, key string, out any) bool {
	composite := compositeKey(entryType, key)
	s := c.shardFor(composite)

	s.mu.Lock()
	e, ok := s.entries[composite]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if e.expiredAt(c.clock()) {
		delete(s.entries, composite)
		c.currSize.Add(-e.size)
		s.mu.Unlock()
		return false
	}
	e.lastAccess = c.clock()
	payload := e.payload
	s.mu.Unlock()

	if out == nil {
		return true
	}
	if err := json.Unmarshal(payload, out); err != nil {
		c.logger.Error("Dropping undecodable cache entry", "type", entryType, "error", err)
		c.remove(composite)
		return false
	}
	return true
}

// Put overwrites any existing entry for the same type+key. Cache failures are
// never fatal to the caller: a payload that cannot be serialized, or one that
// can never fit under the ceiling, is logged and dropped.
func (c *TypedCache) Put(entryType EntryType, key string, payload any, ttlOverride ...time.Duration) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("Could not serialize cache payload", "type", entryType, "error", err)
		return
	}

	size := int64(len(data))
	if size > c.maxSize {
		c.logger.Error("Cache entry exceeds the size ceiling, rejecting", "type", entryType, "size", size, "limit", c.maxSize)
		return
	}

	ttl := c.ttls[entryType]
	if len(ttlOverride) > 0 {
		ttl = ttlOverride[0]
	}

	composite := compositeKey(entryType, key)
	s := c.shardFor(composite)
	now := c.clock()

	s.mu.Lock()
	if old, ok := s.entries[composite]; ok {
		c.currSize.Add(-old.size)
		delete(s.entries, composite)
	}
	s.mu.Unlock()

	// Reserve the size up front so concurrent puts see each other's bytes,
	// evict before inserting so the incoming entry is not its own victim.
	c.currSize.Add(size)
	c.ensureCapacity()

	s.mu.Lock()
	s.entries[composite] = &entry{
		entryType:  entryType,
		key:        key,
		payload:    data,
		size:       size,
		ttl:        ttl,
		created:    now,
		lastAccess: now,
	}
	s.mu.Unlock()

	// Two racing puts can each reserve and find the other's entry not yet in
	// any shard, leaving the first pass nothing to evict. A second pass after
	// insert settles the ceiling; with no race it finds nothing to do.
	c.ensureCapacity()
}

func (c *TypedCache) remove(composite string) {
	s := c.shardFor(composite)
	s.mu.Lock()
	if e, ok := s.entries[composite]; ok {
		delete(s.entries, composite)
		c.currSize.Add(-e.size)
	}
	s.mu.Unlock()
}

type evictionCandidate struct {
	composite  string
	size       int64
	expired    bool
	created    time.Time
	lastAccess time.Time
}

// ensureCapacity evicts until the accounted size fits under the ceiling.
// Expired entries go first, oldest creation first, then the least recently
// accessed of the live ones. Shard locks are taken one at a time, never nested.
func (c *TypedCache) ensureCapacity() {
	if c.currSize.Load() <= c.maxSize {
		return
	}

	now := c.clock()
	var candidates []evictionCandidate
	for _, s := range c.shards {
		s.mu.RLock()
		for composite, e := range s.entries {
			candidates = append(candidates, evictionCandidate{
				composite:  composite,
				size:       e.size,
				expired:    e.expiredAt(now),
				created:    e.created,
				lastAccess: e.lastAccess,
			})
		}
		s.mu.RUnlock()
	}

	sortCandidates(candidates)

	for _, cand := range candidates {
		if c.currSize.Load() <= c.maxSize {
			return
		}
		c.remove(cand.composite)
	}
}
