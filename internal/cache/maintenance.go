package cache

import (
	"sort"
	"strings"
	"time"
)

func sortCandidates(candidates []evictionCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.expired != b.expired {
			return a.expired
		}
		if a.expired {
			return a.created.Before(b.created)
		}
		return a.lastAccess.Before(b.lastAccess)
	})
}

// CleanupExpired removes every entry whose age exceeds its type's TTL and
// returns the count removed. Safe to run alongside Get and Put.
func (c *TypedCache) CleanupExpired() int {
	now := c.clock()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for composite, e := range s.entries {
			if e.expiredAt(now) {
				delete(s.entries, composite)
				c.currSize.Add(-e.size)
				removed++
			}
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		c.logger.Debug("Expired entries cleaned", "count", removed)
	}
	return removed
}

// ClearByType removes every entry of one type, leaving the others untouched.
func (c *TypedCache) ClearByType(entryType EntryType) int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for composite, e := range s.entries {
			if e.entryType == entryType {
				delete(s.entries, composite)
				c.currSize.Add(-e.size)
				removed++
			}
		}
		s.mu.Unlock()
	}
	c.logger.Info("Cleared cache entries by type", "type", entryType, "count", removed)
	return removed
}

// ClearByPrefix removes entries of one type whose key starts with prefix.
// Ingestion uses this to drop a reloaded department's derived results.
func (c *TypedCache) ClearByPrefix(entryType EntryType, prefix string) int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for composite, e := range s.entries {
			if e.entryType == entryType && strings.HasPrefix(e.key, prefix) {
				delete(s.entries, composite)
				c.currSize.Add(-e.size)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (c *TypedCache) ClearAll() int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for composite, e := range s.entries {
			delete(s.entries, composite)
			c.currSize.Add(-e.size)
			removed++
		}
		s.mu.Unlock()
	}
	c.logger.Info("Cleared all cache entries", "count", removed)
	return removed
}

type OptimizeReport struct {
	Duration       float64 `json:"duration_seconds"`
	ExpiredCleaned int     `json:"expired_cleaned"`
	InitialSize    int64   `json:"initial_size_bytes"`
	FinalSize      int64   `json:"final_size_bytes"`
	Freed          int64   `json:"freed_bytes"`
	InitialEntries int     `json:"initial_entries"`
	FinalEntries   int     `json:"final_entries"`
}

// Optimize runs the expiry sweep and then rebuilds the shard maps so the
// backing buckets shrink back to what the surviving entries need.
func (c *TypedCache) Optimize() OptimizeReport {
	start := time.Now()
	initialSize := c.currSize.Load()
	initialEntries := c.entryCount()

	expired := c.CleanupExpired()

	for _, s := range c.shards {
		s.mu.Lock()
		compacted := make(map[string]*entry, len(s.entries))
		for composite, e := range s.entries {
			compacted[composite] = e
		}
		s.entries = compacted
		s.mu.Unlock()
	}

	finalSize := c.currSize.Load()
	report := OptimizeReport{
		Duration:       time.Since(start).Seconds(),
		ExpiredCleaned: expired,
		InitialSize:    initialSize,
		FinalSize:      finalSize,
		Freed:          initialSize - finalSize,
		InitialEntries: initialEntries,
		FinalEntries:   c.entryCount(),
	}
	c.logger.Info("Cache optimized", "expired_cleaned", report.ExpiredCleaned, "freed_bytes", report.Freed)
	return report
}

func (c *TypedCache) entryCount() int {
	count := 0
	for _, s := range c.shards {
		s.mu.RLock()
		count += len(s.entries)
		s.mu.RUnlock()
	}
	return count
}

type TypeStats struct {
	Count int   `json:"count"`
	Size  int64 `json:"size_bytes"`
}

type Stats struct {
	EntriesTotal          int                  `json:"entries_total"`
	SizeBytesTotal        int64                `json:"size_bytes_total"`
	SizeLimitBytes        int64                `json:"size_limit_bytes"`
	UsagePercent          float64              `json:"usage_percent"`
	ExpiredEntriesPending int                  `json:"expired_entries_pending"`
	TTLByType             map[string]string    `json:"ttl_by_type"`
	BreakdownByType       map[string]TypeStats `json:"breakdown_by_type"`
}

func (c *TypedCache) Stats() Stats {
	now := c.clock()
	stats := Stats{
		SizeLimitBytes:  c.maxSize,
		TTLByType:       make(map[string]string, len(c.ttls)),
		BreakdownByType: make(map[string]TypeStats, len(c.ttls)),
	}
	for entryType, ttl := range c.ttls {
		stats.TTLByType[string(entryType)] = ttl.String()
		stats.BreakdownByType[string(entryType)] = TypeStats{}
	}

	for _, s := range c.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			stats.EntriesTotal++
			stats.SizeBytesTotal += e.size
			if e.expiredAt(now) {
				stats.ExpiredEntriesPending++
			}
			bt := stats.BreakdownByType[string(e.entryType)]
			bt.Count++
			bt.Size += e.size
			stats.BreakdownByType[string(e.entryType)] = bt
		}
		s.mu.RUnlock()
	}

	if c.maxSize > 0 {
		stats.UsagePercent = float64(stats.SizeBytesTotal) / float64(c.maxSize) * 100
	}
	return stats
}
