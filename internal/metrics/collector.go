package metrics

import (
	"sync"
	"time"
)

// Collector keeps the running counters and rolling averages the health and
// stats surfaces report. Prometheus sees the same events through the vectors
// above; this snapshot exists for callers without a scrape pipeline.
type Collector struct {
	mu sync.Mutex

	totalQueries     int64
	succeededQueries int64
	failedQueries    int64
	cacheHits        int64

	avgResponseTime float64
	avgChunkCount   float64
	lastQueryAt     time.Time
}

func NewCollector() *Collector {
	return &Collector{}
}

type QueryOutcome struct {
	Success    bool
	CacheHit   bool
	Duration   time.Duration
	ChunksUsed int
}

// RecordQuery folds one finished query into the rolling averages.
// A degraded answer counts as failed even though the caller got a response.
func (c *Collector) RecordQuery(outcome QueryOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalQueries++
	if outcome.Success {
		c.succeededQueries++
	} else {
		c.failedQueries++
	}
	if outcome.CacheHit {
		c.cacheHits++
	}

	n := float64(c.totalQueries)
	c.avgResponseTime += (outcome.Duration.Seconds() - c.avgResponseTime) / n
	c.avgChunkCount += (float64(outcome.ChunksUsed) - c.avgChunkCount) / n
	c.lastQueryAt = time.Now()

	status := "succeeded"
	if !outcome.Success {
		status = "failed"
	}
	CountQuery(status)
	CaptureQueryMetrics(status, outcome.Duration)
}

type Snapshot struct {
	TotalQueries     int64     `json:"total_queries"`
	SucceededQueries int64     `json:"succeeded_queries"`
	FailedQueries    int64     `json:"failed_queries"`
	CacheHitRatio    float64   `json:"cache_hit_ratio"`
	AvgResponseTime  float64   `json:"avg_response_time_seconds"`
	AvgChunkCount    float64   `json:"avg_chunk_count"`
	LastQueryAt      time.Time `json:"last_query_at"`
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		TotalQueries:     c.totalQueries,
		SucceededQueries: c.succeededQueries,
		FailedQueries:    c.failedQueries,
		AvgResponseTime:  c.avgResponseTime,
		AvgChunkCount:    c.avgChunkCount,
		LastQueryAt:      c.lastQueryAt,
	}
	if c.totalQueries > 0 {
		snap.CacheHitRatio = float64(c.cacheHits) / float64(c.totalQueries)
	}
	return snap
}
