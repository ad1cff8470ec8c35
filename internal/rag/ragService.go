package rag

import (
	"context"
	"sync"
	"time"

	"github.com/avarma/deptqa/internal/cache"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/metrics"
	"github.com/avarma/deptqa/internal/rag/embedding"
	"github.com/avarma/deptqa/internal/rag/search"
	"github.com/avarma/deptqa/pkg/logger_i"
)

// Service is the public contract of the query pipeline. Handlers and batch
// callers only see this; the providers and stores stay behind it.
type Service interface {
	ProcessQuery(ctx context.Context, query ragModel.RAGContext) (ragModel.RAGResult, error)
	ProcessBatch(ctx context.Context, queries []ragModel.RAGContext) BatchResult
	Health(ctx context.Context) HealthReport
}

type service struct {
	chunkStore   ragModel.ChunkStore
	embedder     embedding.Embedder
	strategies   []GenerationStrategy
	cache        *cache.TypedCache
	engine       *search.Engine
	collector    *metrics.Collector
	logger       *logger_i.Logger
	queryTimeout time.Duration

	errMu     sync.Mutex
	lastError string
}

type ServiceConfig struct {
	ChunkStore ragModel.ChunkStore
	Embedder   embedding.Embedder
	Strategies []GenerationStrategy
	Cache      *cache.TypedCache
	Engine     *search.Engine
	Collector  *metrics.Collector

	// QueryTimeout bounds one ProcessQuery run; zero means config.QueryTimeout.
	QueryTimeout time.Duration
}

// NewService wires the pipeline explicitly; nothing here is a singleton, the
// caller owns construction order and shutdown.
func NewService(cfg ServiceConfig) Service {
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = config.QueryTimeout
	}
	return &service{
		chunkStore:   cfg.ChunkStore,
		embedder:     cfg.Embedder,
		strategies:   cfg.Strategies,
		cache:        cfg.Cache,
		engine:       cfg.Engine,
		collector:    cfg.Collector,
		logger:       logger_i.NewLogger("RAG Service"),
		queryTimeout: cfg.QueryTimeout,
	}
}

// ProcessQuery runs the per-query state machine: validate, cache check,
// retrieve, generate, assemble, record. The returned error is reserved for
// conditions the caller must see as request failures (department not indexed,
// permanent embedding-provider faults); everything else comes back as a
// normal result.
func (s *service) ProcessQuery(ctx context.Context, query ragModel.RAGContext) (ragModel.RAGResult, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "department", query.DepartmentId)
	start := time.Now()

	processCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	// Validate
	state, found, err := s.chunkStore.GetState(processCtx, query.DepartmentId)
	if err != nil {
		s.noteError(err)
		return ragModel.RAGResult{}, err
	}
	if !found || !state.Initialized {
		log.Debug("Query against uninitialized department")
		return ragModel.RAGResult{}, ragModel.ErrDepartmentNotIndexed
	}

	// Cache check
	resultKey := query.CacheKey()
	if query.UseCache {
		if cached, ok := s.lookupResult(resultKey); ok {
			log.Debug("Result cache hit")
			s.record(cached, start)
			return cached, nil
		}
	}

	// Retrieve
	chunks, scores, err := s.executeRetrievalStep(processCtx, log, query, resultKey)
	if err != nil {
		s.noteError(err)
		s.recordFailure(start)
		return ragModel.RAGResult{}, err
	}

	// Generate
	result := s.executeGenerationStep(processCtx, log, query, chunks, scores)

	// A caller-cancelled query must neither populate the cache nor count a
	// success. Expiry of our own budget is not the caller's problem: the
	// strategy chain has already degraded the result, so it goes back as a
	// normal response.
	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Assemble + store
	result.ProcessingTime = time.Since(start).Seconds()
	if query.UseCache && result.Success {
		s.cache.Put(cache.TypeGenerationResponse, resultKey, result)
	}

	s.record(result, start)
	return result, nil
}

func (s *service) record(result ragModel.RAGResult, start time.Time) {
	s.collector.RecordQuery(metrics.QueryOutcome{
		Success:    result.Success,
		CacheHit:   result.CacheHit,
		Duration:   time.Since(start),
		ChunksUsed: len(result.ChunksUsed),
	})
	metrics.SetCacheSize(s.cache.Stats().SizeBytesTotal)
}

func (s *service) recordFailure(start time.Time) {
	s.collector.RecordQuery(metrics.QueryOutcome{Duration: time.Since(start)})
}

func (s *service) noteError(err error) {
	s.errMu.Lock()
	s.lastError = err.Error()
	s.errMu.Unlock()
}

// BatchResult carries one entry per submitted query; a failing query fills
// Error and leaves the rest of the batch untouched.
type BatchResult struct {
	Items       []BatchItem
	TotalTime   float64
	AverageTime float64
}

type BatchItem struct {
	Result ragModel.RAGResult
	Err    error
}

func (s *service) ProcessBatch(ctx context.Context, queries []ragModel.RAGContext) BatchResult {
	start := time.Now()
	items := make([]BatchItem, len(queries))

	sem := make(chan struct{}, config.BatchQueryConcurrencyCap)
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, query ragModel.RAGContext) {
			defer wg.Done()
			defer func() { <-sem }()
			result, err := s.ProcessQuery(ctx, query)
			items[i] = BatchItem{Result: result, Err: err}
		}(i, query)
	}
	wg.Wait()

	total := time.Since(start).Seconds()
	avg := 0.0
	if len(queries) > 0 {
		avg = total / float64(len(queries))
	}
	return BatchResult{Items: items, TotalTime: total, AverageTime: avg}
}

type HealthReport struct {
	Status             string `json:"status"`
	Orchestrator       bool   `json:"orchestrator"`
	GenerationProvider bool   `json:"generation_provider"`
	EmbeddingProvider  bool   `json:"embedding_provider"`
	Cache              bool   `json:"cache"`
	ErrorHandler       bool   `json:"error_handler"`
	LastError          string `json:"last_error,omitempty"`
}

func (s *service) Health(ctx context.Context) HealthReport {
	generationUp := false
	for _, strategy := range s.strategies {
		if !strategy.Degraded() {
			generationUp = true
			break
		}
	}

	s.errMu.Lock()
	lastError := s.lastError
	s.errMu.Unlock()

	report := HealthReport{
		Orchestrator:       true,
		GenerationProvider: generationUp,
		EmbeddingProvider:  s.embedder != nil,
		Cache:              s.cache != nil,
		ErrorHandler:       true,
		LastError:          lastError,
	}
	if report.GenerationProvider && report.EmbeddingProvider && report.Cache {
		report.Status = "healthy"
	} else {
		report.Status = "degraded"
	}
	return report
}
