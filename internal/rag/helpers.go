package rag

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/avarma/deptqa/internal/cache"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/metrics"
	"github.com/avarma/deptqa/pkg/logger_i"
)

func (s *service) lookupResult(resultKey string) (ragModel.RAGResult, bool) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	var cached ragModel.RAGResult
	hit := s.cache.Get(cache.TypeGenerationResponse, resultKey, &cached)
	metrics.CountCacheLookup(string(cache.TypeGenerationResponse), hit)
	if !hit {
		return ragModel.RAGResult{}, false
	}
	cached.CacheHit = true
	cached.Success = true
	return cached, true
}

// retrievedSet is the cached intermediate of the retrieval step.
type retrievedSet struct {
	Chunks []ragModel.DocumentChunk `json:"chunks"`
	Scores []float64                `json:"scores"`
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, query ragModel.RAGContext, resultKey string) ([]ragModel.DocumentChunk, []float64, error) {
	if query.UseCache {
		var cached retrievedSet
		hit := s.cache.Get(cache.TypeRetrievalResult, resultKey, &cached)
		metrics.CountCacheLookup(string(cache.TypeRetrievalResult), hit)
		if hit {
			log.Debug("Retrieval cache hit", "chunks", len(cached.Chunks))
			return cached.Chunks, cached.Scores, nil
		}
	}

	queryVector, err := s.getQueryEmbedding(ctx, log, query)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := s.chunkStore.ListChunks(ctx, query.DepartmentId)
	if err != nil {
		return nil, nil, err
	}

	searchStart := time.Now()
	chunks, scores, meta := s.engine.Search(queryVector, candidates, query.MaxChunks, query.SimilarityThreshold)
	metrics.CaptureExecutionMetrics("vector_search", time.Since(searchStart))
	log.Debug("Similarity search done", "qualified", len(chunks), "scanned", meta.CandidatesScanned, "skipped_dimension", meta.SkippedDimension)

	if query.UseCache && ctx.Err() == nil {
		s.cache.Put(cache.TypeRetrievalResult, resultKey, retrievedSet{Chunks: chunks, Scores: scores})
	}
	return chunks, scores, nil
}

// getQueryEmbedding consults the embedding cache first; the key is the
// normalized query text plus the model, independent of department. Transient
// provider failures are retried with backoff, permanent ones surface.
func (s *service) getQueryEmbedding(ctx context.Context, log *logger_i.Logger, query ragModel.RAGContext) ([]float32, error) {
	embKey := ragModel.EmbeddingCacheKey(query.NormalizedQuery(), s.embedder.Model())
	if query.UseCache {
		var vector []float32
		hit := s.cache.Get(cache.TypeEmbedding, embKey, &vector)
		metrics.CountCacheLookup(string(cache.TypeEmbedding), hit)
		if hit {
			return vector, nil
		}
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	var vector []float32
	var err error
	for attempt := 1; attempt <= config.ProviderMaxAttempts; attempt++ {
		vector, err = s.embedder.GetEmbedding(ctx, query.Query)
		if err == nil {
			break
		}
		log.Warn("Embedding call failed", "attempt", attempt, "error", err)
		if !ragModel.IsRetryable(err) || attempt == config.ProviderMaxAttempts {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(config.ProviderRetryBackoff):
		}
	}

	if ctx.Err() == nil {
		s.cache.Put(cache.TypeEmbedding, embKey, vector)
	}
	return vector, nil
}

func (s *service) executeGenerationStep(ctx context.Context, log *logger_i.Logger, query ragModel.RAGContext, chunks []ragModel.DocumentChunk, scores []float64) ragModel.RAGResult {
	result := ragModel.RAGResult{
		ChunksUsed:       make([]string, 0, len(chunks)),
		SimilarityScores: scores,
	}
	contextTexts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		result.ChunksUsed = append(result.ChunksUsed, chunk.ChunkId)
		contextTexts = append(contextTexts, chunk.Text)
		if query.IncludeMetadata {
			result.Sources = append(result.Sources, ragModel.Source{
				FileReference:   chunk.DocumentId,
				ChunkId:         chunk.ChunkId,
				SimilarityScore: scores[i],
				Excerpt:         excerpt(chunk.Text),
				Page:            chunk.ChunkIndex,
			})
		}
	}

	// Zero qualifying chunks: fixed answer, no provider call, not a failure.
	if len(chunks) == 0 {
		result.Answer = config.NoContextAnswer
		result.ModelUsed = "none"
		result.Success = true
		return result
	}

	start := time.Now()
	outcome := runStrategies(ctx, s.strategies, query.Query, contextTexts, log)
	metrics.CaptureExecutionMetrics("llm_generation", time.Since(start))

	if !outcome.answered {
		// Only reachable on cancellation or an ill-formed chain; keep the
		// caller whole either way.
		result.Answer = config.DegradedServiceAnswer
		result.ModelUsed = s.primaryModel()
		if outcome.lastErr != nil {
			s.noteError(outcome.lastErr)
		}
		return result
	}

	result.Answer = outcome.result.Answer
	result.TokensUsed = outcome.result.TokensUsed
	result.ModelUsed = outcome.model
	result.Success = !outcome.degraded
	if outcome.lastErr != nil {
		s.noteError(outcome.lastErr)
	}
	return result
}

func (s *service) primaryModel() string {
	for _, strategy := range s.strategies {
		if p, ok := strategy.(*providerStrategy); ok {
			return p.provider.Model()
		}
	}
	return "none"
}

const excerptLimit = 200

func excerpt(text string) string {
	if len(text) <= excerptLimit {
		return text
	}
	// back up to a rune boundary so the cut never mangles multi-byte text
	cut := excerptLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
