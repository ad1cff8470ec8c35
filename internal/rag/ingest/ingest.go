package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avarma/deptqa/internal/cache"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/metrics"
	"github.com/avarma/deptqa/internal/rag/embedding"
	"github.com/avarma/deptqa/pkg/logger_i"
)

// Service rebuilds a department's index from pre-extracted documents.
// Format parsing (PDF, DOCX and friends) happens upstream; this only sees text.
type Service struct {
	chunkStore ragModel.ChunkStore
	embedder   embedding.Embedder
	cache      *cache.TypedCache
	logger     *logger_i.Logger

	mu     sync.Mutex
	inWork map[string]*departmentGuard
}

type departmentGuard struct {
	mu   sync.Mutex
	refs int
}

func NewService(chunkStore ragModel.ChunkStore, embedder embedding.Embedder, typedCache *cache.TypedCache) *Service {
	return &Service{
		chunkStore: chunkStore,
		embedder:   embedder,
		cache:      typedCache,
		logger:     logger_i.NewLogger("Document Ingestion"),
		inWork:     make(map[string]*departmentGuard),
	}
}

// acquireGuard blocks until this goroutine owns the department: reloads of
// the same department are mutually exclusive while other departments proceed.
// Guards are refcounted so the map only holds departments with a reload in
// flight or waiting.
func (s *Service) acquireGuard(departmentId string) *departmentGuard {
	s.mu.Lock()
	guard, ok := s.inWork[departmentId]
	if !ok {
		guard = &departmentGuard{}
		s.inWork[departmentId] = guard
	}
	guard.refs++
	s.mu.Unlock()

	guard.mu.Lock()
	return guard
}

func (s *Service) releaseGuard(departmentId string, guard *departmentGuard) {
	guard.mu.Unlock()

	s.mu.Lock()
	guard.refs--
	if guard.refs == 0 {
		delete(s.inWork, departmentId)
	}
	s.mu.Unlock()
}

// ReloadDepartment recomputes the department's rows wholesale: chunk, embed,
// replace, update state, then drop every cached result derived from the old
// index. A query arriving mid-reload sees either the old index or, once the
// state row flips, the new one.
func (s *Service) ReloadDepartment(ctx context.Context, departmentId string, docs []ragModel.IngestDocument) (ragModel.DepartmentIndexState, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "department", departmentId)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("department_ingestion", time.Since(start)) }()

	guard := s.acquireGuard(departmentId)
	defer s.releaseGuard(departmentId, guard)

	log.Info("Reloading department index", "documents", len(docs))

	chunks := PrepareChunks(departmentId, docs)
	if err := s.embedChunks(ctx, chunks); err != nil {
		return ragModel.DepartmentIndexState{}, fmt.Errorf("embedding department chunks: %w", err)
	}

	if err := s.chunkStore.ReplaceChunks(ctx, departmentId, chunks); err != nil {
		return ragModel.DepartmentIndexState{}, fmt.Errorf("replacing chunk rows: %w", err)
	}

	state := ragModel.DepartmentIndexState{
		DepartmentId:  departmentId,
		Initialized:   true,
		DocumentCount: len(docs),
		ChunkCount:    len(chunks),
		LastUpdated:   time.Now(),
	}
	if err := s.chunkStore.SaveState(ctx, state); err != nil {
		return ragModel.DepartmentIndexState{}, fmt.Errorf("saving index state: %w", err)
	}

	// Cached answers and retrievals were computed against the old rows.
	prefix := ragModel.DepartmentKeyPrefix(departmentId)
	cleared := s.cache.ClearByPrefix(cache.TypeRetrievalResult, prefix)
	cleared += s.cache.ClearByPrefix(cache.TypeGenerationResponse, prefix)
	log.Info("Department index reloaded", "chunks", len(chunks), "cache_entries_cleared", cleared)

	return state, nil
}

func (s *Service) embedChunks(ctx context.Context, chunks []ragModel.DocumentChunk) error {
	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Text
		}

		vectors, err := s.embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}
		for j := range batch {
			batch[j].Embedding = vectors[j]
		}
	}
	return nil
}
