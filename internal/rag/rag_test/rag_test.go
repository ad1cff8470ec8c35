package rag_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avarma/deptqa/internal/cache"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/metrics"
	"github.com/avarma/deptqa/internal/rag"
	"github.com/avarma/deptqa/internal/rag/llm"
	"github.com/avarma/deptqa/internal/rag/search"
)

type fixture struct {
	store     *MockChunkStore
	embedder  *MockEmbedder
	primary   *MockProvider
	fallback  *MockProvider
	collector *metrics.Collector
	service   rag.Service
}

func newFixture() *fixture {
	return newFixtureWithTimeout(0)
}

func newFixtureWithTimeout(queryTimeout time.Duration) *fixture {
	f := &fixture{
		store:     &MockChunkStore{},
		embedder:  &MockEmbedder{},
		primary:   &MockProvider{ModelName: "primary-model"},
		fallback:  &MockProvider{ModelName: "fallback-model"},
		collector: metrics.NewCollector(),
	}
	f.store.OnListChunks = func(ctx context.Context, departmentId string) ([]ragModel.DocumentChunk, error) {
		return []ragModel.DocumentChunk{
			{ChunkId: "c1", DocumentId: "d1", DepartmentId: departmentId, ChunkIndex: 0, Text: "vacation policy text", Embedding: []float32{1, 0, 0}},
			{ChunkId: "c2", DocumentId: "d1", DepartmentId: departmentId, ChunkIndex: 1, Text: "sick leave text", Embedding: []float32{0.9, 0.1, 0}},
		}, nil
	}
	f.service = rag.NewService(rag.ServiceConfig{
		ChunkStore: f.store,
		Embedder:   f.embedder,
		Strategies: []rag.GenerationStrategy{
			rag.NewProviderStrategy("primary", f.primary),
			rag.NewProviderStrategy("fallback", f.fallback),
			rag.NewStaticStrategy(config.DegradedServiceAnswer, "primary-model"),
		},
		Cache:        cache.New(),
		Engine:       search.NewEngine(),
		Collector:    f.collector,
		QueryTimeout: queryTimeout,
	})
	return f
}

func query() ragModel.RAGContext {
	return ragModel.RAGContext{
		Query:               "What is the vacation policy?",
		DepartmentId:        "hr",
		MaxChunks:           5,
		SimilarityThreshold: 0.7,
		IncludeMetadata:     true,
		UseCache:            true,
	}
}

func authError(provider string) error {
	return &ragModel.ProviderError{Provider: provider, Kind: ragModel.ProviderAuth, Err: errors.New("401")}
}

func TestProcessQuery_HappyPath(t *testing.T) {
	f := newFixture()

	result, err := f.service.ProcessQuery(context.Background(), query())
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if result.Answer != "answer from primary-model" {
		t.Errorf("Answer = %q", result.Answer)
	}
	if result.ModelUsed != "primary-model" {
		t.Errorf("ModelUsed = %q", result.ModelUsed)
	}
	if !result.Success {
		t.Error("a primary-provider answer must count as success")
	}
	if len(result.ChunksUsed) == 0 {
		t.Error("retrieved chunks should be reported")
	}
	if len(result.Sources) != len(result.ChunksUsed) {
		t.Errorf("Sources = %d, ChunksUsed = %d", len(result.Sources), len(result.ChunksUsed))
	}
	if result.CacheHit {
		t.Error("first query cannot be a cache hit")
	}

	snap := f.collector.Snapshot()
	if snap.TotalQueries != 1 || snap.SucceededQueries != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestProcessQuery_DepartmentNotIndexed(t *testing.T) {
	f := newFixture()
	f.store.OnGetState = func(ctx context.Context, departmentId string) (ragModel.DepartmentIndexState, bool, error) {
		return ragModel.DepartmentIndexState{}, false, nil
	}

	_, err := f.service.ProcessQuery(context.Background(), query())
	if !errors.Is(err, ragModel.ErrDepartmentNotIndexed) {
		t.Fatalf("err = %v, want ErrDepartmentNotIndexed", err)
	}
	if atomic.LoadInt32(&f.embedder.Calls) != 0 {
		t.Error("validation must happen before any provider call")
	}
}

func TestProcessQuery_ResultCacheHit(t *testing.T) {
	f := newFixture()
	q := query()

	if _, err := f.service.ProcessQuery(context.Background(), q); err != nil {
		t.Fatalf("first query failed: %v", err)
	}
	embedCalls := atomic.LoadInt32(&f.embedder.Calls)
	genCalls := atomic.LoadInt32(&f.primary.Calls)

	result, err := f.service.ProcessQuery(context.Background(), q)
	if err != nil {
		t.Fatalf("second query failed: %v", err)
	}

	if !result.CacheHit {
		t.Error("second identical query should hit the result cache")
	}
	if atomic.LoadInt32(&f.embedder.Calls) != embedCalls {
		t.Error("cache hit must not call the embedder")
	}
	if atomic.LoadInt32(&f.primary.Calls) != genCalls {
		t.Error("cache hit must not call the generation provider")
	}
}

func TestProcessQuery_CacheBypass(t *testing.T) {
	f := newFixture()
	q := query()
	q.UseCache = false

	if _, err := f.service.ProcessQuery(context.Background(), q); err != nil {
		t.Fatalf("first query failed: %v", err)
	}
	result, err := f.service.ProcessQuery(context.Background(), q)
	if err != nil {
		t.Fatalf("second query failed: %v", err)
	}

	if result.CacheHit {
		t.Error("UseCache=false must bypass the result cache")
	}
	if atomic.LoadInt32(&f.primary.Calls) != 2 {
		t.Errorf("provider calls = %d, want 2", f.primary.Calls)
	}
}

func TestProcessQuery_NoQualifyingChunks(t *testing.T) {
	f := newFixture()
	f.store.OnListChunks = func(ctx context.Context, departmentId string) ([]ragModel.DocumentChunk, error) {
		// orthogonal to the query vector, nothing clears the threshold
		return []ragModel.DocumentChunk{
			{ChunkId: "c1", DocumentId: "d1", ChunkIndex: 0, Text: "unrelated", Embedding: []float32{0, 1, 0}},
		}, nil
	}

	result, err := f.service.ProcessQuery(context.Background(), query())
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if result.Answer != config.NoContextAnswer {
		t.Errorf("Answer = %q, want the fixed no-context answer", result.Answer)
	}
	if result.ModelUsed != "none" {
		t.Errorf("ModelUsed = %q, want none", result.ModelUsed)
	}
	if !result.Success {
		t.Error("an empty retrieval is a normal outcome, not a failure")
	}
	if atomic.LoadInt32(&f.primary.Calls) != 0 {
		t.Error("zero chunks must not trigger a generation call")
	}
}

func TestProcessQuery_FallbackProvider(t *testing.T) {
	f := newFixture()
	f.primary.OnGenerate = func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
		return llm.Result{}, authError("primary")
	}

	result, err := f.service.ProcessQuery(context.Background(), query())
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if result.Answer != "answer from fallback-model" {
		t.Errorf("Answer = %q", result.Answer)
	}
	if result.ModelUsed != "fallback-model" {
		t.Errorf("ModelUsed = %q", result.ModelUsed)
	}
	if !result.Success {
		t.Error("a fallback answer is still a real answer")
	}
	if atomic.LoadInt32(&f.primary.Calls) != 1 {
		t.Errorf("auth failures must not be retried, primary calls = %d", f.primary.Calls)
	}
}

func TestProcessQuery_AllProvidersDown(t *testing.T) {
	f := newFixture()
	f.primary.OnGenerate = func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
		return llm.Result{}, authError("primary")
	}
	f.fallback.OnGenerate = func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
		return llm.Result{}, authError("fallback")
	}

	result, err := f.service.ProcessQuery(context.Background(), query())
	if err != nil {
		t.Fatalf("the static tail must keep the request whole, got error %v", err)
	}

	if result.Answer != config.DegradedServiceAnswer {
		t.Errorf("Answer = %q, want the degraded-service answer", result.Answer)
	}
	if result.Success {
		t.Error("a degraded answer must not count as success")
	}

	snap := f.collector.Snapshot()
	if snap.FailedQueries != 1 {
		t.Errorf("FailedQueries = %d, want 1", snap.FailedQueries)
	}
}

func TestProcessQuery_DegradedAnswerNotCached(t *testing.T) {
	f := newFixture()
	down := func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
		return llm.Result{}, authError("down")
	}
	f.primary.OnGenerate = down
	f.fallback.OnGenerate = down

	if _, err := f.service.ProcessQuery(context.Background(), query()); err != nil {
		t.Fatalf("first query failed: %v", err)
	}

	// providers recover; the degraded answer must not be served from cache
	f.primary.OnGenerate = nil
	result, err := f.service.ProcessQuery(context.Background(), query())
	if err != nil {
		t.Fatalf("second query failed: %v", err)
	}
	if result.Answer != "answer from primary-model" {
		t.Errorf("Answer = %q, degraded result leaked into the cache", result.Answer)
	}
}

func TestProcessQuery_RetryOnTransientFailure(t *testing.T) {
	f := newFixture()
	var attempts int32
	f.primary.OnGenerate = func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return llm.Result{}, &ragModel.ProviderError{Provider: "primary", Kind: ragModel.ProviderRateLimited, Err: errors.New("429")}
		}
		return llm.Result{Answer: "recovered", TokensUsed: 5}, nil
	}

	result, err := f.service.ProcessQuery(context.Background(), query())
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if result.Answer != "recovered" {
		t.Errorf("Answer = %q, want the retried result", result.Answer)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if atomic.LoadInt32(&f.fallback.Calls) != 0 {
		t.Error("a transient failure that recovers must not reach the fallback")
	}
}

func TestProcessQuery_EmbeddingPermanentFailure(t *testing.T) {
	f := newFixture()
	f.embedder.OnGetEmbedding = func(ctx context.Context, query string) ([]float32, error) {
		return nil, &ragModel.ProviderError{Provider: "embedding", Kind: ragModel.ProviderAuth, Err: errors.New("401")}
	}

	_, err := f.service.ProcessQuery(context.Background(), query())
	if err == nil {
		t.Fatal("a permanent embedding failure must surface as a request error")
	}
	var pe *ragModel.ProviderError
	if !errors.As(err, &pe) || pe.Kind != ragModel.ProviderAuth {
		t.Errorf("err = %v, want the typed auth failure", err)
	}
	if atomic.LoadInt32(&f.embedder.Calls) != 1 {
		t.Errorf("auth failures must not be retried, embedder calls = %d", f.embedder.Calls)
	}
	if atomic.LoadInt32(&f.primary.Calls) != 0 {
		t.Error("generation must not run when retrieval failed")
	}
}

func TestProcessQuery_QueryBudgetExpiry(t *testing.T) {
	f := newFixtureWithTimeout(80 * time.Millisecond)
	hang := func(provider string) func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
		return func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
			// real adapters block to their deadline and come back typed
			<-ctx.Done()
			return llm.Result{}, &ragModel.ProviderError{Provider: provider, Kind: ragModel.ProviderTimeout, Err: ctx.Err()}
		}
	}
	f.primary.OnGenerate = hang("primary")
	f.fallback.OnGenerate = hang("fallback")

	result, err := f.service.ProcessQuery(context.Background(), query())
	if err != nil {
		t.Fatalf("an exhausted internal budget must still produce a normal response, got error %v", err)
	}

	if result.Answer != config.DegradedServiceAnswer {
		t.Errorf("Answer = %q, want the degraded-service answer", result.Answer)
	}
	if result.ModelUsed == "" {
		t.Error("ModelUsed must name the provider that should have answered")
	}
	if result.Success {
		t.Error("a degraded answer must not count as success")
	}

	snap := f.collector.Snapshot()
	if snap.FailedQueries != 1 {
		t.Errorf("FailedQueries = %d, want 1", snap.FailedQueries)
	}
}

func TestProcessQuery_CancelledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.primary.OnGenerate = func(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
		cancel()
		return llm.Result{Answer: "late answer"}, nil
	}

	_, err := f.service.ProcessQuery(ctx, query())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// a fresh query must not see anything the cancelled one computed
	if _, err := f.service.ProcessQuery(context.Background(), query()); err != nil {
		t.Fatalf("follow-up query failed: %v", err)
	}
	if atomic.LoadInt32(&f.primary.Calls) != 2 {
		t.Errorf("provider calls = %d, cancelled run leaked into the cache", f.primary.Calls)
	}
}

func TestProcessBatch(t *testing.T) {
	f := newFixture()
	queries := []ragModel.RAGContext{query(), query(), query()}
	queries[1].DepartmentId = "missing"
	f.store.OnGetState = func(ctx context.Context, departmentId string) (ragModel.DepartmentIndexState, bool, error) {
		if departmentId == "missing" {
			return ragModel.DepartmentIndexState{}, false, nil
		}
		return ragModel.DepartmentIndexState{DepartmentId: departmentId, Initialized: true}, true, nil
	}

	batch := f.service.ProcessBatch(context.Background(), queries)

	if len(batch.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(batch.Items))
	}
	if batch.Items[0].Err != nil || batch.Items[2].Err != nil {
		t.Errorf("healthy queries failed: %v, %v", batch.Items[0].Err, batch.Items[2].Err)
	}
	if !errors.Is(batch.Items[1].Err, ragModel.ErrDepartmentNotIndexed) {
		t.Errorf("item 1 err = %v, want ErrDepartmentNotIndexed", batch.Items[1].Err)
	}
	if batch.TotalTime <= 0 || batch.AverageTime <= 0 {
		t.Errorf("timing not recorded: %+v", batch)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()

	report := f.service.Health(context.Background())
	if report.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", report.Status)
	}
	if !report.GenerationProvider || !report.EmbeddingProvider || !report.Cache {
		t.Errorf("report = %+v", report)
	}

	staticOnly := rag.NewService(rag.ServiceConfig{
		ChunkStore: f.store,
		Embedder:   f.embedder,
		Strategies: []rag.GenerationStrategy{rag.NewStaticStrategy(config.DegradedServiceAnswer, "none")},
		Cache:      cache.New(),
		Engine:     search.NewEngine(),
		Collector:  metrics.NewCollector(),
	})
	if got := staticOnly.Health(context.Background()).Status; got != "degraded" {
		t.Errorf("Status = %q, want degraded when only the static tail remains", got)
	}
}
