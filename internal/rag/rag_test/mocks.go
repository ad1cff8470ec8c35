package rag_test

import (
	"context"
	"sync/atomic"

	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/rag/llm"
)

// MockChunkStore backs the pipeline with canned rows.
type MockChunkStore struct {
	OnListChunks func(ctx context.Context, departmentId string) ([]ragModel.DocumentChunk, error)
	OnGetState   func(ctx context.Context, departmentId string) (ragModel.DepartmentIndexState, bool, error)
	ListCalls    int32
}

func (m *MockChunkStore) ListChunks(ctx context.Context, departmentId string) ([]ragModel.DocumentChunk, error) {
	atomic.AddInt32(&m.ListCalls, 1)
	if m.OnListChunks != nil {
		return m.OnListChunks(ctx, departmentId)
	}
	return nil, nil
}

func (m *MockChunkStore) ReplaceChunks(ctx context.Context, departmentId string, chunks []ragModel.DocumentChunk) error {
	return nil
}

func (m *MockChunkStore) GetState(ctx context.Context, departmentId string) (ragModel.DepartmentIndexState, bool, error) {
	if m.OnGetState != nil {
		return m.OnGetState(ctx, departmentId)
	}
	return ragModel.DepartmentIndexState{DepartmentId: departmentId, Initialized: true}, true, nil
}

func (m *MockChunkStore) SaveState(ctx context.Context, state ragModel.DepartmentIndexState) error {
	return nil
}

// MockEmbedder counts calls so cache-hit paths can assert zero remote traffic.
type MockEmbedder struct {
	OnGetEmbedding func(ctx context.Context, query string) ([]float32, error)
	Calls          int32
}

func (m *MockEmbedder) Model() string {
	return "mock-embedding-model"
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// MockProvider is one generation backend in the fallback chain.
type MockProvider struct {
	ModelName  string
	OnGenerate func(ctx context.Context, query string, contextTexts []string) (llm.Result, error)
	Calls      int32
}

func (m *MockProvider) Model() string {
	return m.ModelName
}

func (m *MockProvider) Generate(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, query, contextTexts)
	}
	return llm.Result{Answer: "answer from " + m.ModelName, TokensUsed: 10}, nil
}
