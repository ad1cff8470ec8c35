package store

import (
	"context"
	"sync"

	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/pkg/logger_i"
)

// InMemoryChunkStore backs development and the Redis-offline fallback.
type InMemoryChunkStore struct {
	mu     *sync.RWMutex
	chunks map[string][]ragModel.DocumentChunk
	states map[string]ragModel.DepartmentIndexState
	logger *logger_i.Logger
}

func InitInMemoryChunkStore() *InMemoryChunkStore {
	return &InMemoryChunkStore{
		mu:     new(sync.RWMutex),
		chunks: make(map[string][]ragModel.DocumentChunk),
		states: make(map[string]ragModel.DepartmentIndexState),
		logger: logger_i.NewLogger("InMem ChunkStore"),
	}
}

func (s *InMemoryChunkStore) ListChunks(ctx context.Context, departmentId string) ([]ragModel.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.chunks[departmentId]
	out := make([]ragModel.DocumentChunk, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *InMemoryChunkStore) ReplaceChunks(ctx context.Context, departmentId string, chunks []ragModel.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]ragModel.DocumentChunk, len(chunks))
	copy(rows, chunks)
	s.chunks[departmentId] = rows
	s.logger.Debug("Replaced department chunks", "department", departmentId, "count", len(chunks))
	return nil
}

func (s *InMemoryChunkStore) GetState(ctx context.Context, departmentId string) (ragModel.DepartmentIndexState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, found := s.states[departmentId]
	return state, found, nil
}

func (s *InMemoryChunkStore) SaveState(ctx context.Context, state ragModel.DepartmentIndexState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.DepartmentId] = state
	return nil
}
