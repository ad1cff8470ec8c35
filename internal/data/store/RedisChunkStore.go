package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/data/redisStore"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/pkg/logger_i"
)

// RedisChunkStore keeps one JSON row per chunk, a set of chunk ids per
// department, and one state row per department.
type RedisChunkStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisChunkStore(ctx context.Context) *RedisChunkStore {
	inner := redisStore.NewStore(ctx, config.RedisChunkStore)
	if inner == nil {
		return nil
	}
	return &RedisChunkStore{
		store:  inner,
		logger: logger_i.NewLogger("ChunkStore"),
	}
}

func chunkKey(departmentId string, chunkId string) string {
	return fmt.Sprintf("chunk:%s:%s", departmentId, chunkId)
}

func chunkSetKey(departmentId string) string {
	return "chunks:" + departmentId
}

func stateKey(departmentId string) string {
	return "deptstate:" + departmentId
}

func (s *RedisChunkStore) ListChunks(ctx context.Context, departmentId string) ([]ragModel.DocumentChunk, error) {
	ids, err := s.store.SetMembers(ctx, chunkSetKey(departmentId))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = chunkKey(departmentId, id)
	}
	rows, err := s.store.MultiGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	chunks := make([]ragModel.DocumentChunk, 0, len(rows))
	for _, row := range rows {
		raw, ok := row.(string)
		if !ok {
			// id set and rows drifted apart; skip the hole rather than fail the query
			s.logger.Warn("Chunk row missing for indexed id", "department", departmentId)
			continue
		}
		var chunk ragModel.DocumentChunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			s.logger.Error("Corrupt chunk row", "department", departmentId, "error", err)
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (s *RedisChunkStore) ReplaceChunks(ctx context.Context, departmentId string, chunks []ragModel.DocumentChunk) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "department", departmentId)

	oldIds, err := s.store.SetMembers(ctx, chunkSetKey(departmentId))
	if err != nil {
		return err
	}
	if len(oldIds) > 0 {
		oldKeys := make([]string, 0, len(oldIds)+1)
		for _, id := range oldIds {
			oldKeys = append(oldKeys, chunkKey(departmentId, id))
		}
		oldKeys = append(oldKeys, chunkSetKey(departmentId))
		if err := s.store.Del(ctx, oldKeys...); err != nil {
			return err
		}
	}

	if len(chunks) == 0 {
		return nil
	}

	rows := make(map[string]interface{}, len(chunks))
	ids := make([]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		rows[chunkKey(departmentId, chunk.ChunkId)] = data
		ids = append(ids, chunk.ChunkId)
	}
	if err := s.store.MultiSet(ctx, rows, config.RedisRowTTL); err != nil {
		return err
	}
	if err := s.store.SetAdd(ctx, chunkSetKey(departmentId), ids...); err != nil {
		return err
	}
	log.Debug("Replaced department chunks", "count", len(chunks))
	return nil
}

func (s *RedisChunkStore) GetState(ctx context.Context, departmentId string) (ragModel.DepartmentIndexState, bool, error) {
	var state ragModel.DepartmentIndexState
	val, err := s.store.Get(ctx, stateKey(departmentId))
	if s.store.IsNil(err) {
		return state, false, nil
	} else if err != nil {
		return state, false, err
	}
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return state, false, err
	}
	return state, true, nil
}

func (s *RedisChunkStore) SaveState(ctx context.Context, state ragModel.DepartmentIndexState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, stateKey(state.DepartmentId), data, config.RedisRowTTL)
}

func TestChunkStore(store *redisStore.Store) *RedisChunkStore {
	return &RedisChunkStore{
		store:  store,
		logger: logger_i.NewLogger("test chunkstore"),
	}
}
