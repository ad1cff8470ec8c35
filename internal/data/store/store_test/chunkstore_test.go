package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/data/redisStore"
	"github.com/avarma/deptqa/internal/data/store"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *store.RedisChunkStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.TestChunkStore(redisStore.NewTestStore(client))
}

func sampleChunks(departmentId string) []ragModel.DocumentChunk {
	now := time.Now().UTC().Truncate(time.Second)
	return []ragModel.DocumentChunk{
		{
			ChunkId:      "chunk-1",
			DocumentId:   "doc-1",
			DepartmentId: departmentId,
			ChunkIndex:   0,
			Text:         "Employees accrue vacation monthly.",
			Embedding:    []float32{0.1, 0.2, 0.3},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ChunkId:      "chunk-2",
			DocumentId:   "doc-1",
			DepartmentId: departmentId,
			ChunkIndex:   1,
			Text:         "Unused days roll over once.",
			Embedding:    []float32{0.4, 0.5, 0.6},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func TestRedisChunkStore_Lifecycle(t *testing.T) {
	chunkStore := newTestStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	departmentId := "hr"

	t.Run("List on empty department", func(t *testing.T) {
		chunks, err := chunkStore.ListChunks(ctx, departmentId)
		if err != nil {
			t.Fatalf("ListChunks failed: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("got %d chunks, want none", len(chunks))
		}
	})

	t.Run("Replace and List roundtrip", func(t *testing.T) {
		if err := chunkStore.ReplaceChunks(ctx, departmentId, sampleChunks(departmentId)); err != nil {
			t.Fatalf("ReplaceChunks failed: %v", err)
		}

		chunks, err := chunkStore.ListChunks(ctx, departmentId)
		if err != nil {
			t.Fatalf("ListChunks failed: %v", err)
		}
		if len(chunks) != 2 {
			t.Fatalf("got %d chunks, want 2", len(chunks))
		}

		byId := map[string]ragModel.DocumentChunk{}
		for _, c := range chunks {
			byId[c.ChunkId] = c
		}
		got, ok := byId["chunk-1"]
		if !ok {
			t.Fatal("chunk-1 missing after roundtrip")
		}
		if got.Text != "Employees accrue vacation monthly." {
			t.Errorf("Text = %q", got.Text)
		}
		if len(got.Embedding) != 3 || got.Embedding[2] != 0.3 {
			t.Errorf("Embedding = %v", got.Embedding)
		}
	})

	t.Run("Replace swaps rows wholesale", func(t *testing.T) {
		replacement := []ragModel.DocumentChunk{
			{ChunkId: "chunk-9", DocumentId: "doc-2", DepartmentId: departmentId, ChunkIndex: 0, Text: "new policy", Embedding: []float32{1, 1, 1}},
		}
		if err := chunkStore.ReplaceChunks(ctx, departmentId, replacement); err != nil {
			t.Fatalf("ReplaceChunks failed: %v", err)
		}

		chunks, err := chunkStore.ListChunks(ctx, departmentId)
		if err != nil {
			t.Fatalf("ListChunks failed: %v", err)
		}
		if len(chunks) != 1 || chunks[0].ChunkId != "chunk-9" {
			t.Errorf("old rows survived the replace: %v", chunks)
		}
	})

	t.Run("Replace with empty slice clears the department", func(t *testing.T) {
		if err := chunkStore.ReplaceChunks(ctx, departmentId, nil); err != nil {
			t.Fatalf("ReplaceChunks failed: %v", err)
		}
		chunks, err := chunkStore.ListChunks(ctx, departmentId)
		if err != nil {
			t.Fatalf("ListChunks failed: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("got %d chunks, want none", len(chunks))
		}
	})
}

func TestRedisChunkStore_DepartmentIsolation(t *testing.T) {
	chunkStore := newTestStore(t)
	ctx := context.Background()

	if err := chunkStore.ReplaceChunks(ctx, "hr", sampleChunks("hr")); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}
	if err := chunkStore.ReplaceChunks(ctx, "eng", sampleChunks("eng")[:1]); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}

	if err := chunkStore.ReplaceChunks(ctx, "hr", nil); err != nil {
		t.Fatalf("clearing hr failed: %v", err)
	}

	engChunks, err := chunkStore.ListChunks(ctx, "eng")
	if err != nil {
		t.Fatalf("ListChunks failed: %v", err)
	}
	if len(engChunks) != 1 {
		t.Errorf("clearing one department touched another, eng has %d chunks", len(engChunks))
	}
}

func TestRedisChunkStore_State(t *testing.T) {
	chunkStore := newTestStore(t)
	ctx := context.Background()

	t.Run("missing state reports not found", func(t *testing.T) {
		_, found, err := chunkStore.GetState(ctx, "nowhere")
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if found {
			t.Error("state reported found for an unknown department")
		}
	})

	t.Run("save and read back", func(t *testing.T) {
		saved := ragModel.DepartmentIndexState{
			DepartmentId:  "hr",
			Initialized:   true,
			DocumentCount: 3,
			ChunkCount:    42,
			LastUpdated:   time.Now().UTC().Truncate(time.Second),
		}
		if err := chunkStore.SaveState(ctx, saved); err != nil {
			t.Fatalf("SaveState failed: %v", err)
		}

		got, found, err := chunkStore.GetState(ctx, "hr")
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if !found {
			t.Fatal("state was saved but not found")
		}
		if !got.Initialized || got.ChunkCount != 42 || got.DocumentCount != 3 {
			t.Errorf("state mismatch: %+v", got)
		}
	})
}
