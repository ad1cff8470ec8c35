package search

import (
	"math"
	"testing"

	"github.com/avarma/deptqa/internal/domain/ragModel"
)

func chunk(docId string, index int, embedding []float32) ragModel.DocumentChunk {
	return ragModel.DocumentChunk{
		ChunkId:      docId + "-c",
		DocumentId:   docId,
		DepartmentId: "hr",
		ChunkIndex:   index,
		Text:         "text of " + docId,
		Embedding:    embedding,
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tc.want)
			}
		})
	}
}

func TestSearch_ThresholdAndOrder(t *testing.T) {
	e := NewEngine()
	query := []float32{1, 0}

	// scores against the query: ~0.995, ~0.707, 0.0
	candidates := []ragModel.DocumentChunk{
		chunk("doc-low", 0, []float32{0, 1}),
		chunk("doc-mid", 1, []float32{1, 1}),
		chunk("doc-high", 2, []float32{10, 1}),
	}

	chunks, scores, meta := e.Search(query, candidates, 5, 0.7)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 above threshold", len(chunks))
	}
	if chunks[0].DocumentId != "doc-high" || chunks[1].DocumentId != "doc-mid" {
		t.Errorf("wrong order: %s, %s", chunks[0].DocumentId, chunks[1].DocumentId)
	}
	if scores[0] < scores[1] {
		t.Errorf("scores not descending: %v", scores)
	}
	if meta.CandidatesScanned != 3 {
		t.Errorf("CandidatesScanned = %d, want 3", meta.CandidatesScanned)
	}
}

func TestSearch_TopNTruncation(t *testing.T) {
	e := NewEngine()
	query := []float32{1, 0}

	var candidates []ragModel.DocumentChunk
	for i := 0; i < 10; i++ {
		candidates = append(candidates, chunk("doc", i, []float32{1, float32(i) * 0.01}))
	}

	chunks, _, _ := e.Search(query, candidates, 3, 0.5)
	if len(chunks) != 3 {
		t.Errorf("got %d chunks, want 3", len(chunks))
	}
}

func TestSearch_TieBreakIsDeterministic(t *testing.T) {
	e := NewEngine()
	query := []float32{1, 0}

	// all four score exactly 1.0
	candidates := []ragModel.DocumentChunk{
		chunk("doc-b", 2, []float32{2, 0}),
		chunk("doc-a", 2, []float32{3, 0}),
		chunk("doc-z", 1, []float32{1, 0}),
		chunk("doc-a", 5, []float32{4, 0}),
	}

	for run := 0; run < 5; run++ {
		chunks, _, _ := e.Search(query, candidates, 10, 0.9)
		if len(chunks) != 4 {
			t.Fatalf("got %d chunks, want 4", len(chunks))
		}
		got := []string{chunks[0].DocumentId, chunks[1].DocumentId, chunks[2].DocumentId, chunks[3].DocumentId}
		want := []string{"doc-z", "doc-a", "doc-b", "doc-a"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d: order %v, want %v", run, got, want)
			}
		}
	}
}

func TestSearch_SkipsMismatchedDimensions(t *testing.T) {
	e := NewEngine()
	query := []float32{1, 0, 0}

	candidates := []ragModel.DocumentChunk{
		chunk("doc-stale", 0, []float32{1, 0}), // old embedding model
		chunk("doc-ok", 1, []float32{1, 0, 0}),
	}

	chunks, _, meta := e.Search(query, candidates, 5, 0.5)

	if len(chunks) != 1 || chunks[0].DocumentId != "doc-ok" {
		t.Fatalf("expected only the matching-dimension chunk, got %v", chunks)
	}
	if meta.SkippedDimension != 1 {
		t.Errorf("SkippedDimension = %d, want 1", meta.SkippedDimension)
	}
}

func TestSearch_NoQualifyingChunks(t *testing.T) {
	e := NewEngine()
	query := []float32{1, 0}

	chunks, scores, _ := e.Search(query, []ragModel.DocumentChunk{chunk("doc", 0, []float32{0, 1})}, 5, 0.7)

	if len(chunks) != 0 || len(scores) != 0 {
		t.Errorf("expected empty result, got %d chunks", len(chunks))
	}
}
