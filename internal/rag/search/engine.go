package search

import (
	"math"
	"sort"

	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/pkg/logger_i"
)

// Engine ranks a department's chunks against a query vector by cosine
// similarity. It is stateless; candidates come from the chunk store.
type Engine struct {
	logger *logger_i.Logger
}

func NewEngine() *Engine {
	return &Engine{logger: logger_i.NewLogger("SimilaritySearch")}
}

type Metadata struct {
	CandidatesScanned int `json:"candidates_scanned"`
	SkippedDimension  int `json:"skipped_dimension"`
}

// Search returns up to topN chunks scoring at or above threshold, co-indexed
// with their scores, best first. Chunks below threshold are excluded even if
// fewer than topN remain; zero qualifying chunks is an empty result, not an
// error. Equal scores order by ascending chunk index, then document id, so
// identical inputs always produce identical output.
func (e *Engine) Search(queryVector []float32, candidates []ragModel.DocumentChunk, topN int, threshold float64) ([]ragModel.DocumentChunk, []float64, Metadata) {
	meta := Metadata{CandidatesScanned: len(candidates)}

	type scored struct {
		chunk ragModel.DocumentChunk
		score float64
	}
	qualified := make([]scored, 0, len(candidates))

	for _, chunk := range candidates {
		if len(chunk.Embedding) != len(queryVector) {
			// Stale row from a previous embedding-model generation.
			e.logger.Warn("Skipping chunk with mismatched embedding dimension",
				"chunk_id", chunk.ChunkId, "got", len(chunk.Embedding), "want", len(queryVector))
			meta.SkippedDimension++
			continue
		}
		score := cosineSimilarity(queryVector, chunk.Embedding)
		if score >= threshold {
			qualified = append(qualified, scored{chunk: chunk, score: score})
		}
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		a, b := qualified[i], qualified[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.chunk.ChunkIndex != b.chunk.ChunkIndex {
			return a.chunk.ChunkIndex < b.chunk.ChunkIndex
		}
		return a.chunk.DocumentId < b.chunk.DocumentId
	})

	if topN > 0 && len(qualified) > topN {
		qualified = qualified[:topN]
	}

	chunks := make([]ragModel.DocumentChunk, len(qualified))
	scores := make([]float64, len(qualified))
	for i, q := range qualified {
		chunks[i] = q.chunk
		scores[i] = q.score
	}
	return chunks, scores, meta
}

// cosineSimilarity is the dot product normalized by both magnitudes.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
