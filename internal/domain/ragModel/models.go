package ragModel

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// DocumentChunk is one durable row of a department's index.
// Rows are written wholesale by ingestion and read-only everywhere else.
type DocumentChunk struct {
	ChunkId      string     `json:"chunk_id"`
	DocumentId   string     `json:"document_id"`
	DepartmentId string     `json:"department_id"`
	ChunkIndex   int        `json:"chunk_index"`
	Text         string     `json:"text"`
	Embedding    []float32  `json:"embedding"`
	Images       []ImageRef `json:"images,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ImageRef struct {
	Reference      string  `json:"reference"`
	RelevanceScore float64 `json:"relevance_score"`
}

// DepartmentIndexState is the one-per-department index row.
// Initialized=true implies ChunkCount matches the stored DocumentChunk rows.
type DepartmentIndexState struct {
	DepartmentId  string    `json:"department_id"`
	Initialized   bool      `json:"initialized"`
	DocumentCount int       `json:"document_count"`
	ChunkCount    int       `json:"chunk_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

// RAGContext carries everything one query run needs. Immutable once built.
type RAGContext struct {
	Query               string
	DepartmentId        string
	MaxChunks           int
	SimilarityThreshold float64
	IncludeMetadata     bool
	UseCache            bool
}

// CacheKey is deterministic over the fields that change the answer content.
// IncludeMetadata and UseCache deliberately do not participate.
// The department id doubles as a clearable key prefix.
func (c RAGContext) CacheKey() string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%.4f", c.NormalizedQuery(), c.MaxChunks, c.SimilarityThreshold))
	return fmt.Sprintf("dept:%s:%x", c.DepartmentId, h)
}

func (c RAGContext) NormalizedQuery() string {
	return strings.ToLower(strings.Join(strings.Fields(c.Query), " "))
}

// DepartmentKeyPrefix is the cache-key prefix shared by every entry derived
// from one department's index.
func DepartmentKeyPrefix(departmentId string) string {
	return "dept:" + departmentId + ":"
}

// EmbeddingCacheKey is department independent: the same text embeds the same
// regardless of which index it is searched against.
func EmbeddingCacheKey(normalizedText string, model string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s", model, normalizedText))
	return fmt.Sprintf("emb:%s:%x", model, h)
}

type Source struct {
	FileReference   string  `json:"file_reference"`
	ChunkId         string  `json:"chunk_id"`
	SimilarityScore float64 `json:"similarity_score"`
	Excerpt         string  `json:"excerpt"`
	Page            int     `json:"page,omitempty"`
}

// RAGResult is produced once per query and never mutated afterwards.
type RAGResult struct {
	Answer           string    `json:"answer"`
	Sources          []Source  `json:"sources"`
	ChunksUsed       []string  `json:"chunks_used"`
	SimilarityScores []float64 `json:"similarity_scores"`
	TokensUsed       int       `json:"tokens_used"`
	ProcessingTime   float64   `json:"processing_time"`
	ModelUsed        string    `json:"model_used"`
	CacheHit         bool      `json:"cache_hit"`

	// Success stays internal: a degraded answer is still a normal response
	// to the caller, only metrics see the difference.
	Success bool `json:"-"`
}

// IngestDocument is a pre-extracted document handed to ingestion.
// Format parsing happens upstream of this service.
type IngestDocument struct {
	DocumentId string   `json:"document_id"`
	Name       string   `json:"name"`
	Pages      []string `json:"pages"`
}
