package api

import "time"

// requests---------------------

type QueryRequest struct {
	Query               string   `json:"query" validate:"required" example:"What is the travel reimbursement limit?"`
	DepartmentId        string   `json:"department_id" example:"finance"`
	MaxChunks           *int     `json:"max_chunks,omitempty" example:"5"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" example:"0.7"`
	IncludeMetadata     *bool    `json:"include_metadata,omitempty" example:"true"`
	UseCache            *bool    `json:"use_cache,omitempty" example:"true"`
}

type BatchQueryRequest struct {
	Queries             []string `json:"queries" validate:"required"`
	DepartmentId        string   `json:"department_id"`
	MaxChunks           *int     `json:"max_chunks,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

type ReloadDepartmentRequest struct {
	Documents []IngestDocument `json:"documents" validate:"required"`
}

type IngestDocument struct {
	DocumentId string   `json:"document_id"`
	Name       string   `json:"name"`
	Pages      []string `json:"pages"`
}

// responses--------------------

type Source struct {
	FileReference   string  `json:"file_reference"`
	ChunkId         string  `json:"chunk_id"`
	SimilarityScore float64 `json:"similarity_score"`
	Excerpt         string  `json:"excerpt"`
	Page            int     `json:"page,omitempty"`
}

type QueryResponse struct {
	Answer           string    `json:"answer"`
	Sources          []Source  `json:"sources"`
	ChunksUsed       []string  `json:"chunks_used"`
	SimilarityScores []float64 `json:"similarity_scores"`
	TokensUsed       int       `json:"tokens_used"`
	ProcessingTime   float64   `json:"processing_time"`
	ModelUsed        string    `json:"model_used"`
	CacheHit         bool      `json:"cache_hit"`
}

type BatchQueryItem struct {
	Result *QueryResponse `json:"result,omitempty"`
	Error  *ErrorBody     `json:"error,omitempty"`
}

type BatchQueryResponse struct {
	Results             []BatchQueryItem `json:"results"`
	TotalProcessingTime float64          `json:"total_processing_time"`
	AvgProcessingTime   float64          `json:"avg_processing_time"`
}

type ReloadDepartmentResponse struct {
	DepartmentId  string    `json:"department_id"`
	Initialized   bool      `json:"initialized"`
	DocumentCount int       `json:"document_count"`
	ChunkCount    int       `json:"chunk_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

type CacheActionResponse struct {
	Removed int    `json:"removed"`
	Type    string `json:"type,omitempty"`
}

type StatsExport struct {
	Timestamp  time.Time `json:"timestamp"`
	CacheStats any       `json:"cache_stats"`
	QueryStats any       `json:"query_stats"`
}

type ErrorBody struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"department is not indexed"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
