package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/avarma/deptqa/internal/adapter"
	"github.com/avarma/deptqa/internal/adapter/utils"
	"github.com/avarma/deptqa/internal/api"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
)

// Query godoc
// @Summary      Answer a question from a department's documents
// @Description  Retrieves the most relevant indexed chunks for the department and synthesizes an answer citing them.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest   true  "Question and retrieval policy"
// @Success      200      {object}  api.QueryResponse  "Answer with sources"
// @Failure      400      {object}  api.ErrorResponse  "Invalid request data"
// @Failure      409      {object}  api.ErrorResponse  "Department not indexed"
// @Router       /query [post]
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context(), h.logger) {
		return
	}

	var requestData api.QueryRequest
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			h.logger.Error("Couldn't close the query request reader :", "error", err)
		}
	}(r.Body)

	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		h.logger.Warn("Bad query request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
		return
	}

	queryContext, errMsg := buildQueryContext(requestData)
	if errMsg != "" {
		h.logger.Warn("Invalid query parameters", "reason", errMsg)
		WriteErrorResponse(w, http.StatusBadRequest, errMsg)
		return
	}

	result, err := h.ragService.ProcessQuery(r.Context(), queryContext)
	if err != nil {
		WriteErrorResponse(w, adapter.StatusForError(err), err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(result))
}

// buildQueryContext applies defaults and bounds. Out-of-range values are the
// caller's mistake, not something to clamp silently.
func buildQueryContext(req api.QueryRequest) (ragModel.RAGContext, string) {
	if req.Query == "" {
		return ragModel.RAGContext{}, "query is required"
	}
	if req.DepartmentId == "" {
		return ragModel.RAGContext{}, "department_id is required"
	}

	queryContext := ragModel.RAGContext{
		Query:               req.Query,
		DepartmentId:        req.DepartmentId,
		MaxChunks:           config.DefaultMaxChunks,
		SimilarityThreshold: config.DefaultSimilarityCutoff,
		IncludeMetadata:     true,
		UseCache:            true,
	}
	if req.MaxChunks != nil {
		if *req.MaxChunks < 1 || *req.MaxChunks > config.MaxChunksUpperBound {
			return ragModel.RAGContext{}, "max_chunks must be between 1 and 20"
		}
		queryContext.MaxChunks = *req.MaxChunks
	}
	if req.SimilarityThreshold != nil {
		if *req.SimilarityThreshold < 0 || *req.SimilarityThreshold > 1 {
			return ragModel.RAGContext{}, "similarity_threshold must be between 0.0 and 1.0"
		}
		queryContext.SimilarityThreshold = *req.SimilarityThreshold
	}
	if req.IncludeMetadata != nil {
		queryContext.IncludeMetadata = *req.IncludeMetadata
	}
	if req.UseCache != nil {
		queryContext.UseCache = *req.UseCache
	}
	return queryContext, ""
}

// BatchQuery godoc
// @Summary      Answer several questions against one department
// @Description  Runs the query pipeline once per question; one question's failure does not abort the rest.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.BatchQueryRequest   true  "Questions and shared retrieval policy"
// @Success      200      {object}  api.BatchQueryResponse  "Per-question results with aggregate timing"
// @Failure      400      {object}  api.ErrorResponse       "Invalid request data"
// @Router       /query/batch [post]
func (h *Handler) BatchQuery(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context(), h.logger) {
		return
	}

	var requestData api.BatchQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if len(requestData.Queries) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "queries is required")
		return
	}
	if len(requestData.Queries) > config.MaxBatchQueries {
		WriteErrorResponse(w, http.StatusBadRequest, "too many queries in one batch")
		return
	}

	contexts := make([]ragModel.RAGContext, 0, len(requestData.Queries))
	for _, query := range requestData.Queries {
		queryContext, errMsg := buildQueryContext(api.QueryRequest{
			Query:               query,
			DepartmentId:        requestData.DepartmentId,
			MaxChunks:           requestData.MaxChunks,
			SimilarityThreshold: requestData.SimilarityThreshold,
		})
		if errMsg != "" {
			WriteErrorResponse(w, http.StatusBadRequest, errMsg)
			return
		}
		contexts = append(contexts, queryContext)
	}

	batch := h.ragService.ProcessBatch(r.Context(), contexts)
	writeJsonResponse(w, http.StatusOK, adapter.ToBatchResponse(batch))
}

// Health godoc
// @Summary      Report subsystem availability
// @Tags         Operations
// @Produce      json
// @Success      200  {object}  rag.HealthReport
// @Router       /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, h.ragService.Health(r.Context()))
}

// ReloadDepartment godoc
// @Summary      Rebuild a department's document index
// @Description  Replaces the department's chunk rows wholesale from pre-extracted documents and invalidates its cached results.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Department ID"
// @Param        request  body      api.ReloadDepartmentRequest  true  "Pre-extracted documents"
// @Success      200      {object}  api.ReloadDepartmentResponse
// @Failure      400      {object}  api.ErrorResponse  "Invalid request data"
// @Failure      500      {object}  api.ErrorResponse  "Ingestion failure"
// @Router       /departments/{id}/reload [post]
func (h *Handler) ReloadDepartment(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context(), h.logger) {
		return
	}

	departmentId := utils.GetChiURLParam(r, "id")
	if departmentId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "department id is required")
		return
	}

	var requestData api.ReloadDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if len(requestData.Documents) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "documents is required")
		return
	}

	docs := make([]ragModel.IngestDocument, 0, len(requestData.Documents))
	for _, doc := range requestData.Documents {
		docs = append(docs, ragModel.IngestDocument{
			DocumentId: doc.DocumentId,
			Name:       doc.Name,
			Pages:      doc.Pages,
		})
	}

	state, err := h.ingestService.ReloadDepartment(r.Context(), departmentId, docs)
	if err != nil {
		h.logger.Error("Department reload failed", "department", departmentId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Ingestion failed")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToReloadResponse(state))
}
