package adapter

import (
	"errors"
	"net/http"

	"github.com/avarma/deptqa/internal/api"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/rag"
)

func ToQueryResponse(result ragModel.RAGResult) api.QueryResponse {
	sources := make([]api.Source, 0, len(result.Sources))
	for _, s := range result.Sources {
		sources = append(sources, api.Source{
			FileReference:   s.FileReference,
			ChunkId:         s.ChunkId,
			SimilarityScore: s.SimilarityScore,
			Excerpt:         s.Excerpt,
			Page:            s.Page,
		})
	}
	return api.QueryResponse{
		Answer:           result.Answer,
		Sources:          sources,
		ChunksUsed:       result.ChunksUsed,
		SimilarityScores: result.SimilarityScores,
		TokensUsed:       result.TokensUsed,
		ProcessingTime:   result.ProcessingTime,
		ModelUsed:        result.ModelUsed,
		CacheHit:         result.CacheHit,
	}
}

func ToBatchResponse(batch rag.BatchResult) api.BatchQueryResponse {
	items := make([]api.BatchQueryItem, 0, len(batch.Items))
	for _, item := range batch.Items {
		if item.Err != nil {
			items = append(items, api.BatchQueryItem{
				Error: &api.ErrorBody{Code: StatusForError(item.Err), Message: item.Err.Error()},
			})
			continue
		}
		resp := ToQueryResponse(item.Result)
		items = append(items, api.BatchQueryItem{Result: &resp})
	}
	return api.BatchQueryResponse{
		Results:             items,
		TotalProcessingTime: batch.TotalTime,
		AvgProcessingTime:   batch.AverageTime,
	}
}

func ToReloadResponse(state ragModel.DepartmentIndexState) api.ReloadDepartmentResponse {
	return api.ReloadDepartmentResponse{
		DepartmentId:  state.DepartmentId,
		Initialized:   state.Initialized,
		DocumentCount: state.DocumentCount,
		ChunkCount:    state.ChunkCount,
		LastUpdated:   state.LastUpdated,
	}
}

// StatusForError maps the error taxonomy onto HTTP codes: a missing index is
// the caller's problem, everything else that leaks out is ours.
func StatusForError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ragModel.ErrDepartmentNotIndexed) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func BadRequest(message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Error: api.ErrorBody{Code: code, Message: message},
	}
}
