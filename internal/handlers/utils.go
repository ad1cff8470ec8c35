package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/avarma/deptqa/internal/adapter"
	"github.com/avarma/deptqa/internal/cache"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/metrics"
	"github.com/avarma/deptqa/internal/rag"
	"github.com/avarma/deptqa/internal/rag/ingest"
	"github.com/avarma/deptqa/pkg/logger_i"
)

// Handler carries the explicitly constructed services; there is no package
// state to initialize and nothing global to reach for.
type Handler struct {
	ragService    rag.Service
	ingestService *ingest.Service
	cache         *cache.TypedCache
	collector     *metrics.Collector
	logger        *logger_i.Logger
}

func NewHandler(ragService rag.Service, ingestService *ingest.Service, typedCache *cache.TypedCache, collector *metrics.Collector) *Handler {
	return &Handler{
		ragService:    ragService,
		ingestService: ingestService,
		cache:         typedCache,
		collector:     collector,
		logger:        logger_i.NewLogger("Handlers"),
	}
}

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logger_i.NewLogger("Handlers").Error("Error encoding response", "error", err)
	}
}

func validateContext(ctx context.Context, log *logger_i.Logger) bool {
	if ctx.Err() != nil {
		log.Warn("context error", "error", ctx.Err(), "traceId", ctx.Value(config.TRACE_ID_KEY))
		return false
	}

	select {
	case <-ctx.Done():
		log.Warn("context cancelled")
		return false
	default:
		return true
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(message, httpCode))
}
