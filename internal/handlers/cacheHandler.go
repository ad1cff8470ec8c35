package handlers

import (
	"net/http"
	"time"

	"github.com/avarma/deptqa/internal/adapter/utils"
	"github.com/avarma/deptqa/internal/api"
	"github.com/avarma/deptqa/internal/cache"
)

// CacheStats godoc
// @Summary      Report typed cache statistics
// @Tags         Cache
// @Produce      json
// @Success      200  {object}  cache.Stats
// @Router       /cache/stats [get]
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, h.cache.Stats())
}

// CacheCleanup godoc
// @Summary      Remove expired cache entries
// @Tags         Cache
// @Produce      json
// @Success      200  {object}  api.CacheActionResponse
// @Router       /cache/cleanup [post]
func (h *Handler) CacheCleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.CleanupExpired()
	writeJsonResponse(w, http.StatusOK, api.CacheActionResponse{Removed: removed})
}

// CacheOptimize godoc
// @Summary      Clean expired entries and compact the cache
// @Tags         Cache
// @Produce      json
// @Success      200  {object}  cache.OptimizeReport
// @Router       /cache/optimize [post]
func (h *Handler) CacheOptimize(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, h.cache.Optimize())
}

// CacheClearType godoc
// @Summary      Clear all cache entries of one type
// @Tags         Cache
// @Produce      json
// @Param        type  path      string  true  "Entry type"  Enums(embedding, generation_response, retrieval_result, credential)
// @Success      200   {object}  api.CacheActionResponse
// @Failure      400   {object}  api.ErrorResponse  "Unknown entry type"
// @Router       /cache/{type} [delete]
func (h *Handler) CacheClearType(w http.ResponseWriter, r *http.Request) {
	requested := utils.GetChiURLParam(r, "type")

	var entryType cache.EntryType
	for _, known := range cache.EntryTypes() {
		if string(known) == requested {
			entryType = known
			break
		}
	}
	if entryType == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "unknown cache entry type: "+requested)
		return
	}

	removed := h.cache.ClearByType(entryType)
	writeJsonResponse(w, http.StatusOK, api.CacheActionResponse{Removed: removed, Type: requested})
}

// CacheClearAll godoc
// @Summary      Clear every cache entry
// @Description  Destructive; requires confirm=true.
// @Tags         Cache
// @Produce      json
// @Param        confirm  query     bool  true  "Must be true"
// @Success      200      {object}  api.CacheActionResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing confirmation"
// @Router       /cache [delete]
func (h *Handler) CacheClearAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		WriteErrorResponse(w, http.StatusBadRequest, "clearing the whole cache requires confirm=true")
		return
	}
	removed := h.cache.ClearAll()
	writeJsonResponse(w, http.StatusOK, api.CacheActionResponse{Removed: removed})
}

// StatsExport godoc
// @Summary      Export cache and query statistics as one timestamped snapshot
// @Tags         Cache
// @Produce      json
// @Success      200  {object}  api.StatsExport
// @Router       /cache/export [get]
func (h *Handler) StatsExport(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.StatsExport{
		Timestamp:  time.Now().UTC(),
		CacheStats: h.cache.Stats(),
		QueryStats: h.collector.Snapshot(),
	})
}
