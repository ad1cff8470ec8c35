// @title           Department Document QA API
// @version         1.0
// @description     This API answers questions over department-scoped document collections
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avarma/deptqa/internal/cache"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/data/store"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/handlers"
	"github.com/avarma/deptqa/internal/metrics"
	"github.com/avarma/deptqa/internal/rag"
	"github.com/avarma/deptqa/internal/rag/embedding/googleEmbedding"
	"github.com/avarma/deptqa/internal/rag/ingest"
	"github.com/avarma/deptqa/internal/rag/llm/gemini"
	"github.com/avarma/deptqa/internal/rag/llm/openaiLLM"
	"github.com/avarma/deptqa/internal/rag/search"
	"github.com/avarma/deptqa/internal/server"
	"github.com/avarma/deptqa/pkg/logger_i"
)

var listenAddr string

func main() {

	_ = godotenv.Load()

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//chunk store, falls back to in-memory when redis is offline
	var chunkStore ragModel.ChunkStore
	if redisChunks := store.GetRedisChunkStore(serviceContext); redisChunks != nil {
		chunkStore = redisChunks
	} else {
		logger.Error("Redis chunk store is offline, using in-memory store")
		chunkStore = store.InitInMemoryChunkStore()
	}

	typedCache := cache.New()
	engine := search.NewEngine()
	collector := metrics.NewCollector()

	embedder, err := googleEmbedding.NewGoogleEmbedder(serviceContext, config.GoogleEmbeddingModel, config.GoogleAPIKey)
	if err != nil {
		logger.Error("Embedding client failed to initialize. Shutting down.", "error", err.Error())
		return
	}

	geminiProvider, err := gemini.NewGeminiProvider(serviceContext, config.GoogleAPIKey, config.GeminiModelName)
	if err != nil {
		logger.Error("Gemini client failed to initialize. Shutting down.", "error", err.Error())
		return
	}

	strategies := []rag.GenerationStrategy{
		rag.NewProviderStrategy("gemini", geminiProvider),
	}
	if config.OpenAIAPIKey != "" {
		strategies = append(strategies,
			rag.NewProviderStrategy("openai", openaiLLM.NewOpenAIProvider(config.OpenAIAPIKey, config.OpenAIModelName)))
	} else {
		logger.Warn("OPENAI_API_KEY not set, running without fallback provider")
	}
	strategies = append(strategies, rag.NewStaticStrategy(config.DegradedServiceAnswer, config.GeminiModelName))

	ragService := rag.NewService(rag.ServiceConfig{
		ChunkStore: chunkStore,
		Embedder:   embedder,
		Strategies: strategies,
		Cache:      typedCache,
		Engine:     engine,
		Collector:  collector,
	})
	ingestService := ingest.NewService(chunkStore, embedder, typedCache)

	h := handlers.NewHandler(ragService, ingestService, typedCache, collector)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, h)

	<-stopExecution
	logger.Info("Server stopped")
}
