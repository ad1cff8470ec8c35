package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	NoAuthBypass = false

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//TODO:this will differ based on the request and provider
	EmbeddingOutputDimensionality int32 = 1536

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//query defaults and bounds
	DefaultMaxChunks          = 5
	MaxChunksUpperBound       = 20
	DefaultSimilarityCutoff   = 0.7
	QueryTimeout              = 60 * time.Second
	NoContextAnswer           = "No relevant information was found in this department's documents for your question."
	DegradedServiceAnswer     = "The answer service is temporarily unavailable. Retrieved context could not be summarized; please try again shortly."
	BatchQueryConcurrencyCap  = 8
	MaxBatchQueries           = 50

	//provider retry policy - transient failures only
	//ProviderMaxAttempts*ProviderCallTimeout+ProviderRetryBackoff must stay under QueryTimeout
	ProviderMaxAttempts    = 2
	ProviderRetryBackoff   = 2 * time.Second
	ProviderCallTimeout    = 25 * time.Second
	EmbeddingCallTimeout   = 15 * time.Second

	//llm
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIModelName      = "gpt-4o-mini"

	ModelTemperature float32 = 0.7
	ModelContext             = "You are a helpful assistant answering questions about internal department documents. Answer only from the provided context. If the context does not contain the answer, say you don't know."

	//typed cache
	CacheMaxSizeBytes int64 = 100 << 20 //100mb
	CacheShardCount         = 16

	CacheTTLEmbedding          = 24 * time.Hour
	CacheTTLGenerationResponse = 1 * time.Hour
	CacheTTLRetrievalResult    = 30 * time.Minute
	CacheTTLCredential         = 15 * time.Minute

	//http connection pooling for outbound provider calls
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisChunkStore = 0

	//redis timeouts
	RedisRowTTL = 0 * time.Second //chunk rows are durable, expiry is owned by ingestion
)

var (
	AuthToken     = os.Getenv("DEPTQA_AUTH_TOKEN")
	RedisPassword = os.Getenv("REDIS_PASSWORD")

	GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
)
