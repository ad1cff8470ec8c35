package redisStore

import (
	"context"
	"os"
	"time"

	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	Type   int
	logger *logger_i.Logger
}

// NewStore dials one Redis logical DB. Returns nil when Redis is offline so
// the caller can fall back to the in-memory store.
func NewStore(ctx context.Context, dbType int) *Store {
	logger := logger_i.NewLogger("Redis Store")

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = config.RedisAddr
	}
	newClient := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              config.RedisPassword,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis is offline: ", "error", err.Error())
		return nil
	}

	logger.Info("Redis store connected", "db", dbType)
	store := &Store{client: newClient, Type: dbType, logger: logger}
	go store.closeOnDone(ctx)
	return store
}

func (s *Store) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	s.logger.Info("Closing Redis store", "db", s.Type)
	if err := s.client.Close(); err != nil {
		s.logger.Error("Error closing redis client", "error", err)
	}
}

// Only in a _test.go file or behind a build tag
func NewTestStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		logger: logger_i.NewLogger("Redis Store test"),
	}
}
