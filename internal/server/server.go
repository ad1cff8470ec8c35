package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/avarma/deptqa/internal/adapter/utils"
	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/handlers"
	"github.com/avarma/deptqa/internal/middleware"
	"github.com/avarma/deptqa/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string, h *handlers.Handler) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Post("/query", middleware.Wrap(h.Query))
	r.Router.Post("/query/batch", middleware.Wrap(h.BatchQuery))
	r.Router.Get("/health", middleware.Wrap(h.Health))
	r.Router.Post("/departments/{id}/reload", middleware.Wrap(h.ReloadDepartment))
	r.Router.Get("/cache/stats", middleware.Wrap(h.CacheStats))
	r.Router.Post("/cache/cleanup", middleware.Wrap(h.CacheCleanup))
	r.Router.Post("/cache/optimize", middleware.Wrap(h.CacheOptimize))
	r.Router.Delete("/cache/{type}", middleware.Wrap(h.CacheClearType))
	r.Router.Delete("/cache", middleware.Wrap(h.CacheClearAll))
	r.Router.Get("/cache/export", middleware.Wrap(h.StatsExport))

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	println("\nServer is shutting down", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully: %s", err)
		}

		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
