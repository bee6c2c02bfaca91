package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/api"
	"github.com/sqlpeek/sqlpeek/internal/config"
	"github.com/sqlpeek/sqlpeek/internal/connections"
	"github.com/sqlpeek/sqlpeek/internal/gateway"
	"github.com/sqlpeek/sqlpeek/internal/observability"
	"github.com/sqlpeek/sqlpeek/internal/query"
	duckdbengine "github.com/sqlpeek/sqlpeek/internal/query/duckdb"
	"github.com/sqlpeek/sqlpeek/internal/query/mysql"
	"github.com/sqlpeek/sqlpeek/internal/query/oracle"
	"github.com/sqlpeek/sqlpeek/internal/query/postgres"
	"github.com/sqlpeek/sqlpeek/internal/query/sqlite"
	"github.com/sqlpeek/sqlpeek/internal/query/sqlserver"
	"github.com/sqlpeek/sqlpeek/internal/storage"
	s3store "github.com/sqlpeek/sqlpeek/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlpeek-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	queries := gateway.New(engineAdapters(cfg), gateway.Options{QueryTimeout: cfg.Query.Timeout, Logger: logger})

	savedConnections, err := connections.Open(cfg.Connections.Path)
	if err != nil {
		logger.Error("failed to open saved connections", slog.String("path", cfg.Connections.Path), slog.Any("error", err))
		os.Exit(1)
	}

	var exports storage.ObjectStore
	if cfg.Export.ObjectStoreEnabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		exports = objectStore
	}

	deps := api.Dependencies{
		Logger:      logger,
		Queries:     queries,
		Connections: savedConnections,
		Exports:     exports,
		Readiness: api.CombineReadinessChecks(
			api.CheckConnectionsStore(savedConnections),
			api.CheckObjectStore(cfg, exports),
		),
		DependencyTimeout: 2 * time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.Any("engines", queries.Kinds()),
			slog.Bool("local_engines", cfg.LocalEngines.Enabled),
			slog.Bool("object_store_exports", exports != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// engineAdapters lists the server engines. DuckDB and SQLite run in process,
// so they are registered only when enabled.
func engineAdapters(cfg config.Config) []query.Adapter {
	adapters := []query.Adapter{
		mysql.New(),
		postgres.New(),
		sqlserver.New(),
		oracle.New(),
	}
	if cfg.LocalEngines.Enabled {
		adapters = append(adapters,
			duckdbengine.NewEngine(cfg.LocalEngines.DataDir),
			sqlite.New(cfg.LocalEngines.DataDir),
		)
	}
	return adapters
}
