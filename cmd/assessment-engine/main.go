package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClaireAgaba/informal-system-sub000/internal/api"
	"github.com/ClaireAgaba/informal-system-sub000/internal/bulk"
	"github.com/ClaireAgaba/informal-system-sub000/internal/catalog"
	"github.com/ClaireAgaba/informal-system-sub000/internal/config"
	"github.com/ClaireAgaba/informal-system-sub000/internal/health"
	"github.com/ClaireAgaba/informal-system-sub000/internal/refresh"
	"github.com/ClaireAgaba/informal-system-sub000/internal/registration"
	"github.com/ClaireAgaba/informal-system-sub000/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting assessment-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, storage.MigrationSource(cfg.Database.MigrationsDir)); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	checks := health.NewRegistry(2 * time.Second)
	checks.Register("database", health.Ping(repo))

	var confirmations bulk.ConfirmationStore
	if cfg.Redis.Disabled {
		slog.Warn("redis disabled, bulk confirmations are kept in memory")
		confirmations = bulk.NewMemoryStore()
	} else {
		redisStore, err := bulk.NewRedisStore(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "address", cfg.Redis.Address, "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		checks.Register("redis", health.Ping(redisStore))
		confirmations = redisStore
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var source catalog.Source
	if cfg.Catalog.RemoteURL != "" {
		slog.Info("using remote catalog", "url", cfg.Catalog.RemoteURL)
		source = catalog.NewRemoteSource(cfg.Catalog.RemoteURL, catalog.WithToken(cfg.Catalog.RemoteToken))
	} else {
		loader := catalog.NewLoader()
		if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
			slog.Error("failed to load catalog", "dir", cfg.Catalog.Dir, "error", err)
			os.Exit(1)
		}
		refresh.NewRefresher(loader, cfg.Catalog.RefreshInterval).Start(ctx)
		source = loader
	}
	checks.Register("catalog", health.CheckerFunc(func(ctx context.Context) error {
		occupations, err := source.ListOccupations(ctx)
		if err != nil {
			return err
		}
		if len(occupations) == 0 {
			return fmt.Errorf("catalog has no occupations")
		}
		return nil
	}))

	service := registration.NewRegistrar(repo, source, confirmations, registration.Options{
		ConfirmationTTL: cfg.Bulk.ConfirmationTTL,
		DefaultPageSize: cfg.Bulk.DefaultPageSize,
		MaxPageSize:     cfg.Bulk.MaxPageSize,
	})

	server := api.NewServer(cfg.Server, service, repo, checks)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: compose sessions are long-lived websockets and
		// marksheet exports can be large. Routes carry their own timeout.
	}

	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := service.Close(); err != nil {
		slog.Error("service close error", "error", err)
	}

	slog.Info("assessment-engine stopped")
}
