package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gyaneshwarpardhi/reciperunner/internal/api"
	"github.com/gyaneshwarpardhi/reciperunner/internal/block"
	"github.com/gyaneshwarpardhi/reciperunner/internal/block/core"
	"github.com/gyaneshwarpardhi/reciperunner/internal/config"
	"github.com/gyaneshwarpardhi/reciperunner/internal/engine"
	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
	"github.com/gyaneshwarpardhi/reciperunner/internal/recipe"
	"github.com/gyaneshwarpardhi/reciperunner/internal/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/server.yaml", "Path to server YAML config (optional)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Recipes ──────────────────────────────────────────────────────────────
	loader, err := recipe.NewLoader(cfg.Recipes.Dir)
	if err != nil {
		slog.Error("failed to load recipes", "dir", cfg.Recipes.Dir, "err", err)
		os.Exit(1)
	}
	slog.Info("recipes loaded", "dir", cfg.Recipes.Dir, "count", len(loader.List()))

	// ── Blocks ───────────────────────────────────────────────────────────────
	blocks := block.NewRegistry()
	core.RegisterAll(blocks)

	// ── Job history ──────────────────────────────────────────────────────────
	history, err := openStore(cfg.Store)
	if err != nil {
		slog.Error("failed to open job store", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer history.Close()

	// ── Engine ───────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := event.NewCompositeNotifier(event.NewLoggingNotifier(logger))
	eng := engine.New(ctx, blocks, loader, history, notifier, cfg.Engine)

	// ── Hot-reload watcher ───────────────────────────────────────────────────
	if cfg.Recipes.WatchEnabled() {
		loader.OnChange(func(recipes map[string]*recipe.Recipe) {
			slog.Info("recipes hot-reloaded", "count", len(recipes))
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("recipe watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	waitTimeout := time.Duration(cfg.Engine.WaitTimeoutMs) * time.Millisecond
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.New(eng, loader, blocks, waitTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: waitTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	if err := eng.Shutdown(shutCtx); err != nil {
		slog.Warn("jobs still running at shutdown", "err", err)
	}
	cancel() // abort whatever node is still executing
	slog.Info("goodbye")
}

// loadConfig reads path, or falls back to defaults when the file does not exist.
func loadConfig(path string) (*config.ServerConfig, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found, using defaults", "path", path)
		return config.Default(), nil
	}
	return cfg, err
}

func openStore(conf config.StoreConf) (store.JobStore, error) {
	switch conf.Driver {
	case "memory":
		return store.NewMemoryJobStore(), nil
	case "sqlite":
		return store.OpenSQLiteJobStore(conf.SQLitePath)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: conf.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", conf.RedisAddr, err)
		}
		return store.NewRedisJobStore(client, conf.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", conf.Driver)
	}
}
