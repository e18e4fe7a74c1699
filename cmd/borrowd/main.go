package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rmax-ai/borrowd/pkg/api"
	"github.com/rmax-ai/borrowd/pkg/graph"
	"github.com/rmax-ai/borrowd/pkg/logging"
	"github.com/rmax-ai/borrowd/pkg/seed"
	"github.com/rmax-ai/borrowd/pkg/store"
	"github.com/rmax-ai/borrowd/pkg/store/redis"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "borrowd: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "borrowd: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg Config, logger *zap.Logger) error {
	logger.Info("system_started", zap.String("component", "borrowd"))

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed_to_close_store", zap.Error(err))
		} else {
			logger.Info("store_closed")
		}
	}()
	logger.Info("store_initialized", zap.String("path", cfg.DBPath))

	people := graph.NewPersonStore()
	proj := graph.NewProjection(people)

	if cfg.SeedPath != "" {
		fixture, err := seed.ParseFile(cfg.SeedPath)
		if err != nil {
			return err
		}
		summary, err := seed.Apply(context.Background(), fixture, proj, st,
			store.EventSource{OriginKind: "seed", OriginID: cfg.SeedPath})
		if err != nil {
			return fmt.Errorf("load seed %s: %w", cfg.SeedPath, err)
		}
		logger.Info("seed_loaded",
			zap.String("path", cfg.SeedPath),
			zap.Int("people", summary.People),
			zap.Int("friendships", summary.Friendships),
			zap.Int("possessions", summary.Possessions),
		)
	}

	finder := graph.NewPathFinder(people, graph.WithMaxVisited(cfg.MaxVisited))
	srv := api.NewServer(proj, finder, st, logger, cfg.Addr)

	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Warn("path_cache_unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			srv.SetPathCache(redis.NewPathCache(rdb, cfg.CacheTTL))
			logger.Info("path_cache_enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("shutdown_initiated", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("failed_to_stop_server", zap.Error(err))
	}

	logger.Info("shutdown_complete")
	return nil
}
