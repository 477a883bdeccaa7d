package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/cache"
	"github.com/abhisek/examprep/internal/config"
	"github.com/abhisek/examprep/internal/engine"
	"github.com/abhisek/examprep/internal/logger"
	"github.com/abhisek/examprep/internal/store"
)

// app is the wired engine for one command invocation.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.Store
	repo  store.Repository
	cache cache.GapCache
	svc   *engine.Service
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	log.Debug("database opened", "path", dbPath)

	repo := store.NewResilientRepository(st, store.ResilientConfig{
		MaxAttempts:  cfg.Resilience.MaxAttempts,
		InitialDelay: cfg.Resilience.InitialDelay,
		MaxDelay:     cfg.Resilience.MaxDelay,
		TripAfter:    cfg.Resilience.TripAfter,
		OpenFor:      cfg.Resilience.OpenFor,
		Logger:       log,
	})

	gapCache := openCache(cmd.Context(), cfg, log)

	ecfg := engine.ConfigFrom(cfg)
	ecfg.Cache = gapCache
	ecfg.Logger = log

	return &app{
		cfg:   cfg,
		log:   log,
		store: st,
		repo:  repo,
		cache: gapCache,
		svc:   engine.NewService(repo, ecfg),
	}, nil
}

// openCache prefers Redis when configured and falls back to memory.
func openCache(ctx context.Context, cfg *config.Config, log *logger.Logger) cache.GapCache {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemory(cfg.Cache.TTL)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rc, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		TTL:      cfg.Cache.TTL,
	}, log)
	if err != nil {
		log.Warn("redis unavailable, using in-memory gap cache", "addr", cfg.Cache.RedisAddr, "error", err)
		return cache.NewMemory(cfg.Cache.TTL)
	}
	return rc
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Warn("close cache", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close database", "error", err)
	}
	a.log.Sync()
}
