package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/examprep/internal/logger"
	"github.com/abhisek/examprep/internal/model"
)

const keyPrefix = "examprep:gaps:"

// Redis is a GapCache backed by a Redis server.
type Redis struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// RedisConfig configures NewRedis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig, log *logger.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	if log == nil {
		log = logger.Nop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{
		log: log.With("service", "GapCache"),
		rdb: rdb,
		ttl: cfg.TTL,
	}, nil
}

func key(userID string) string {
	return keyPrefix + userID
}

func (r *Redis) Get(ctx context.Context, userID string) ([]model.KnowledgeGap, bool, error) {
	raw, err := r.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	gaps, err := decode(raw)
	if err != nil {
		r.log.Warn("dropping unreadable cached gaps", "user_id", userID, "error", err)
		_ = r.rdb.Del(ctx, key(userID)).Err()
		return nil, false, nil
	}
	return gaps, true, nil
}

func (r *Redis) Set(ctx context.Context, userID string, gaps []model.KnowledgeGap) error {
	raw, err := json.Marshal(gaps)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func decode(raw []byte) ([]model.KnowledgeGap, error) {
	var gaps []model.KnowledgeGap
	if err := json.Unmarshal(raw, &gaps); err != nil {
		return nil, err
	}
	return gaps, nil
}
