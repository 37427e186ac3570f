package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chat-shell/internal/config"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendPebble   = "pebble"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Open construye el Store indicado por STORAGE_BACKEND. El pool solo se usa con postgres.
// La función devuelta libera los recursos propios del backend.
func Open(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "", BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("redis backend: REDIS_ADDR not set")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisStore(client, cfg.KVPrefix), client.Close, nil
	case BackendPostgres:
		if pool == nil {
			return nil, nil, fmt.Errorf("postgres backend: pool not configured")
		}
		return NewPgStore(pool), noop, nil
	case BackendPebble:
		store, err := OpenPebble(cfg.PebblePath, nil, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("pebble backend: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.StorageBackend)
	}
}
