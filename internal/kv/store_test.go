package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chat-shell/internal/config"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "conversations", `[["1",[]]]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "conversations", `[["2",[]]]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Get(ctx, "conversations")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `[["2",[]]]` {
		t.Fatalf("expected overwritten value, got %q", got)
	}
	if err := store.Remove(ctx, "conversations"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, "conversations"); err != nil {
		t.Fatalf("remove of missing key should be no-op, got %v", err)
	}
	if _, err := store.Get(ctx, "conversations"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestPebbleStore(t *testing.T) {
	store, err := OpenPebble("kv", &pebble.Options{FS: vfs.NewMem()}, zap.NewNop())
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

type mockRedisKVClient struct {
	items  map[string]string
	getErr error
}

func (m *mockRedisKVClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.items[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.items[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.items, k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func TestRedisStore_Prefix(t *testing.T) {
	mock := &mockRedisKVClient{items: map[string]string{}}
	store := &RedisStore{client: mock, prefix: "chatshell:"}
	exerciseStore(t, store)

	if err := store.Set(context.Background(), "github_token", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if mock.items["chatshell:github_token"] != "tok" {
		t.Fatalf("expected prefixed key, got %+v", mock.items)
	}
}

func TestRedisStore_WrapsErrors(t *testing.T) {
	mock := &mockRedisKVClient{items: map[string]string{}, getErr: errors.New("redis down")}
	store := &RedisStore{client: mock, prefix: ""}
	_, err := store.Get(context.Background(), "k")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestOpen_MemoryAndUnknown(t *testing.T) {
	store, closeFn, err := Open(context.Background(), &config.Config{StorageBackend: "memory"}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, _, err = Open(context.Background(), &config.Config{StorageBackend: "etcd"}, nil, zap.NewNop())
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}

	_, _, err = Open(context.Background(), &config.Config{StorageBackend: "postgres"}, nil, zap.NewNop())
	if err == nil {
		t.Fatalf("expected error without pool")
	}
}
