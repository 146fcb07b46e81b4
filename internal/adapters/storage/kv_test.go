package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"colony-staff/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileKV(filepath.Join(dir, "nested", "session.json"))
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(dir, "session.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")

	stores := map[string]KV{
		"memory": NewMemoryKV(),
		"file":   file,
		"sqlite": sqlite,
		"redis":  rdb,
	}
	t.Cleanup(func() {
		for _, kv := range stores {
			_ = kv.Close()
		}
	})
	return stores
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := kv.Get(ctx, "token"); err != nil || ok {
				t.Fatalf("empty store: ok=%v err=%v", ok, err)
			}

			err := kv.SetMany(ctx, map[string]string{"token": "abc", "isLoggedIn": "true"})
			if err != nil {
				t.Fatalf("SetMany: %v", err)
			}
			for key, want := range map[string]string{"token": "abc", "isLoggedIn": "true"} {
				got, ok, err := kv.Get(ctx, key)
				if err != nil || !ok || got != want {
					t.Fatalf("Get(%s) = %q, %v, %v; want %q", key, got, ok, err, want)
				}
			}

			if err := kv.SetMany(ctx, map[string]string{"token": "def"}); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if got, _, _ := kv.Get(ctx, "token"); got != "def" {
				t.Fatalf("overwrite not applied: %q", got)
			}

			if err := kv.Delete(ctx, "token", "isLoggedIn", "missing"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			for _, key := range []string{"token", "isLoggedIn"} {
				if _, ok, _ := kv.Get(ctx, key); ok {
					t.Fatalf("%s survived delete", key)
				}
			}
		})
	}
}

func TestFileKVPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.SetMany(ctx, map[string]string{"token": "abc"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	second, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, ok, err := second.Get(ctx, "token"); err != nil || !ok || got != "abc" {
		t.Fatalf("reopened Get = %q, %v, %v", got, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}
}

func TestFileKVCorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	kv, err := NewFileKV(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := kv.Get(context.Background(), "token"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRedisKVUsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "till-1:")
	defer kv.Close()

	if err := kv.SetMany(context.Background(), map[string]string{"token": "abc"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	if got, err := mr.Get("till-1:token"); err != nil || got != "abc" {
		t.Fatalf("expected prefixed key, got %q %v", got, err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cases := []config.StoreConfig{
		{Backend: config.StoreMemory},
		{Backend: config.StoreFile, FilePath: filepath.Join(dir, "s.json")},
		{Backend: config.StoreSQLite, SQLitePath: filepath.Join(dir, "s.db")},
		{Backend: config.StoreRedis, Redis: config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "x:"}},
	}
	for _, cfg := range cases {
		kv, err := Open(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Open(%s): %v", cfg.Backend, err)
		}
		_ = kv.Close()
	}

	if _, err := Open(context.Background(), config.StoreConfig{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestClosedMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	_ = kv.Close()
	if err := kv.SetMany(context.Background(), map[string]string{"a": "b"}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
