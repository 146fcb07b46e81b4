// Package storage provides the durable key-value stores behind the staff session.
package storage

import (
	"context"
	"errors"
	"fmt"

	"colony-staff/internal/config"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("storage: store is closed")

// KV is a small durable string store. SetMany and Delete are all-or-nothing.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetMany(ctx context.Context, pairs map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open returns the store selected by cfg.Backend
func Open(ctx context.Context, cfg config.StoreConfig) (KV, error) {
	switch cfg.Backend {
	case config.StoreFile, "":
		return NewFileKV(cfg.FilePath)
	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.StoreRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisKV(client, cfg.Redis.KeyPrefix), nil
	case config.StoreMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
