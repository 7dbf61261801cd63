package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

// BackendConfig selects and configures a persistence backend.
type BackendConfig struct {
	// Backend is one of "sqlite", "redis" or "memory".
	Backend string

	// Dir holds the SQLite database file.
	Dir string

	// RedisAddr and RedisPrefix configure the Redis backend.
	RedisAddr   string
	RedisPrefix string
}

// DatabaseFile is the SQLite file name inside BackendConfig.Dir.
const DatabaseFile = "answer_cache.db"

// BackupFile is the snapshot file name used next to the database.
const BackupFile = "answer_cache_backup.json"

// OpenBackend builds the backend named in cfg.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryBackend(), nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		b := NewRedisBackend(client, RedisConfig{Prefix: cfg.RedisPrefix})
		if err := b.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return b, nil

	case "sqlite", "":
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		return NewSQLiteBackend(filepath.Join(cfg.Dir, DatabaseFile))

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
