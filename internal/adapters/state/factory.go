package state

import (
	"context"
	"time"

	"github.com/uxray-ai/uxray/internal/config"
	"github.com/uxray-ai/uxray/internal/core"
)

// NewStore creates the configured state backend. Backend names are
// validated at config load; an unknown name here is a programming error
// surfaced as a config error.
func NewStore(ctx context.Context, cfg config.StateConfig) (core.Store, error) {
	switch cfg.Backend {
	case "json":
		return NewJSONStore(cfg.Path)
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, checkpointTTL(cfg))
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres)
	default:
		return nil, core.ErrConfig(core.CodeInvalidConfig, "unknown state backend "+cfg.Backend)
	}
}

// CloseStore safely closes a store if it holds resources.
func CloseStore(store core.Store) error {
	if closeable, ok := store.(core.Closeable); ok {
		return closeable.Close()
	}
	return nil
}

func checkpointTTL(cfg config.StateConfig) time.Duration {
	d, err := time.ParseDuration(cfg.CheckpointTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
