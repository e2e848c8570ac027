package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/config"
)

// Open builds the configured entry store. The returned close func releases
// backend connections and is never nil.
func Open(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (EntryStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "none":
		return NopStore{}, noop, nil
	case "", "file":
		return NewFileStore(cfg.File.Dir), noop, nil
	case "redis":
		client, err := ConnRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("redis cache: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.Prefix, cfg.Redis.TTL), client.Close, nil
	case "postgres":
		pctx := ctx
		if cfg.Postgres.Timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, cfg.Postgres.Timeout)
			defer cancel()
		}
		st, err := NewPostgresStore(pctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, noop, fmt.Errorf("postgres cache: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
