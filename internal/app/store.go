package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/3xpluto/go-delay-control/internal/config"
	"github.com/3xpluto/go-delay-control/internal/delay"
)

// OpenStore builds the configured store. An unreachable redis at startup
// falls back to the memory store; the returned name is the backend in use.
func OpenStore(ctx context.Context, cfg config.StoreConfig, b delay.Bounds, log *slog.Logger) (delay.Store, string) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := delay.NewRedisStore(rdb, b,
			delay.WithKey(cfg.Redis.Key),
			delay.WithOpTimeout(time.Duration(cfg.Redis.OpTimeoutMillis)*time.Millisecond),
		)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable; falling back to memory store", slog.String("error", err.Error()))
			_ = store.Close()
			return delay.NewMemoryStore(b), "memory"
		}
		if err := store.Reset(pingCtx); err != nil {
			log.Warn("redis reset failed; falling back to memory store", slog.String("error", err.Error()))
			_ = store.Close()
			return delay.NewMemoryStore(b), "memory"
		}
		log.Info("using redis store", slog.String("addr", cfg.Redis.Addr), slog.String("key", store.Key()))
		return store, "redis"

	default:
		return delay.NewMemoryStore(b), "memory"
	}
}
