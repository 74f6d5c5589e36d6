package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/avinay/ntc-blueprint/config"
	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/internal/infrastructure/memory"
	pginfra "github.com/avinay/ntc-blueprint/internal/infrastructure/postgres"
	redisinfra "github.com/avinay/ntc-blueprint/internal/infrastructure/redis"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// OpenStore builds the KeyValueStore named by cfg.StorageDriver. The postgres
// driver runs migrations first and returns its pool so the caller can close it.
func OpenStore(ctx context.Context, cfg *config.Config, rdb *goredis.Client, logger *logrus.Logger) (repo.KeyValueStore, *pgxpool.Pool, error) {
	switch cfg.StorageDriver {
	case "", "memory":
		return memory.NewKVStore(cfg.MemoryQuotaBytes), nil, nil
	case "redis":
		if rdb == nil {
			return nil, nil, errors.New("redis storage driver needs REDIS_ADDR")
		}
		return redisinfra.NewKVStore(rdb, cfg.RedisKeyPrefix), nil, nil
	case "postgres":
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pginfra.NewKVStore(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StorageDriver)
	}
}
