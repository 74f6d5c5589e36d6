package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/avinay/ntc-blueprint/internal/domain/repository"
)

// KVStore persists slots as plain Redis strings under Prefix.
type KVStore struct {
	rdb    *goredis.Client
	Prefix string
}

func NewKVStore(rdb *goredis.Client, prefix string) *KVStore {
	return &KVStore{rdb: rdb, Prefix: prefix}
}

func (s *KVStore) key(k string) string { return s.Prefix + k }

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

var _ repository.KeyValueStore = (*KVStore)(nil)
