package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/avinay/ntc-blueprint/internal/domain/repository"
)

// ErrQuotaExceeded is returned by Set when the write would push the store
// past its byte quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// KVStore keeps slots in process memory. A positive Quota caps the total
// size of keys plus values, the way browser storage does.
type KVStore struct {
	mu    sync.RWMutex
	data  map[string]string
	size  int
	Quota int
}

func NewKVStore(quota int) *KVStore {
	return &KVStore{data: make(map[string]string), Quota: quota}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.size + len(value)
	if old, ok := s.data[key]; ok {
		next -= len(old)
	} else {
		next += len(key)
	}
	if s.Quota > 0 && next > s.Quota {
		return ErrQuotaExceeded
	}
	s.data[key] = value
	s.size = next
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

// Len reports how many keys are stored.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ repository.KeyValueStore = (*KVStore)(nil)
