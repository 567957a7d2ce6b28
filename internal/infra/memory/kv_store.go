package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// KVStore is an in-process key-value store. Values are kept as marshaled
// JSON so round-trip semantics match the Redis-backed store exactly.
type KVStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewKVStore() *KVStore {
	return &KVStore{values: make(map[string][]byte)}
}

// Get unmarshals the stored value into dest. Absence is reported via the
// bool, never as an error.
func (s *KVStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}
