package storage

import (
	"bytes"
	"sort"
	"sync"
)

const memoryBackend = "memory"

type memoryStorage struct {
	mu     sync.RWMutex
	store  map[string][]byte
	closed bool
}

func NewMemoryStorage() *memoryStorage {
	return &memoryStorage{
		store: make(map[string][]byte),
	}
}

func (s *memoryStorage) Set(key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storageWrites.WithLabelValues(memoryBackend).Inc()
	if s.closed {
		storageErrors.WithLabelValues(memoryBackend).Inc()
		return ErrClosed
	}
	s.store[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStorage) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	storageReads.WithLabelValues(memoryBackend).Inc()
	if s.closed {
		storageErrors.WithLabelValues(memoryBackend).Inc()
		return nil, ErrClosed
	}
	value, ok := s.store[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}

	return append([]byte(nil), value...), nil
}

func (s *memoryStorage) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storageWrites.WithLabelValues(memoryBackend).Inc()
	if s.closed {
		storageErrors.WithLabelValues(memoryBackend).Inc()
		return ErrClosed
	}
	delete(s.store, string(key))
	return nil
}

func (s *memoryStorage) Contains(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	storageReads.WithLabelValues(memoryBackend).Inc()
	_, ok := s.store[string(key)]
	return ok && !s.closed
}

func (s *memoryStorage) Find(prefix []byte) ([]KeyValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	storageReads.WithLabelValues(memoryBackend).Inc()
	if s.closed {
		storageErrors.WithLabelValues(memoryBackend).Inc()
		return nil, ErrClosed
	}

	result := make([]KeyValue, 0)
	for k, v := range s.store {
		if bytes.HasPrefix([]byte(k), prefix) {
			result = append(result, KeyValue{Key: []byte(k), Value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i].Key, result[j].Key) < 0
	})
	return result, nil
}

func (s *memoryStorage) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.store = nil
}
