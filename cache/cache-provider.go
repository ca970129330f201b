package cache

import (
	"errors"
	"sync"
)

var (
	// ErrStoreLocked is returned when the store location is held by another client.
	ErrStoreLocked = errors.New("cache store is locked by another client")
	// ErrClosed is returned by providers that have already been closed.
	ErrClosed = errors.New("cache store is closed")
)

// CacheProvider is an interface for a cache provider.
// It stores and retrieves []byte values, which represent encoded cache entries.
// It knows nothing about expiry; that is decided by the caller from the stored bytes.
//
// Implementations must be thread-safe!
type CacheProvider interface {
	// Get returns the stored value for the given key, if it exists.
	// It also returns a boolean indicating whether the key was found.
	Get(key string) ([]byte, bool, error)
	// Put stores the value under the given key, replacing any previous value.
	Put(key string, value []byte) error
	// Close releases the underlying storage.
	Close() error
}

type MemCache struct {
	mutex  *sync.RWMutex
	db     map[string][]byte
	closed bool
}

func NewMemCache() *MemCache {
	return &MemCache{
		mutex: &sync.RWMutex{},
		db:    make(map[string][]byte),
	}
}

func (m *MemCache) Get(key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	value, ok := m.db[key]
	if !ok {
		return nil, false, nil
	}
	// hand out a copy so callers cannot mutate the stored value
	return append([]byte{}, value...), true, nil
}

func (m *MemCache) Put(key string, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.db[key] = append([]byte{}, value...)
	return nil
}

func (m *MemCache) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	m.db = nil
	return nil
}

// Len returns the number of stored keys.
func (m *MemCache) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.db)
}
