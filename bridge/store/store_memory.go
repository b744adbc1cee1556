package store

import (
	"strings"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-memory Store with per-entry expiration.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store. Expired entries are evicted
// every defaultTtl, with a floor of one second.
func NewMemoryStore(defaultTtl time.Duration) *MemoryStore {
	cleanup := max(defaultTtl, time.Second)
	return &MemoryStore{cache: gocache.New(defaultTtl, cleanup)}
}

func (s *MemoryStore) String() string {
	return "memory-store"
}

func (s *MemoryStore) Get(name enc.Name) ([]byte, error) {
	v, ok := s.cache.Get(string(nameKey(name)))
	if !ok {
		return nil, nil
	}
	return v.([]byte), nil
}

func (s *MemoryStore) Put(name enc.Name, wire []byte, ttl time.Duration) error {
	switch {
	case ttl == NoExpiration:
		ttl = gocache.NoExpiration
	case ttl <= 0:
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(string(nameKey(name)), wire, ttl)
	return nil
}

func (s *MemoryStore) Remove(name enc.Name) error {
	s.cache.Delete(string(nameKey(name)))
	return nil
}

func (s *MemoryStore) RemovePrefix(prefix enc.Name) error {
	keyPfx := string(nameKey(prefix))
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, keyPfx) {
			s.cache.Delete(key)
		}
	}
	return nil
}

func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
