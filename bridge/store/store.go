// Package store keeps produced segment wires so that later Interests for
// the same segment are answered without re-invoking the RPC.
package store

import (
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
)

// NoExpiration keeps an entry until it is removed.
const NoExpiration time.Duration = -1

// Store holds encoded Data packets by their full name.
// Get returns (nil, nil) on a miss. Put with a zero ttl uses the store
// default.
type Store interface {
	Get(name enc.Name) ([]byte, error)
	Put(name enc.Name, wire []byte, ttl time.Duration) error
	Remove(name enc.Name) error
	RemovePrefix(prefix enc.Name) error
	Close() error
}

// Open returns a badger store at path, or a memory store if path is empty.
func Open(path string, ttl time.Duration) (Store, error) {
	if path == "" {
		return NewMemoryStore(ttl), nil
	}
	return NewBadgerStore(path)
}

func nameKey(name enc.Name) []byte {
	return name.BytesInner()
}
