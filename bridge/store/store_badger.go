package store

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	enc "github.com/named-data/ndnrpc/std/encoding"
)

// BadgerStore is a persistent Store. Entries carry a badger TTL.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) String() string {
	return "badger-store"
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Get(name enc.Name) (wire []byte, err error) {
	key := nameKey(name)
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		wire, err = item.ValueCopy(nil)
		return err
	})
	return
}

func (s *BadgerStore) Put(name enc.Name, wire []byte, ttl time.Duration) error {
	key := nameKey(name)
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, wire)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Remove(name enc.Name) error {
	key := nameKey(name)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerStore) RemovePrefix(prefix enc.Name) error {
	keyPfx := nameKey(prefix)
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // keys only
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(keyPfx); it.ValidForPrefix(keyPfx); it.Next() {
			key := it.Item().KeyCopy(nil)
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
