package security

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
	sig "github.com/named-data/ndnrpc/std/security/signer"
)

const keyStoreSchema = `
CREATE TABLE IF NOT EXISTS keys (
	id INTEGER PRIMARY KEY,
	identity BLOB NOT NULL UNIQUE,
	key_type INTEGER NOT NULL,
	key_bits BLOB NOT NULL,
	is_default INTEGER NOT NULL DEFAULT 0
);`

// KeyEntry describes a signing identity. It never carries private material.
type KeyEntry struct {
	Owner     enc.Name
	Type      ndn.SigType
	Public    []byte
	IsDefault bool
}

// KeyStore maps owner names to signing keys. It is backed by SQLite and
// loaded into memory at open; lookups never touch the database.
type KeyStore struct {
	db *sql.DB

	mutex   sync.RWMutex
	signers map[string]ndn.Signer
	entries map[string]KeyEntry
	def     ndn.Signer
}

// OpenKeyStore opens (or creates) the key database at path.
func OpenKeyStore(path string) (*KeyStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ndn.ErrSigningFailed, err)
	}
	if _, err = db.Exec(keyStoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: unable to initialize key store %s: %v", ndn.ErrSigningFailed, path, err)
	}

	ks := &KeyStore{
		db:      db,
		signers: make(map[string]ndn.Signer),
		entries: make(map[string]KeyEntry),
	}
	if err = ks.load(); err != nil {
		db.Close()
		return nil, err
	}
	return ks, nil
}

func (ks *KeyStore) String() string {
	return "key-store"
}

func (ks *KeyStore) load() error {
	rows, err := ks.db.Query("SELECT identity, key_type, key_bits, is_default FROM keys")
	if err != nil {
		return fmt.Errorf("%w: %v", ndn.ErrSigningFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var nameWire, keyBits []byte
		var keyType int
		var isDefault bool
		if err = rows.Scan(&nameWire, &keyType, &keyBits, &isDefault); err != nil {
			return fmt.Errorf("%w: %v", ndn.ErrSigningFailed, err)
		}
		name, err := enc.NameFromBytes(nameWire)
		if err != nil {
			log.Warn(ks, "Skipping key with invalid identity", "err", err)
			continue
		}
		if err = ks.add(name, ndn.SigType(keyType), keyBits, isDefault); err != nil {
			log.Warn(ks, "Skipping unusable key", "identity", name, "err", err)
		}
	}
	return rows.Err()
}

func (ks *KeyStore) add(owner enc.Name, keyType ndn.SigType, keyBits []byte, isDefault bool) error {
	if keyType != ndn.SignatureEd25519 {
		return ndn.ErrInvalidValue{Item: "key type", Value: keyType}
	}
	signer, err := sig.ParseEd25519(owner, keyBits)
	if err != nil {
		return err
	}
	pub, err := signer.Public()
	if err != nil {
		return err
	}

	ks.mutex.Lock()
	defer ks.mutex.Unlock()
	ks.signers[owner.Key()] = signer
	ks.entries[owner.Key()] = KeyEntry{Owner: owner, Type: keyType, Public: pub, IsDefault: isDefault}
	if isDefault {
		ks.def = signer
	}
	return nil
}

// Insert provisions a key for owner, replacing any existing one.
func (ks *KeyStore) Insert(owner enc.Name, keyType ndn.SigType, keyBits []byte, isDefault bool) error {
	if ks == nil || ks.db == nil {
		return ndn.ErrSigningFailed
	}
	tx, err := ks.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if isDefault {
		if _, err = tx.Exec("UPDATE keys SET is_default=0"); err != nil {
			return err
		}
	}
	_, err = tx.Exec(
		"INSERT OR REPLACE INTO keys (identity, key_type, key_bits, is_default) VALUES (?, ?, ?, ?)",
		owner.Bytes(), int(keyType), keyBits, isDefault,
	)
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	if isDefault {
		ks.mutex.Lock()
		for k, e := range ks.entries {
			e.IsDefault = false
			ks.entries[k] = e
		}
		ks.mutex.Unlock()
	}
	return ks.add(owner, keyType, keyBits, isDefault)
}

// SetDefaultIdentity makes an existing identity the fallback signer
// without persisting the choice.
func (ks *KeyStore) SetDefaultIdentity(owner enc.Name) error {
	if ks == nil {
		return ndn.ErrSigningFailed
	}
	ks.mutex.Lock()
	defer ks.mutex.Unlock()
	signer, ok := ks.signers[owner.Key()]
	if !ok {
		return fmt.Errorf("%w: %s", ndn.ErrKeyNotFound, owner)
	}
	ks.def = signer
	return nil
}

// Lookup resolves the signer for owner: the exact identity, else the
// nearest ancestor identity, else the default identity.
func (ks *KeyStore) Lookup(owner enc.Name) (ndn.Signer, error) {
	if ks == nil {
		return nil, fmt.Errorf("%w: key store is not initialized", ndn.ErrSigningFailed)
	}

	ks.mutex.RLock()
	defer ks.mutex.RUnlock()
	if ks.db == nil {
		return nil, fmt.Errorf("%w: key store is closed", ndn.ErrSigningFailed)
	}
	for i := len(owner); i >= 0; i-- {
		if s, ok := ks.signers[owner.Prefix(i).Key()]; ok {
			return s, nil
		}
	}
	if ks.def != nil {
		return ks.def, nil
	}
	return nil, fmt.Errorf("%w: %s", ndn.ErrKeyNotFound, owner)
}

// List returns all key entries ordered by owner name.
func (ks *KeyStore) List() []KeyEntry {
	if ks == nil {
		return nil
	}
	ks.mutex.RLock()
	defer ks.mutex.RUnlock()
	ret := make([]KeyEntry, 0, len(ks.entries))
	for _, e := range ks.entries {
		ret = append(ret, e)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Owner.Compare(ret[j].Owner) < 0
	})
	return ret
}

// Sign signs data with the key of owner and returns the encoded packet.
func (ks *KeyStore) Sign(owner enc.Name, data *ndn.Data) ([]byte, error) {
	signer, err := ks.Lookup(owner)
	if err != nil {
		return nil, err
	}
	wire, err := data.Encode(signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ndn.ErrSigningFailed, err)
	}
	return wire, nil
}

// Signer returns the default signer, used for forwarder commands.
func (ks *KeyStore) Signer() ndn.Signer {
	if ks == nil {
		return sig.NewSha256Signer()
	}
	ks.mutex.RLock()
	defer ks.mutex.RUnlock()
	if ks.def != nil {
		return ks.def
	}
	return sig.NewSha256Signer()
}

func (ks *KeyStore) Close() error {
	if ks == nil {
		return nil
	}
	ks.mutex.Lock()
	defer ks.mutex.Unlock()
	if ks.db == nil {
		return nil
	}
	err := ks.db.Close()
	ks.db = nil
	return err
}
