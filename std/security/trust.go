package security

import (
	"encoding/pem"
	"fmt"
	"os"
	"sync"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
	sig "github.com/named-data/ndnrpc/std/security/signer"
)

const PEM_TYPE_PUBLIC = "NDN PUBLIC KEY"
const PEM_HEADER_NAME = "Name"
const PEM_HEADER_SIGTYPE = "SigType"

// TrustStore holds the public keys accepted when verifying Data.
type TrustStore struct {
	mutex sync.RWMutex
	keys  map[string][]byte
}

func NewTrustStore() *TrustStore {
	return &TrustStore{keys: make(map[string][]byte)}
}

func (ts *TrustStore) String() string {
	return "trust-store"
}

// LoadTrustStore reads a PEM file of NDN PUBLIC KEY blocks.
func LoadTrustStore(path string) (*TrustStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ts := NewTrustStore()
	for {
		block, rest := pem.Decode(raw)
		if block == nil {
			break
		}
		raw = rest

		if block.Type != PEM_TYPE_PUBLIC {
			log.Warn(ts, "Unsupported PEM type", "type", block.Type)
			continue
		}
		name, err := enc.NameFromStr(block.Headers[PEM_HEADER_NAME])
		if err != nil || len(name) == 0 {
			return nil, fmt.Errorf("invalid key name in %s: %q", path, block.Headers[PEM_HEADER_NAME])
		}
		ts.Add(name, block.Bytes)
	}
	return ts, nil
}

// Add trusts the PKIX encoded public key for the key name.
func (ts *TrustStore) Add(keyName enc.Name, pkix []byte) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	ts.keys[keyName.Key()] = pkix
}

func (ts *TrustStore) Len() int {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	return len(ts.keys)
}

func (ts *TrustStore) get(keyName enc.Name) ([]byte, bool) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	k, ok := ts.keys[keyName.Key()]
	return k, ok
}

// PemEncodePublic converts a public key to the text form read by LoadTrustStore.
func PemEncodePublic(keyName enc.Name, pkix []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type: PEM_TYPE_PUBLIC,
		Headers: map[string]string{
			PEM_HEADER_NAME:    keyName.String(),
			PEM_HEADER_SIGTYPE: ndn.SignatureEd25519.String(),
		},
		Bytes: pkix,
	})
}

// Verify checks the signature of an encoded Data packet. It fails closed:
// any bad or untrusted signature yields false. Input that cannot be decoded
// as Data returns ErrMalformedPacket.
func Verify(wire []byte, trust *TrustStore) (bool, error) {
	pkt, err := ndn.ParsePacket(wire)
	if err != nil {
		return false, err
	}
	if pkt.Data == nil {
		return false, fmt.Errorf("%w: not a data packet", ndn.ErrMalformedPacket)
	}
	return VerifyData(pkt.Data, trust), nil
}

// VerifyData checks the signature of a decoded Data packet.
func VerifyData(data *ndn.Data, trust *TrustStore) bool {
	covered := data.SigCovered()
	if covered == nil {
		return false
	}
	switch data.Sig.Type {
	case ndn.SignatureDigestSha256:
		return sig.ValidateDigest(covered, data.Sig.Value)
	case ndn.SignatureEd25519:
		if trust == nil || data.Sig.KeyName == nil {
			return false
		}
		pkix, ok := trust.get(data.Sig.KeyName)
		if !ok {
			return false
		}
		valid, err := sig.ValidateEd25519(covered, data.Sig.Value, pkix)
		return err == nil && valid
	default:
		return false
	}
}
