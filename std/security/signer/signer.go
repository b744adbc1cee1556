package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"errors"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
)

// sha256Signer is a Data signer that uses DigestSha256.
type sha256Signer struct{}

func (sha256Signer) Type() ndn.SigType {
	return ndn.SignatureDigestSha256
}

func (sha256Signer) KeyName() enc.Name {
	return nil
}

func (sha256Signer) EstimateSize() uint {
	return sha256.Size
}

func (sha256Signer) Sign(covered enc.Wire) ([]byte, error) {
	h := sha256.New()
	for _, buf := range covered {
		h.Write(buf)
	}
	return h.Sum(nil), nil
}

func (sha256Signer) Public() ([]byte, error) {
	return nil, errors.New("public key does not exist")
}

// NewSha256Signer creates a signer that uses DigestSha256.
func NewSha256Signer() ndn.Signer {
	return sha256Signer{}
}

// ed25519Signer is a signer that uses Ed25519 key to sign packets.
type ed25519Signer struct {
	name enc.Name
	key  ed25519.PrivateKey
}

func (s *ed25519Signer) Type() ndn.SigType {
	return ndn.SignatureEd25519
}

func (s *ed25519Signer) KeyName() enc.Name {
	return s.name
}

func (s *ed25519Signer) EstimateSize() uint {
	return ed25519.SignatureSize
}

func (s *ed25519Signer) Sign(covered enc.Wire) ([]byte, error) {
	return ed25519.Sign(s.key, covered.Join()), nil
}

// Public returns the PKIX encoded public key.
func (s *ed25519Signer) Public() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(s.key.Public())
}

// NewEd25519Signer creates a signer using ed25519 key
func NewEd25519Signer(name enc.Name, key ed25519.PrivateKey) ndn.Signer {
	return &ed25519Signer{name, key}
}

// KeygenEd25519 creates a signer using a new Ed25519 key
func KeygenEd25519(name enc.Name) (ndn.Signer, []byte, error) {
	_, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return NewEd25519Signer(name, sk), sk, nil
}

// ParseEd25519 parses a signer from raw private key bytes.
func ParseEd25519(name enc.Name, key []byte) (ndn.Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid Ed25519 private key size")
	}
	return NewEd25519Signer(name, ed25519.PrivateKey(key)), nil
}

// ValidateDigest checks a DigestSha256 signature.
func ValidateDigest(sigCovered []byte, sigValue []byte) bool {
	h := sha256.Sum256(sigCovered)
	return subtle.ConstantTimeCompare(h[:], sigValue) == 1
}

// ValidateEd25519 checks an Ed25519 signature against a PKIX encoded public key.
func ValidateEd25519(sigCovered []byte, sigValue []byte, pkix []byte) (bool, error) {
	pkey, err := x509.ParsePKIXPublicKey(pkix)
	if err != nil {
		return false, err
	}
	pub, ok := pkey.(ed25519.PublicKey)
	if !ok {
		return false, ndn.ErrInvalidValue{Item: "public key type", Value: pkey}
	}
	return ed25519.Verify(pub, sigCovered, sigValue), nil
}
