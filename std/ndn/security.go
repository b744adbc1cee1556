package ndn

import (
	enc "github.com/named-data/ndnrpc/std/encoding"
)

// Signer is the interface of a NDN packet signer.
type Signer interface {
	// Type returns the signature type.
	Type() SigType
	// KeyName returns the key name of the signer, or nil for digest signatures.
	KeyName() enc.Name
	// EstimateSize gives the approximate size of the signature in bytes.
	EstimateSize() uint
	// Sign computes the signature value of a wire.
	Sign(enc.Wire) ([]byte, error)
	// Public returns the public key of the signer or nil.
	Public() ([]byte, error)
}

// Signature holds the signature fields of a Data or signed Interest.
type Signature struct {
	Type    SigType
	KeyName enc.Name
	// Nonce and Time (ms since epoch) are only used by signed Interests.
	Nonce []byte
	Time  uint64
	Value []byte
}

func (s *Signature) encodeInfo(typ enc.TLNum) []byte {
	inner := enc.AppendNat(nil, TypeSignatureType, uint64(s.Type))
	if s.KeyName != nil {
		inner = enc.AppendTLV(inner, TypeKeyLocator, s.KeyName.Bytes())
	}
	if s.Nonce != nil {
		inner = enc.AppendTLV(inner, TypeSignatureNonce, s.Nonce)
	}
	if s.Time != 0 {
		inner = enc.AppendNat(inner, TypeSignatureTime, s.Time)
	}
	return enc.AppendTLV(nil, typ, inner)
}

func readSignatureInfo(val []byte) (Signature, error) {
	sig := Signature{Type: SignatureNone}
	r := enc.NewReader(val)
	for !r.Done() {
		typ, v, err := r.ReadTLV()
		if err != nil {
			return sig, malformed("signature info: %v", err)
		}
		switch typ {
		case TypeSignatureType:
			n, err := enc.ParseNat(v)
			if err != nil {
				return sig, malformed("signature type: %v", err)
			}
			sig.Type = SigType(n)
		case TypeKeyLocator:
			kr := enc.NewReader(v)
			ktyp, kv, err := kr.ReadTLV()
			if err != nil {
				return sig, malformed("key locator: %v", err)
			}
			// KeyDigest locators are accepted but not resolved
			if ktyp == enc.TypeName {
				if sig.KeyName, err = enc.ReadNameValue(kv); err != nil {
					return sig, malformed("key locator: %v", err)
				}
			}
		case TypeSignatureNonce:
			sig.Nonce = v
		case TypeSignatureTime:
			n, err := enc.ParseNat(v)
			if err != nil {
				return sig, malformed("signature time: %v", err)
			}
			sig.Time = uint64(n)
		default:
			if enc.IsCritical(typ) {
				return sig, malformed("unknown critical signature field %s", typ)
			}
		}
	}
	if sig.Type == SignatureNone {
		return sig, malformed("missing signature type")
	}
	return sig, nil
}
