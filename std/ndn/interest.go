package ndn

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/utils"
)

// Interest is a pull request for named data.
type Interest struct {
	Name        enc.Name
	CanBePrefix bool
	MustBeFresh bool
	Nonce       uint32
	// Lifetime is zero when the field is absent; see Life().
	Lifetime time.Duration
	// HopLimit is zero when the field is absent.
	HopLimit uint8
	// AppParams is nil when absent.
	AppParams []byte
	// Sig is set for signed Interests.
	Sig *Signature
}

// Life returns the effective lifetime, applying the 4s default.
func (i *Interest) Life() time.Duration {
	if i.Lifetime <= 0 {
		return DefaultInterestLife
	}
	return i.Lifetime
}

// Encode produces the Interest TLV. With a non-nil signer the Interest is
// signed, and ApplicationParameters is always present.
// A ParametersSha256Digest component is appended (or replaced) whenever
// ApplicationParameters is present.
func (i *Interest) Encode(signer Signer) ([]byte, error) {
	name := i.Name
	if n := len(name); n > 0 && name[n-1].Typ == enc.TypeParametersSha256DigestComponent {
		name = name[:n-1]
	}

	var params []byte
	if i.AppParams != nil || signer != nil {
		params = enc.AppendTLV(nil, TypeApplicationParameters, i.AppParams)
	}

	if signer != nil {
		sig := &Signature{
			Type:    signer.Type(),
			KeyName: signer.KeyName(),
			Nonce:   i.signatureNonce(),
			Time:    utils.MakeTimestamp(time.Now()),
		}
		info := sig.encodeInfo(TypeInterestSignatureInfo)
		covered := enc.Wire{name.BytesInner(), params, info}
		val, err := signer.Sign(covered)
		if err != nil {
			return nil, err
		}
		sig.Value = val
		params = append(params, info...)
		params = enc.AppendTLV(params, TypeInterestSignatureValue, val)
		i.Sig = sig
	}

	if params != nil {
		digest := sha256.Sum256(params)
		name = name.Append(enc.NewBytesComponent(enc.TypeParametersSha256DigestComponent, digest[:]))
	}
	i.Name = name

	inner := enc.AppendTLV(nil, enc.TypeName, name.BytesInner())
	if i.CanBePrefix {
		inner = enc.AppendTLV(inner, TypeCanBePrefix, nil)
	}
	if i.MustBeFresh {
		inner = enc.AppendTLV(inner, TypeMustBeFresh, nil)
	}
	var nonce [4]byte
	binary.BigEndian.PutUint32(nonce[:], i.Nonce)
	inner = enc.AppendTLV(inner, TypeNonce, nonce[:])
	if i.Lifetime > 0 {
		inner = enc.AppendNat(inner, TypeInterestLifetime, uint64(i.Lifetime.Milliseconds()))
	}
	if i.HopLimit > 0 {
		inner = enc.AppendTLV(inner, TypeHopLimit, []byte{i.HopLimit})
	}
	inner = append(inner, params...)

	wire := enc.AppendTLV(nil, TypeInterest, inner)
	if len(wire) > MaxNDNPacketSize {
		return nil, ErrInvalidValue{Item: "interest size", Value: len(wire)}
	}
	return wire, nil
}

func (i *Interest) signatureNonce() []byte {
	var b [8]byte
	binary.BigEndian.PutUint32(b[:4], i.Nonce)
	binary.BigEndian.PutUint32(b[4:], uint32(time.Now().UnixNano()))
	return b[:]
}

// ReadInterest decodes the value part of an Interest TLV.
func ReadInterest(val []byte) (*Interest, error) {
	r := enc.NewReader(val)
	nameVal, err := r.ReadExpect(enc.TypeName)
	if err != nil {
		return nil, malformed("interest name: %v", err)
	}
	ret := &Interest{}
	if ret.Name, err = enc.ReadNameValue(nameVal); err != nil {
		return nil, malformed("interest name: %v", err)
	}

	paramsStart := -1
	for !r.Done() {
		pos := r.Pos()
		typ, v, err := r.ReadTLV()
		if err != nil {
			return nil, malformed("interest: %v", err)
		}
		switch typ {
		case TypeCanBePrefix:
			ret.CanBePrefix = true
		case TypeMustBeFresh:
			ret.MustBeFresh = true
		case TypeForwardingHint:
			// not used by the bridge
		case TypeNonce:
			if len(v) != 4 {
				return nil, malformed("nonce length %d", len(v))
			}
			ret.Nonce = binary.BigEndian.Uint32(v)
		case TypeInterestLifetime:
			n, err := enc.ParseNat(v)
			if err != nil {
				return nil, malformed("interest lifetime: %v", err)
			}
			ret.Lifetime = time.Duration(n) * time.Millisecond
		case TypeHopLimit:
			if len(v) != 1 {
				return nil, malformed("hop limit length %d", len(v))
			}
			ret.HopLimit = v[0]
		case TypeApplicationParameters:
			paramsStart = pos
			ret.AppParams = v
		case TypeInterestSignatureInfo:
			sig, err := readSignatureInfo(v)
			if err != nil {
				return nil, err
			}
			ret.Sig = &sig
		case TypeInterestSignatureValue:
			if ret.Sig == nil {
				return nil, malformed("signature value without info")
			}
			ret.Sig.Value = v
		default:
			if enc.IsCritical(typ) {
				return nil, malformed("unknown critical interest field %s", typ)
			}
		}
	}

	if paramsStart >= 0 {
		last := ret.Name.At(-1)
		if last.Typ != enc.TypeParametersSha256DigestComponent {
			return nil, malformed("application parameters without digest component")
		}
		digest := sha256.Sum256(val[paramsStart:])
		if !bytes.Equal(digest[:], last.Val) {
			return nil, malformed("parameters digest mismatch")
		}
	}
	return ret, nil
}
