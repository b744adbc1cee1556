package ndn

import (
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
)

// Data is a named, signed response segment.
type Data struct {
	Name        enc.Name
	ContentType ContentType
	Freshness   time.Duration
	// FinalBlockID is nil when the field is absent.
	FinalBlockID *enc.Component
	Content      []byte
	Sig          Signature

	// sigCovered is the signed portion of a decoded packet.
	sigCovered []byte
}

// SigCovered returns the bytes covered by the signature of a decoded Data.
func (d *Data) SigCovered() []byte {
	return d.sigCovered
}

// FinalSegment returns the number in FinalBlockId when it is a segment component.
func (d *Data) FinalSegment() (uint64, bool) {
	if d.FinalBlockID == nil || !d.FinalBlockID.IsSegment() {
		return 0, false
	}
	return d.FinalBlockID.NumberVal(), true
}

// Encode signs the Data with signer and produces the Data TLV.
func (d *Data) Encode(signer Signer) ([]byte, error) {
	if signer == nil {
		return nil, ErrInvalidValue{Item: "signer", Value: nil}
	}

	covered := enc.AppendTLV(nil, enc.TypeName, d.Name.BytesInner())
	var meta []byte
	if d.ContentType != ContentTypeBlob {
		meta = enc.AppendNat(meta, TypeContentType, uint64(d.ContentType))
	}
	if d.Freshness > 0 {
		meta = enc.AppendNat(meta, TypeFreshnessPeriod, uint64(d.Freshness.Milliseconds()))
	}
	if d.FinalBlockID != nil {
		meta = enc.AppendTLV(meta, TypeFinalBlockId, d.FinalBlockID.Bytes())
	}
	if meta != nil {
		covered = enc.AppendTLV(covered, TypeMetaInfo, meta)
	}
	covered = enc.AppendTLV(covered, TypeContent, d.Content)

	d.Sig = Signature{Type: signer.Type(), KeyName: signer.KeyName()}
	covered = append(covered, d.Sig.encodeInfo(TypeSignatureInfo)...)

	val, err := signer.Sign(enc.Wire{covered})
	if err != nil {
		return nil, err
	}
	d.Sig.Value = val
	d.sigCovered = covered

	wire := enc.AppendTLV(nil, TypeData, enc.AppendTLV(covered, TypeSignatureValue, val))
	if len(wire) > MaxNDNPacketSize {
		return nil, ErrInvalidValue{Item: "data size", Value: len(wire)}
	}
	return wire, nil
}

// ReadData decodes the value part of a Data TLV.
func ReadData(val []byte) (*Data, error) {
	r := enc.NewReader(val)
	nameVal, err := r.ReadExpect(enc.TypeName)
	if err != nil {
		return nil, malformed("data name: %v", err)
	}
	ret := &Data{}
	if ret.Name, err = enc.ReadNameValue(nameVal); err != nil {
		return nil, malformed("data name: %v", err)
	}

	hasSigInfo := false
	hasSigValue := false
	for !r.Done() {
		pos := r.Pos()
		typ, v, err := r.ReadTLV()
		if err != nil {
			return nil, malformed("data: %v", err)
		}
		switch typ {
		case TypeMetaInfo:
			if err := ret.readMetaInfo(v); err != nil {
				return nil, err
			}
		case TypeContent:
			ret.Content = v
		case TypeSignatureInfo:
			if ret.Sig, err = readSignatureInfo(v); err != nil {
				return nil, err
			}
			hasSigInfo = true
		case TypeSignatureValue:
			if !hasSigInfo {
				return nil, malformed("signature value without info")
			}
			ret.Sig.Value = v
			ret.sigCovered = val[:pos]
			hasSigValue = true
		default:
			if enc.IsCritical(typ) {
				return nil, malformed("unknown critical data field %s", typ)
			}
		}
	}
	if !hasSigValue {
		return nil, malformed("data without signature")
	}
	return ret, nil
}

func (d *Data) readMetaInfo(val []byte) error {
	r := enc.NewReader(val)
	for !r.Done() {
		typ, v, err := r.ReadTLV()
		if err != nil {
			return malformed("meta info: %v", err)
		}
		switch typ {
		case TypeContentType:
			n, err := enc.ParseNat(v)
			if err != nil {
				return malformed("content type: %v", err)
			}
			d.ContentType = ContentType(n)
		case TypeFreshnessPeriod:
			n, err := enc.ParseNat(v)
			if err != nil {
				return malformed("freshness period: %v", err)
			}
			d.Freshness = time.Duration(n) * time.Millisecond
		case TypeFinalBlockId:
			cr := enc.NewReader(v)
			ctyp, cv, err := cr.ReadTLV()
			if err != nil {
				return malformed("final block id: %v", err)
			}
			d.FinalBlockID = &enc.Component{Typ: ctyp, Val: cv}
		default:
			if enc.IsCritical(typ) {
				return malformed("unknown critical meta info field %s", typ)
			}
		}
	}
	return nil
}
