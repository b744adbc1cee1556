package ndn

import (
	enc "github.com/named-data/ndnrpc/std/encoding"
)

// Nack is a network Nack for a previously sent Interest.
type Nack struct {
	Reason   NackReason
	Interest *Interest
}

// Packet is a decoded frame received from a face.
// Exactly one of Interest, Data and Nack is set.
type Packet struct {
	Interest *Interest
	Data     *Data
	Nack     *Nack
	// PitToken is echoed on the reply to an Interest.
	PitToken []byte
	// Raw is the network-layer packet without the link header.
	Raw []byte
}

func (p *Packet) String() string {
	switch {
	case p.Interest != nil:
		return "Interest " + p.Interest.Name.String()
	case p.Data != nil:
		return "Data " + p.Data.Name.String()
	case p.Nack != nil:
		return "Nack(" + p.Nack.Reason.String() + ") " + p.Nack.Interest.Name.String()
	default:
		return "Empty packet"
	}
}

// ParsePacket decodes one frame: an Interest, a Data, or an LpPacket
// carrying either of them (optionally as a Nack).
func ParsePacket(frame []byte) (*Packet, error) {
	r := enc.NewReader(frame)
	typ, val, err := r.ReadTLV()
	if err != nil {
		return nil, malformed("frame: %v", err)
	}
	if !r.Done() {
		return nil, malformed("trailing bytes after packet")
	}

	ret := &Packet{}
	var nackReason *NackReason
	if typ == TypeLpPacket {
		var frag []byte
		lr := enc.NewReader(val)
		for !lr.Done() {
			ltyp, lval, err := lr.ReadTLV()
			if err != nil {
				return nil, malformed("lp packet: %v", err)
			}
			switch ltyp {
			case TypePitToken:
				ret.PitToken = lval
			case TypeNack:
				reason := NackReasonNone
				nr := enc.NewReader(lval)
				for !nr.Done() {
					ntyp, nval, err := nr.ReadTLV()
					if err != nil {
						return nil, malformed("nack: %v", err)
					}
					if ntyp == TypeNackReason {
						n, err := enc.ParseNat(nval)
						if err != nil {
							return nil, malformed("nack reason: %v", err)
						}
						reason = NackReason(n)
					}
				}
				nackReason = &reason
			case TypeFragment:
				frag = lval
			default:
				// Header fields in [800, 959] with the low two bits clear may be ignored
				if !(ltyp >= 800 && ltyp <= 959 && ltyp&0x3 == 0) {
					return nil, malformed("unknown lp field %s", ltyp)
				}
			}
		}
		if frag == nil {
			// IDLE packet
			return nil, malformed("lp packet without fragment")
		}
		fr := enc.NewReader(frag)
		if typ, val, err = fr.ReadTLV(); err != nil {
			return nil, malformed("fragment: %v", err)
		}
		ret.Raw = frag
	} else {
		ret.Raw = frame
	}

	switch typ {
	case TypeInterest:
		interest, err := ReadInterest(val)
		if err != nil {
			return nil, err
		}
		if nackReason != nil {
			ret.Nack = &Nack{Reason: *nackReason, Interest: interest}
		} else {
			ret.Interest = interest
		}
	case TypeData:
		if nackReason != nil {
			return nil, malformed("nack carrying data")
		}
		if ret.Data, err = ReadData(val); err != nil {
			return nil, err
		}
	default:
		return nil, malformed("unexpected packet type %s", typ)
	}
	return ret, nil
}

// WrapLp encapsulates a network-layer packet into an LpPacket when a
// PIT token has to be carried. Otherwise the packet is returned as-is.
func WrapLp(pkt []byte, pitToken []byte) []byte {
	if pitToken == nil {
		return pkt
	}
	inner := enc.AppendTLV(nil, TypePitToken, pitToken)
	inner = enc.AppendTLV(inner, TypeFragment, pkt)
	return enc.AppendTLV(nil, TypeLpPacket, inner)
}

// EncodeNack produces an LpPacket nacking the given Interest wire.
func EncodeNack(interestWire []byte, reason NackReason, pitToken []byte) []byte {
	var inner []byte
	if pitToken != nil {
		inner = enc.AppendTLV(inner, TypePitToken, pitToken)
	}
	inner = enc.AppendTLV(inner, TypeNack, enc.AppendNat(nil, TypeNackReason, uint64(reason)))
	inner = enc.AppendTLV(inner, TypeFragment, interestWire)
	return enc.AppendTLV(nil, TypeLpPacket, inner)
}
