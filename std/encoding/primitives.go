package encoding

import (
	"encoding/binary"
)

// TLNum is a TLV Type or Length number
type TLNum uint64

// Nat is a TLV natural number
type Nat uint64

func (v TLNum) EncodingLength() int {
	switch x := uint64(v); {
	case x <= 0xfc:
		return 1
	case x <= 0xffff:
		return 3
	case x <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// EncodeInto writes the variable-length number into buf and returns the size.
func (v TLNum) EncodeInto(buf Buffer) int {
	switch x := uint64(v); {
	case x <= 0xfc:
		buf[0] = byte(x)
		return 1
	case x <= 0xffff:
		buf[0] = 0xfd
		binary.BigEndian.PutUint16(buf[1:], uint16(x))
		return 3
	case x <= 0xffffffff:
		buf[0] = 0xfe
		binary.BigEndian.PutUint32(buf[1:], uint32(x))
		return 5
	default:
		buf[0] = 0xff
		binary.BigEndian.PutUint64(buf[1:], uint64(x))
		return 9
	}
}

// ParseTLNum parses a TLNum from the head of buf.
// pos is zero if buf is too short to hold the number.
func ParseTLNum(buf Buffer) (val TLNum, pos int) {
	if len(buf) == 0 {
		return 0, 0
	}
	switch x := buf[0]; {
	case x <= 0xfc:
		return TLNum(x), 1
	case x == 0xfd:
		if len(buf) < 3 {
			return 0, 0
		}
		return TLNum(binary.BigEndian.Uint16(buf[1:3])), 3
	case x == 0xfe:
		if len(buf) < 5 {
			return 0, 0
		}
		return TLNum(binary.BigEndian.Uint32(buf[1:5])), 5
	default:
		if len(buf) < 9 {
			return 0, 0
		}
		return TLNum(binary.BigEndian.Uint64(buf[1:9])), 9
	}
}

func (v Nat) EncodingLength() int {
	switch x := uint64(v); {
	case x <= 0xff:
		return 1
	case x <= 0xffff:
		return 2
	case x <= 0xffffffff:
		return 4
	default:
		return 8
	}
}

// EncodeInto writes the shortest big-endian form of the number (1, 2, 4 or 8 bytes).
func (v Nat) EncodeInto(buf Buffer) int {
	switch x := uint64(v); {
	case x <= 0xff:
		buf[0] = byte(x)
		return 1
	case x <= 0xffff:
		binary.BigEndian.PutUint16(buf, uint16(x))
		return 2
	case x <= 0xffffffff:
		binary.BigEndian.PutUint32(buf, uint32(x))
		return 4
	default:
		binary.BigEndian.PutUint64(buf, uint64(x))
		return 8
	}
}

func (v Nat) Bytes() []byte {
	buf := make([]byte, v.EncodingLength())
	v.EncodeInto(buf)
	return buf
}

// ParseNat parses a natural number occupying the whole buffer.
func ParseNat(buf Buffer) (val Nat, err error) {
	switch len(buf) {
	case 1:
		val = Nat(buf[0])
	case 2:
		val = Nat(binary.BigEndian.Uint16(buf))
	case 4:
		val = Nat(binary.BigEndian.Uint32(buf))
	case 8:
		val = Nat(binary.BigEndian.Uint64(buf))
	default:
		return 0, ErrFormat{Msg: "natural number length is not 1, 2, 4 or 8"}
	}
	return val, nil
}

// AppendTLV appends a full TLV element to buf.
func AppendTLV(buf []byte, typ TLNum, val []byte) []byte {
	var hdr [18]byte
	n := typ.EncodeInto(hdr[:])
	n += TLNum(len(val)).EncodeInto(hdr[n:])
	buf = append(buf, hdr[:n]...)
	return append(buf, val...)
}

// AppendNat appends a TLV element holding a natural number.
func AppendNat(buf []byte, typ TLNum, val uint64) []byte {
	return AppendTLV(buf, typ, Nat(val).Bytes())
}

func isAlphabet(r byte) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func isDigit(r byte) bool {
	return '0' <= r && r <= '9'
}
