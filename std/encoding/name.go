package encoding

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Name is an immutable sequence of components.
// Operations that extend a name always return a copy.
type Name []Component

const TypeName TLNum = 0x07

// NameFromStr parses a URI string into a Name.
// "/" (and "") denote the root name. A single trailing slash is tolerated;
// any other empty component fails with ErrMalformedName.
func NameFromStr(s string) (Name, error) {
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return Name{}, nil
	}

	strs := strings.Split(s, "/")
	ret := make(Name, len(strs))
	for i, str := range strs {
		c, err := ComponentFromStr(str)
		if err != nil {
			return nil, err
		}
		ret[i] = c
	}
	return ret, nil
}

// MustNameFromStr is NameFromStr for literals; it panics on error.
func MustNameFromStr(s string) Name {
	n, err := NameFromStr(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	sb := strings.Builder{}
	for _, c := range n {
		sb.WriteByte('/')
		c.writeTo(&sb)
	}
	return sb.String()
}

// EncodingLength computes a Name's length after encoding **excluding** the TL prefix.
func (n Name) EncodingLength() int {
	l := 0
	for _, c := range n {
		l += c.EncodingLength()
	}
	return l
}

// EncodeInto encodes a Name into a Buffer **excluding** the TL prefix.
func (n Name) EncodeInto(buf Buffer) int {
	pos := 0
	for _, c := range n {
		pos += c.EncodeInto(buf[pos:])
	}
	return pos
}

// BytesInner returns the encoded components without the Name TL header.
func (n Name) BytesInner() []byte {
	buf := make([]byte, n.EncodingLength())
	n.EncodeInto(buf)
	return buf
}

// Bytes returns the full TLV encoding of the name.
func (n Name) Bytes() []byte {
	return AppendTLV(nil, TypeName, n.BytesInner())
}

// ReadNameValue decodes the value part of a Name TLV.
func ReadNameValue(val []byte) (Name, error) {
	r := NewReader(val)
	ret := make(Name, 0, 8)
	for !r.Done() {
		typ, v, err := r.ReadTLV()
		if err != nil {
			return nil, ErrFormat{Msg: err.Error(), Kind: ErrMalformedName}
		}
		if typ == TypeInvalidComponent || typ > 0xffff {
			return nil, ErrFormat{Msg: "invalid component type " + typ.String(), Kind: ErrMalformedName}
		}
		ret = append(ret, Component{Typ: typ, Val: v})
	}
	return ret, nil
}

// NameFromBytes parses a full Name TLV.
func NameFromBytes(buf []byte) (Name, error) {
	r := NewReader(buf)
	val, err := r.ReadExpect(TypeName)
	if err != nil {
		return nil, ErrFormat{Msg: err.Error(), Kind: ErrMalformedName}
	}
	if !r.Done() {
		return nil, ErrFormat{Msg: "trailing bytes after name", Kind: ErrMalformedName}
	}
	return ReadNameValue(val)
}

// Append returns a copy of the name with the components appended.
func (n Name) Append(rest ...Component) Name {
	ret := make(Name, len(n)+len(rest))
	copy(ret, n)
	copy(ret[len(n):], rest)
	return ret
}

func (n Name) At(i int) Component {
	if i < -len(n) || i >= len(n) {
		return Component{}
	}
	if i < 0 {
		return n[len(n)+i]
	}
	return n[i]
}

// Prefix returns the first i components. Negative i drops from the end.
func (n Name) Prefix(i int) Name {
	if i < 0 {
		i = len(n) + i
	}
	if i <= 0 {
		return Name{}
	}
	if i >= len(n) {
		return n
	}
	return n[:i]
}

func (n Name) Clone() Name {
	ret := make(Name, len(n))
	for i, c := range n {
		ret[i] = c.Clone()
	}
	return ret
}

func (n Name) Compare(rhs Name) int {
	for i := 0; i < min(len(n), len(rhs)); i++ {
		if ret := n[i].Compare(rhs[i]); ret != 0 {
			return ret
		}
	}
	switch {
	case len(n) < len(rhs):
		return -1
	case len(n) > len(rhs):
		return 1
	default:
		return 0
	}
}

func (n Name) Equal(rhs Name) bool {
	if len(n) != len(rhs) {
		return false
	}
	for i := range n {
		if !n[i].Equal(rhs[i]) {
			return false
		}
	}
	return true
}

// IsPrefix returns true if n is a prefix of rhs, i.e. rhs is covered by n.
func (n Name) IsPrefix(rhs Name) bool {
	if len(n) > len(rhs) {
		return false
	}
	for i := range n {
		if !n[i].Equal(rhs[i]) {
			return false
		}
	}
	return true
}

// CommonPrefixLen returns the number of leading components shared by both names.
func (n Name) CommonPrefixLen(rhs Name) int {
	i := 0
	for i < len(n) && i < len(rhs) && n[i].Equal(rhs[i]) {
		i++
	}
	return i
}

// Hash returns the xxhash of the encoded components.
func (n Name) Hash() uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 64)
	for _, c := range n {
		if l := c.EncodingLength(); l > cap(buf) {
			buf = make([]byte, l)
		} else {
			buf = buf[:l]
		}
		c.EncodeInto(buf)
		h.Write(buf)
	}
	return h.Sum64()
}

// Key returns a string usable as a map key for the name.
func (n Name) Key() string {
	return string(n.BytesInner())
}

// SegmentNum returns the segment number if the last component is a segment.
func (n Name) SegmentNum() (uint64, bool) {
	if len(n) == 0 || !n[len(n)-1].IsSegment() {
		return 0, false
	}
	return n[len(n)-1].NumberVal(), true
}
