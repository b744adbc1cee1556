package encoding

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	TypeInvalidComponent                TLNum = 0x00
	TypeImplicitSha256DigestComponent   TLNum = 0x01
	TypeParametersSha256DigestComponent TLNum = 0x02
	TypeGenericNameComponent            TLNum = 0x08
	TypeKeywordNameComponent            TLNum = 0x20
	TypeSegmentNameComponent            TLNum = 0x32
	TypeVersionNameComponent            TLNum = 0x36
	TypeTimestampNameComponent          TLNum = 0x38
	TypeSequenceNumNameComponent        TLNum = 0x3a
)

const hexUpper = "0123456789ABCDEF"

// Component is a single typed name component.
type Component struct {
	Typ TLNum
	Val []byte
}

type valueFormat int

const (
	formatText valueFormat = iota
	formatDec
	formatHex
)

type convention struct {
	typ  TLNum
	name string
	vFmt valueFormat
}

var conventions = []convention{
	{TypeImplicitSha256DigestComponent, "sha256digest", formatHex},
	{TypeParametersSha256DigestComponent, "params-sha256", formatHex},
	{TypeSegmentNameComponent, "seg", formatDec},
	{TypeVersionNameComponent, "v", formatDec},
	{TypeTimestampNameComponent, "t", formatDec},
	{TypeSequenceNumNameComponent, "seq", formatDec},
}

func conventionByType(typ TLNum) *convention {
	for i := range conventions {
		if conventions[i].typ == typ {
			return &conventions[i]
		}
	}
	return nil
}

func conventionByName(name string) *convention {
	for i := range conventions {
		if conventions[i].name == name {
			return &conventions[i]
		}
	}
	return nil
}

func NewGenericComponent(s string) Component {
	return Component{Typ: TypeGenericNameComponent, Val: []byte(s)}
}

func NewBytesComponent(typ TLNum, val []byte) Component {
	return Component{Typ: typ, Val: val}
}

func NewNumberComponent(typ TLNum, val uint64) Component {
	return Component{Typ: typ, Val: Nat(val).Bytes()}
}

func NewSegmentComponent(seg uint64) Component {
	return NewNumberComponent(TypeSegmentNameComponent, seg)
}

func NewVersionComponent(v uint64) Component {
	return NewNumberComponent(TypeVersionNameComponent, v)
}

// NumberVal interprets the value as a big-endian unsigned number.
func (c Component) NumberVal() uint64 {
	x := uint64(0)
	for _, b := range c.Val {
		x = (x << 8) | uint64(b)
	}
	return x
}

func (c Component) IsSegment() bool {
	return c.Typ == TypeSegmentNameComponent
}

func (c Component) EncodingLength() int {
	l := len(c.Val)
	return c.Typ.EncodingLength() + TLNum(l).EncodingLength() + l
}

func (c Component) EncodeInto(buf Buffer) int {
	p1 := c.Typ.EncodeInto(buf)
	p2 := TLNum(len(c.Val)).EncodeInto(buf[p1:])
	return p1 + p2 + copy(buf[p1+p2:], c.Val)
}

func (c Component) Equal(rhs Component) bool {
	return c.Typ == rhs.Typ && bytes.Equal(c.Val, rhs.Val)
}

// Compare follows the NDN canonical order: type, then length, then value.
func (c Component) Compare(rhs Component) int {
	switch {
	case c.Typ < rhs.Typ:
		return -1
	case c.Typ > rhs.Typ:
		return 1
	case len(c.Val) < len(rhs.Val):
		return -1
	case len(c.Val) > len(rhs.Val):
		return 1
	default:
		return bytes.Compare(c.Val, rhs.Val)
	}
}

func (c Component) Clone() Component {
	return Component{Typ: c.Typ, Val: bytes.Clone(c.Val)}
}

func (c Component) String() string {
	sb := strings.Builder{}
	c.writeTo(&sb)
	return sb.String()
}

func (c Component) writeTo(sb *strings.Builder) {
	if conv := conventionByType(c.Typ); conv != nil {
		sb.WriteString(conv.name)
		sb.WriteByte('=')
		switch conv.vFmt {
		case formatDec:
			sb.WriteString(strconv.FormatUint(c.NumberVal(), 10))
		case formatHex:
			sb.WriteString(hex.EncodeToString(c.Val))
		}
		return
	}

	if c.Typ != TypeGenericNameComponent {
		sb.WriteString(strconv.FormatUint(uint64(c.Typ), 10))
		sb.WriteByte('=')
	}
	writeText(c.Val, sb)
}

func writeText(val []byte, sb *strings.Builder) {
	onlyPeriods := true
	for _, b := range val {
		if b != '.' {
			onlyPeriods = false
			break
		}
	}
	for _, b := range val {
		if isLegalCompText(b) {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(hexUpper[b>>4])
			sb.WriteByte(hexUpper[b&0x0F])
		}
	}
	// Components made only of periods carry three extra ones in URI form
	if onlyPeriods {
		sb.WriteString("...")
	}
}

func isLegalCompText(b byte) bool {
	return isAlphabet(b) || isDigit(b) || b == '-' || b == '_' || b == '.' || b == '~'
}

// ComponentFromStr parses a single URI component.
func ComponentFromStr(s string) (Component, error) {
	if s == "" {
		return Component{}, ErrFormat{Msg: "empty component", Kind: ErrMalformedName}
	}

	typ := TypeGenericNameComponent
	valStr := s
	if i := strings.IndexByte(s, '='); i >= 0 {
		typStr := s[:i]
		valStr = s[i+1:]
		if conv := conventionByName(typStr); conv != nil {
			val, err := parseFormatted(conv.vFmt, valStr)
			if err != nil {
				return Component{}, err
			}
			return Component{Typ: conv.typ, Val: val}, nil
		}
		t, err := strconv.ParseUint(typStr, 10, 16)
		if err != nil || t == 0 {
			return Component{}, ErrFormat{Msg: "unknown component type " + typStr, Kind: ErrMalformedName}
		}
		typ = TLNum(t)
	}

	val, err := parseText(valStr)
	if err != nil {
		return Component{}, err
	}
	return Component{Typ: typ, Val: val}, nil
}

func parseFormatted(f valueFormat, s string) ([]byte, error) {
	switch f {
	case formatDec:
		x, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, ErrFormat{Msg: "invalid decimal component value " + s, Kind: ErrMalformedName}
		}
		return Nat(x).Bytes(), nil
	case formatHex:
		val, err := hex.DecodeString(s)
		if err != nil {
			return nil, ErrFormat{Msg: "invalid hexadecimal component value " + s, Kind: ErrMalformedName}
		}
		return val, nil
	default:
		return parseText(s)
	}
}

func parseText(s string) ([]byte, error) {
	if strings.Trim(s, ".") == "" {
		if len(s) < 3 {
			return nil, ErrFormat{Msg: "invalid period-only component " + s, Kind: ErrMalformedName}
		}
		return []byte(s[3:]), nil
	}

	val := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		switch {
		case s[i] == '%':
			if i+3 > len(s) {
				return nil, ErrFormat{Msg: "truncated escape in " + s, Kind: ErrMalformedName}
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, ErrFormat{Msg: "invalid escape in " + s, Kind: ErrMalformedName}
			}
			val = append(val, byte(v))
			i += 3
		case s[i] == '=' || s[i] == '/' || s[i] == '\\':
			return nil, ErrFormat{Msg: "invalid character in " + s, Kind: ErrMalformedName}
		default:
			// Gracefully accept other unescaped characters
			val = append(val, s[i])
			i++
		}
	}
	return val, nil
}

// Bytes returns the full TLV encoding of the component.
func (c Component) Bytes() []byte {
	buf := make([]byte, c.EncodingLength())
	c.EncodeInto(buf)
	return buf
}
