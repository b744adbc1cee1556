package encoding

// Reader walks a sequence of TLV elements in a contiguous buffer.
type Reader struct {
	buf Buffer
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Done reports whether all bytes have been consumed.
func (r *Reader) Done() bool {
	return r.pos >= len(r.buf)
}

func (r *Reader) Pos() int {
	return r.pos
}

// Peek returns the type of the next element without consuming it.
func (r *Reader) Peek() (TLNum, bool) {
	typ, n := ParseTLNum(r.buf[r.pos:])
	return typ, n > 0
}

// ReadTLV reads one element and returns its type and value.
// The value aliases the underlying buffer.
func (r *Reader) ReadTLV() (TLNum, Buffer, error) {
	typ, n := ParseTLNum(r.buf[r.pos:])
	if n == 0 {
		return 0, nil, ErrFormat{Msg: "truncated TLV type"}
	}
	l, m := ParseTLNum(r.buf[r.pos+n:])
	if m == 0 {
		return 0, nil, ErrFormat{Msg: "truncated TLV length"}
	}
	start := r.pos + n + m
	if uint64(len(r.buf)-start) < uint64(l) {
		return 0, nil, ErrFormat{Msg: "TLV length exceeds buffer"}
	}
	end := start + int(l)
	r.pos = end
	return typ, r.buf[start:end], nil
}

// ReadExpect reads one element and fails if its type is not typ.
func (r *Reader) ReadExpect(typ TLNum) (Buffer, error) {
	t, v, err := r.ReadTLV()
	if err != nil {
		return nil, err
	}
	if t != typ {
		return nil, ErrFormat{Msg: "unexpected TLV type " + t.String()}
	}
	return v, nil
}

// IsCritical reports whether an unrecognized element must cause a decoding failure.
func IsCritical(typ TLNum) bool {
	return typ <= 31 || typ%2 == 1
}

func (v TLNum) String() string {
	const hex = "0123456789abcdef"
	if v == 0 {
		return "0x0"
	}
	var b [18]byte
	i := len(b)
	for x := uint64(v); x > 0; x >>= 4 {
		i--
		b[i] = hex[x&0xf]
	}
	i -= 2
	b[i], b[i+1] = '0', 'x'
	return string(b[i:])
}
