package encoding

import "errors"

// Buffer is a buffer of bytes
type Buffer []byte

// Wire is a collection of Buffer. May be allocated in non-contiguous memory.
type Wire []Buffer

// ErrMalformedName is returned when a name cannot be parsed from text or TLV.
var ErrMalformedName = errors.New("malformed name")

// Join concatenates all buffers of the wire.
func (w Wire) Join() []byte {
	if len(w) == 0 {
		return []byte{}
	} else if len(w) == 1 {
		return w[0]
	}

	b := make([]byte, 0, w.Length())
	for _, v := range w {
		b = append(b, v...)
	}
	return b
}

func (w Wire) Length() uint64 {
	ret := uint64(0)
	for _, v := range w {
		ret += uint64(len(v))
	}
	return ret
}

// ErrFormat is a TLV format error. It wraps the sentinel it was
// raised for, so callers can test it with errors.Is.
type ErrFormat struct {
	Msg  string
	Kind error
}

func (e ErrFormat) Error() string {
	if e.Kind != nil {
		return e.Kind.Error() + ": " + e.Msg
	}
	return e.Msg
}

func (e ErrFormat) Unwrap() error {
	return e.Kind
}
