package face

import (
	"errors"
	"fmt"
	"net/url"

	enc "github.com/named-data/ndnrpc/std/encoding"
)

// ErrFraming is returned by a connection whose stream framing cannot be
// recovered. The connection must be reset.
var ErrFraming = errors.New("unrecoverable framing")

// Transport dials connections to the forwarder.
type Transport interface {
	fmt.Stringer
	// Dial opens a new connection.
	Dial() (Conn, error)
}

// Conn is one established connection carrying TLV frames.
type Conn interface {
	// Receive blocks, calling onFrame for each complete frame, until the
	// connection fails or is closed.
	Receive(onFrame func(frame []byte)) error
	// Send writes one frame. Callers serialize sends.
	Send(pkt enc.Wire) error
	// Close stops the connection.
	Close() error
}

// ParseTransport creates a transport from a face URI:
// unix:///path, tcp://host:port, ws://host:port/path or wss://...
func ParseTransport(uri string) (Transport, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid face URI %s: %w", uri, err)
	}

	switch u.Scheme {
	case "unix":
		if u.Path == "" {
			return nil, fmt.Errorf("invalid face URI %s: missing socket path", uri)
		}
		return NewStreamTransport("unix", u.Path), nil
	case "tcp", "tcp4", "tcp6":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid face URI %s: missing host", uri)
		}
		return NewStreamTransport(u.Scheme, u.Host), nil
	case "ws", "wss":
		return NewWebSocketTransport(u.String()), nil
	}

	return nil, fmt.Errorf("unsupported face URI scheme: %s", uri)
}
