package face

import (
	"errors"
	"sync"
	"sync/atomic"

	enc "github.com/named-data/ndnrpc/std/encoding"
)

// DummyTransport is an in-memory transport for tests. Every Dial yields a
// new DummyConn, also published on Dialed.
type DummyTransport struct {
	failDials atomic.Int32
	dialed    chan *DummyConn
}

func NewDummyTransport() *DummyTransport {
	return &DummyTransport{dialed: make(chan *DummyConn, 16)}
}

func (t *DummyTransport) String() string {
	return "dummy-transport"
}

// FailDials makes the next n dials fail.
func (t *DummyTransport) FailDials(n int) {
	t.failDials.Store(int32(n))
}

// Dialed delivers each connection as it is established.
func (t *DummyTransport) Dialed() <-chan *DummyConn {
	return t.dialed
}

func (t *DummyTransport) Dial() (Conn, error) {
	if t.failDials.Add(-1) >= 0 {
		return nil, errors.New("dummy dial failure")
	}
	t.failDials.Store(0)

	c := &DummyConn{
		in:     make(chan []byte, 64),
		sent:   make(chan []byte, 64),
		broken: make(chan error, 1),
		closed: make(chan struct{}),
	}
	t.dialed <- c
	return c, nil
}

// DummyConn is one connection of a DummyTransport.
type DummyConn struct {
	in     chan []byte
	sent   chan []byte
	broken chan error
	closed chan struct{}
	once   sync.Once
}

// Feed delivers a frame as if it was received from the forwarder.
func (c *DummyConn) Feed(frame []byte) {
	c.in <- frame
}

// Sent delivers frames written to the connection.
func (c *DummyConn) Sent() <-chan []byte {
	return c.sent
}

// Break fails the connection with err.
func (c *DummyConn) Break(err error) {
	select {
	case c.broken <- err:
	default:
	}
}

func (c *DummyConn) Send(pkt enc.Wire) error {
	select {
	case <-c.closed:
		return errors.New("connection is closed")
	default:
	}
	c.sent <- pkt.Join()
	return nil
}

func (c *DummyConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *DummyConn) Receive(onFrame func([]byte)) error {
	for {
		select {
		case <-c.closed:
			return nil
		case err := <-c.broken:
			return err
		case frame := <-c.in:
			onFrame(frame)
		}
	}
}
