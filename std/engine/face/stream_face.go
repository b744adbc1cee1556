package face

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
)

const streamDialTimeout = 5 * time.Second

// StreamTransport connects over a unix or tcp stream socket.
type StreamTransport struct {
	network string
	addr    string
}

func NewStreamTransport(network string, addr string) *StreamTransport {
	return &StreamTransport{network: network, addr: addr}
}

func (t *StreamTransport) String() string {
	return fmt.Sprintf("stream-transport (%s://%s)", t.network, t.addr)
}

func (t *StreamTransport) Dial() (Conn, error) {
	c, err := net.DialTimeout(t.network, t.addr, streamDialTimeout)
	if err != nil {
		return nil, err
	}
	return &streamConn{conn: c}, nil
}

type streamConn struct {
	conn net.Conn
}

func (c *streamConn) Send(pkt enc.Wire) error {
	_, err := c.conn.Write(pkt.Join())
	return err
}

func (c *streamConn) Close() error {
	return c.conn.Close()
}

func (c *streamConn) Receive(onFrame func([]byte)) error {
	return ReadTlvStream(c.conn, onFrame)
}

// ReadTlvStream reads TLV frames from a byte stream, calling onFrame for
// each complete frame. The frame slice is only valid during the call.
// It returns nil on EOF, and ErrFraming if a frame length exceeds the
// maximum packet size.
func ReadTlvStream(reader io.Reader, onFrame func([]byte)) error {
	recvBuf := make([]byte, ndn.MaxNDNPacketSize*8)
	recvOff := 0
	tlvOff := 0

	for {
		// If less than one packet space remains in buffer, shift to beginning
		if len(recvBuf)-recvOff < ndn.MaxNDNPacketSize {
			copy(recvBuf, recvBuf[tlvOff:recvOff])
			recvOff -= tlvOff
			tlvOff = 0
		}

		// Read multiple packets at once
		readSize, err := reader.Read(recvBuf[recvOff:])
		recvOff += readSize
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		for {
			buf := recvBuf[tlvOff:recvOff]
			typ, typLen := enc.ParseTLNum(buf)
			if typLen == 0 {
				break // incomplete
			}
			length, lenLen := enc.ParseTLNum(buf[typLen:])
			if lenLen == 0 {
				break // incomplete
			}

			tlvSize := typLen + lenLen + int(length)
			if typ == 0 || length > ndn.MaxNDNPacketSize || tlvSize > ndn.MaxNDNPacketSize {
				return fmt.Errorf("%w: TLV-TYPE=%d TLV-LENGTH=%d", ErrFraming, typ, length)
			}
			if recvOff-tlvOff < tlvSize {
				break // incomplete
			}

			onFrame(recvBuf[tlvOff : tlvOff+tlvSize])
			tlvOff += tlvSize
		}
	}
}
