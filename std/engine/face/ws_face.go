package face

import (
	"fmt"

	"github.com/gorilla/websocket"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
)

// WebSocketTransport connects to a forwarder WebSocket endpoint.
// Each binary message carries one frame.
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
}

func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{url: url, dialer: websocket.DefaultDialer}
}

func (t *WebSocketTransport) String() string {
	return fmt.Sprintf("websocket-transport (%s)", t.url)
}

func (t *WebSocketTransport) Dial() (Conn, error) {
	c, _, err := t.dialer.Dial(t.url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(ndn.MaxNDNPacketSize)
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(pkt enc.Wire) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, pkt.Join())
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) Receive(onFrame func([]byte)) error {
	for {
		messageType, pkt, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if err == websocket.ErrReadLimit {
				return fmt.Errorf("%w: %w", ErrFraming, err)
			}
			return err
		}

		if messageType != websocket.BinaryMessage {
			continue
		}
		onFrame(pkt)
	}
}
