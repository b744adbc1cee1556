package face

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
)

// Face keeps one logical duplex channel to the forwarder. The underlying
// connection is re-established with exponential backoff whenever it fails,
// and the receive channel survives reconnects.
type Face struct {
	transport Transport
	// NewBackOff creates the reconnect policy. It may be replaced before Connect.
	NewBackOff func() backoff.BackOff

	conn    Conn
	sendMut sync.Mutex
	running atomic.Bool
	recv    chan *ndn.Packet

	cbMut    sync.Mutex
	onUp     map[int]func()
	onUpHndl int

	malformed  atomic.Uint64
	resets     atomic.Uint64
	reconnects atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// Counters are running totals of adapter events.
type Counters struct {
	Malformed  uint64
	Resets     uint64
	Reconnects uint64
}

func NewFace(transport Transport) *Face {
	return &Face{
		transport:  transport,
		NewBackOff: DefaultBackOff,
		recv:       make(chan *ndn.Packet, 256),
		onUp:       make(map[int]func()),
	}
}

// DefaultBackOff retries forever between 1s and 30s with 20% jitter.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (f *Face) String() string {
	return fmt.Sprintf("face (%s)", f.transport)
}

func (f *Face) IsRunning() bool {
	return f.running.Load()
}

// OnUp registers a callback made after every successful (re)connect.
func (f *Face) OnUp(onUp func()) (cancel func()) {
	f.cbMut.Lock()
	defer f.cbMut.Unlock()
	hndl := f.onUpHndl
	f.onUp[hndl] = onUp
	f.onUpHndl++
	return func() {
		f.cbMut.Lock()
		defer f.cbMut.Unlock()
		delete(f.onUp, hndl)
	}
}

// Receive returns the inbound packet stream. It is closed by Close.
func (f *Face) Receive() <-chan *ndn.Packet {
	return f.recv
}

func (f *Face) Counters() Counters {
	return Counters{
		Malformed:  f.malformed.Load(),
		Resets:     f.resets.Load(),
		Reconnects: f.reconnects.Load(),
	}
}

// Connect establishes the channel, retrying until it succeeds or ctx is
// cancelled. After it returns nil the face keeps itself connected until Close.
func (f *Face) Connect(ctx context.Context) error {
	if f.cancel != nil {
		return errors.New("face is already connected")
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, err := f.dial(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %w", ndn.ErrTransport, err)
	}

	f.cancel = cancel
	f.done = make(chan struct{})
	f.setStateUp(ctx, conn)
	go f.run(ctx, conn)
	return nil
}

// Close stops the face and closes the receive channel.
func (f *Face) Close() error {
	if f.cancel == nil {
		return nil
	}
	f.cancel()

	var err error
	f.sendMut.Lock()
	f.running.Store(false)
	if f.conn != nil {
		err = f.conn.Close()
		f.conn = nil
	}
	f.sendMut.Unlock()

	<-f.done
	close(f.recv)
	return err
}

// Send writes one frame. It returns ErrTransport if the channel is down.
func (f *Face) Send(pkt enc.Wire) error {
	f.sendMut.Lock()
	defer f.sendMut.Unlock()

	if !f.running.Load() || f.conn == nil {
		return fmt.Errorf("%w: face is not running", ndn.ErrTransport)
	}
	if err := f.conn.Send(pkt); err != nil {
		return fmt.Errorf("%w: %w", ndn.ErrTransport, err)
	}
	return nil
}

func (f *Face) dial(ctx context.Context) (Conn, error) {
	b := backoff.WithContext(f.NewBackOff(), ctx)
	return backoff.RetryNotifyWithData(f.transport.Dial, b, func(err error, d time.Duration) {
		log.Warn(f, "Unable to connect to forwarder", "err", err, "retry", d)
	})
}

// setStateUp installs conn unless the face is closing.
func (f *Face) setStateUp(ctx context.Context, conn Conn) bool {
	f.sendMut.Lock()
	if ctx.Err() != nil {
		f.sendMut.Unlock()
		conn.Close()
		return false
	}
	f.conn = conn
	f.running.Store(true)
	f.sendMut.Unlock()

	log.Info(f, "Connected to forwarder")

	f.cbMut.Lock()
	cbs := make([]func(), 0, len(f.onUp))
	for _, cb := range f.onUp {
		cbs = append(cbs, cb)
	}
	f.cbMut.Unlock()
	for _, cb := range cbs {
		cb()
	}
	return true
}

func (f *Face) setStateDown(conn Conn) {
	f.sendMut.Lock()
	if f.conn == conn {
		f.conn = nil
		f.running.Store(false)
	}
	f.sendMut.Unlock()
	conn.Close()
}

func (f *Face) run(ctx context.Context, conn Conn) {
	defer close(f.done)

	for {
		err := conn.Receive(func(frame []byte) {
			f.onFrame(ctx, frame)
		})
		f.setStateDown(conn)
		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, ErrFraming) {
			f.resets.Add(1)
			log.Warn(f, "Resetting connection", "err", err)
		} else {
			log.Warn(f, "Connection lost, reconnecting", "err", err)
		}

		conn, err = f.dial(ctx)
		if err != nil {
			return
		}
		f.reconnects.Add(1)
		if !f.setStateUp(ctx, conn) {
			return
		}
	}
}

func (f *Face) onFrame(ctx context.Context, frame []byte) {
	// The frame buffer is reused by the reader
	frame = append([]byte(nil), frame...)

	pkt, err := ndn.ParsePacket(frame)
	if err != nil {
		f.malformed.Add(1)
		log.Debug(f, "Dropped malformed frame", "err", err)
		return
	}

	select {
	case f.recv <- pkt:
	case <-ctx.Done():
	}
}
