// Package rpc carries opaque protobuf payloads over gRPC, in both
// directions of the bridge.
package rpc

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

// Metadata keys attached to bridged calls.
const (
	MetadataName  = "ndn-name"
	MetadataNonce = "ndn-nonce"
)

const (
	keepAliveTime    = 30 * time.Second
	keepAliveTimeout = 10 * time.Second
)

// Invoker performs one unary call with an opaque request body.
type Invoker interface {
	Invoke(ctx context.Context, target string, method string, req []byte, md metadata.MD) ([]byte, error)
}

// ClientPool keeps one client connection per target address.
type ClientPool struct {
	mutex  sync.Mutex
	conns  map[string]*grpc.ClientConn
	opts   []grpc.DialOption
	closed bool
}

// NewClientPool creates a pool. Without options, connections are
// plaintext with keepalive.
func NewClientPool(opts ...grpc.DialOption) *ClientPool {
	if len(opts) == 0 {
		opts = DefaultDialOptions()
	}
	return &ClientPool{
		conns: make(map[string]*grpc.ClientConn),
		opts:  opts,
	}
}

func DefaultDialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                keepAliveTime,
			Timeout:             keepAliveTimeout,
			PermitWithoutStream: true,
		}),
	}
}

func (p *ClientPool) String() string {
	return "rpc-client-pool"
}

// Conn returns the connection for target, creating it on first use.
func (p *ClientPool) Conn(target string) (*grpc.ClientConn, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil, errors.New("client pool is closed")
	}
	if cc, ok := p.conns[target]; ok {
		return cc, nil
	}

	cc, err := grpc.NewClient(target, p.opts...)
	if err != nil {
		return nil, err
	}
	p.conns[target] = cc
	log.Debug(p, "Created client connection", "target", target)
	return cc, nil
}

func (p *ClientPool) Invoke(ctx context.Context, target string, method string, req []byte, md metadata.MD) ([]byte, error) {
	cc, err := p.Conn(target)
	if err != nil {
		return nil, err
	}
	if md != nil {
		ctx = metadata.NewOutgoingContext(ctx, md)
	}

	out := &Frame{}
	err = cc.Invoke(ctx, method, &Frame{Payload: req}, out, grpc.ForceCodec(Codec))
	if err != nil {
		return nil, err
	}
	return out.Payload, nil
}

func (p *ClientPool) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.closed = true
	var errs []error
	for target, cc := range p.conns {
		errs = append(errs, cc.Close())
		delete(p.conns, target)
	}
	return errors.Join(errs...)
}

// RequestMetadata is the metadata attached to a call made for an Interest.
func RequestMetadata(name enc.Name, nonce uint32) metadata.MD {
	return metadata.Pairs(
		MetadataName, name.String(),
		MetadataNonce, strconv.FormatUint(uint64(nonce), 10),
	)
}
