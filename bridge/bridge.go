// Package bridge translates between NDN Interest/Data exchanges and gRPC
// unary calls, in both directions.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/named-data/ndnrpc/bridge/rpc"
	"github.com/named-data/ndnrpc/bridge/store"
	"github.com/named-data/ndnrpc/bridge/table"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/engine"
	"github.com/named-data/ndnrpc/std/engine/face"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
	"github.com/named-data/ndnrpc/std/security"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Deps replaces resources that Start would otherwise create from the
// configuration. Zero fields are created by Start.
type Deps struct {
	Face        *face.Face
	Keys        *security.KeyStore
	Trust       *security.TrustStore
	Store       store.Store
	Invoker     rpc.Invoker
	Timer       ndn.Timer
	RpcListener net.Listener
}

type Bridge struct {
	config *Config
	deps   Deps

	face    *face.Face
	keys    *security.KeyStore
	trust   *security.TrustStore
	store   store.Store
	invoker rpc.Invoker
	timer   ndn.Timer

	router  *table.Router[*RouteConfig]
	inPit   *table.Pit[struct{}]
	outPit  *table.Pit[[]byte]
	workers *semaphore.Weighted
	mapper  *rpc.MethodMapper
	gateway *rpc.Gateway
	metrics *Metrics
	httpSrv *http.Server

	cancel  context.CancelFunc
	group   *errgroup.Group
	closers []func() error
}

func NewBridge(config *Config, deps Deps) *Bridge {
	return &Bridge{
		config:  config,
		deps:    deps,
		router:  table.NewRouter[*RouteConfig](),
		metrics: NewMetrics(),
	}
}

func (b *Bridge) String() string {
	return "bridge"
}

func (b *Bridge) Metrics() *Metrics {
	return b.metrics
}

// Start opens all resources, connects to the forwarder and starts serving.
func (b *Bridge) Start() (err error) {
	log.Info(b, "Starting NDN-gRPC bridge", "face", b.config.Bridge.Face, "routes", len(b.config.Routes))
	defer func() {
		if err != nil {
			if b.cancel != nil {
				b.cancel()
			}
			b.close()
		}
	}()

	if err = b.open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.group, ctx = errgroup.WithContext(ctx)

	// Without the NDN to RPC direction no prefix is served or announced
	if b.config.Bridge.Enabled {
		for _, r := range b.config.Routes {
			b.router.Register(r.PrefixN, r)
		}
		if err = b.publish(); err != nil {
			return err
		}
		b.face.OnUp(func() {
			go b.announce(ctx)
		})
	}
	if err = b.face.Connect(ctx); err != nil {
		return err
	}
	b.closers = append(b.closers, b.face.Close)

	b.group.Go(func() error {
		b.inPit.Run(ctx, b.config.Pit.SweepInterval(), func(n int) {
			b.metrics.Expired.WithLabelValues("inbound").Add(float64(n))
		})
		return nil
	})
	b.group.Go(func() error {
		b.outPit.Run(ctx, b.config.Pit.SweepInterval(), func(n int) {
			b.metrics.Expired.WithLabelValues("outbound").Add(float64(n))
		})
		return nil
	})
	b.group.Go(func() error {
		b.dispatch(ctx)
		return nil
	})

	if err = b.startGateway(); err != nil {
		return err
	}
	if err = b.startMetrics(); err != nil {
		return err
	}
	return nil
}

// Stop unregisters the routes and releases all resources.
func (b *Bridge) Stop() error {
	log.Info(b, "Stopping NDN-gRPC bridge")

	if b.gateway != nil {
		b.gateway.Stop()
	}
	if b.face != nil && b.face.IsRunning() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		b.withdraw(ctx)
		cancel()
	}
	if b.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		b.httpSrv.Shutdown(ctx)
		cancel()
	}
	if b.cancel != nil {
		b.cancel()
	}
	err := b.close()
	if b.group != nil {
		b.group.Wait()
	}
	return err
}

func (b *Bridge) close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

func (b *Bridge) open() (err error) {
	b.timer = b.deps.Timer
	if b.timer == nil {
		b.timer = ndn.NewTimer()
	}
	b.inPit = table.NewPit[struct{}](b.timer)
	b.outPit = table.NewPit[[]byte](b.timer)
	b.outPit.OnExpire = b.onOutboundExpire
	b.workers = semaphore.NewWeighted(int64(b.config.Bridge.Workers))

	b.face = b.deps.Face
	if b.face == nil {
		if b.face, err = engine.NewFace(b.config.Bridge.Face); err != nil {
			return err
		}
	}
	b.metrics.registerFace(b.face)

	b.keys = b.deps.Keys
	if b.keys == nil && b.config.Security.KeyStorePath != "" {
		if b.keys, err = security.OpenKeyStore(b.config.Security.KeyStorePath); err != nil {
			return err
		}
		b.closers = append(b.closers, b.keys.Close)
	}
	if b.keys != nil && b.config.Bridge.DefaultIdentityN != nil {
		if err = b.keys.SetDefaultIdentity(b.config.Bridge.DefaultIdentityN); err != nil {
			return fmt.Errorf("default identity: %w", err)
		}
	}

	b.trust = b.deps.Trust
	if b.trust == nil && b.config.Security.TrustStorePath != "" {
		if b.trust, err = security.LoadTrustStore(b.config.Security.TrustStorePath); err != nil {
			return err
		}
	}

	b.store = b.deps.Store
	if b.store == nil {
		if b.store, err = store.Open(b.config.Store.Path, b.config.Store.Freshness()); err != nil {
			return fmt.Errorf("segment store: %w", err)
		}
		b.closers = append(b.closers, b.store.Close)
	}

	b.invoker = b.deps.Invoker
	if b.invoker == nil {
		pool := rpc.NewClientPool()
		b.invoker = pool
		b.closers = append(b.closers, pool.Close)
	}

	exports := make(map[string]enc.Name, len(b.config.Rpc.Exports))
	for _, e := range b.config.Rpc.Exports {
		exports[e.Method] = e.NameN
	}
	b.mapper = rpc.NewMethodMapper(b.config.Rpc.GatewayPrefixN, exports)
	return nil
}

// publish loads the configured files into the segment store.
func (b *Bridge) publish() error {
	for _, p := range b.config.Publish {
		content, err := os.ReadFile(p.File)
		if err != nil {
			return fmt.Errorf("publish %s: %w", p.Name, err)
		}
		if err = b.Publish(p.NameN, content); err != nil {
			return fmt.Errorf("publish %s: %w", p.Name, err)
		}
	}
	return nil
}

func (b *Bridge) startGateway() error {
	lis := b.deps.RpcListener
	if lis == nil {
		if b.config.Rpc.Listen == "" {
			return nil
		}
		var err error
		if lis, err = net.Listen("tcp", b.config.Rpc.Listen); err != nil {
			return fmt.Errorf("rpc gateway: %w", err)
		}
	}

	b.gateway = rpc.NewGateway(b.handleCall)
	go func() {
		if err := b.gateway.Serve(lis); err != nil {
			log.Error(b, "gRPC gateway stopped", "err", err)
		}
	}()
	return nil
}

func (b *Bridge) startMetrics() error {
	if b.config.Metrics.Listen == "" {
		return nil
	}
	lis, err := net.Listen("tcp", b.config.Metrics.Listen)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	b.httpSrv = b.metrics.serve(lis)
	return nil
}

// dispatch is the event loop. It owns all reassembly state.
func (b *Bridge) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-b.face.Receive():
			if !ok {
				return
			}
			switch {
			case pkt.Interest != nil:
				b.onInterest(pkt)
			case pkt.Data != nil:
				b.onData(pkt)
			case pkt.Nack != nil:
				b.onNack(pkt)
			}
		}
	}
}

// send writes a packet to the forwarder, logging failures.
func (b *Bridge) send(wire []byte) bool {
	if err := b.face.Send(enc.Wire{wire}); err != nil {
		log.Warn(b, "Unable to send packet", "err", err)
		return false
	}
	return true
}
