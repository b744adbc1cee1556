package rpc

import (
	"context"
	"net"
	"time"

	"github.com/named-data/ndnrpc/std/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Handler serves one unary call received by the gateway.
type Handler func(ctx context.Context, method string, req []byte, md metadata.MD) ([]byte, error)

// Gateway is a gRPC server that accepts calls on any method and hands the
// raw request body to a Handler. It also serves the standard health service.
type Gateway struct {
	server  *grpc.Server
	health  *health.Server
	handler Handler
}

func NewGateway(handler Handler, opts ...grpc.ServerOption) *Gateway {
	g := &Gateway{
		health:  health.NewServer(),
		handler: handler,
	}

	opts = append([]grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    keepAliveTime,
			Timeout: keepAliveTimeout,
		}),
		grpc.ForceServerCodec(Codec),
		grpc.UnknownServiceHandler(g.serveStream),
	}, opts...)

	g.server = grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(g.server, g.health)
	return g
}

func (g *Gateway) String() string {
	return "rpc-gateway"
}

// Serve accepts calls on lis until Stop.
func (g *Gateway) Serve(lis net.Listener) error {
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	log.Info(g, "Serving gRPC", "addr", lis.Addr())
	return g.server.Serve(lis)
}

// Stop drains in-flight calls and stops the server.
func (g *Gateway) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}

func (g *Gateway) serveStream(_ any, stream grpc.ServerStream) error {
	method, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "method name unavailable")
	}

	in := &Frame{}
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	md, _ := metadata.FromIncomingContext(stream.Context())
	out, err := g.handler(stream.Context(), method, in.Payload, md)
	if err != nil {
		return ToStatus(err).Err()
	}
	return stream.SendMsg(&Frame{Payload: out})
}
