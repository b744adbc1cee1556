package rpc_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/named-data/ndnrpc/bridge/rpc"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
	tu "github.com/named-data/ndnrpc/std/utils/testutils"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
)

func startGateway(t *testing.T, h rpc.Handler) *rpc.ClientPool {
	lis := bufconn.Listen(1 << 20)
	gw := rpc.NewGateway(h)
	go gw.Serve(lis)
	t.Cleanup(gw.Stop)

	pool := rpc.NewClientPool(
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestGatewayRoundTrip(t *testing.T) {
	tu.SetT(t)
	type call struct {
		method string
		req    []byte
		md     metadata.MD
	}
	calls := make(chan call, 1)

	pool := startGateway(t, func(ctx context.Context, method string, req []byte, md metadata.MD) ([]byte, error) {
		calls <- call{method, req, md}
		return append([]byte("echo:"), req...), nil
	})

	md := rpc.RequestMetadata(enc.MustNameFromStr("/svc/echo/1"), 42)
	out := tu.NoErr(pool.Invoke(context.Background(), "passthrough:///bufnet", "/echo.Echo/Say", []byte("hi"), md))
	require.Equal(t, []byte("echo:hi"), out)

	c := tu.Recv(calls, time.Second)
	require.Equal(t, "/echo.Echo/Say", c.method)
	require.Equal(t, []byte("hi"), c.req)
	require.Equal(t, []string{"/svc/echo/1"}, c.md.Get(rpc.MetadataName))
	require.Equal(t, []string{"42"}, c.md.Get(rpc.MetadataNonce))

	// empty request body
	out = tu.NoErr(pool.Invoke(context.Background(), "passthrough:///bufnet", "/echo.Echo/Say", nil, nil))
	require.Equal(t, []byte("echo:"), out)
	tu.Recv(calls, time.Second)
}

func TestGatewayErrors(t *testing.T) {
	tu.SetT(t)
	pool := startGateway(t, func(ctx context.Context, method string, req []byte, md metadata.MD) ([]byte, error) {
		switch string(req) {
		case "status":
			return nil, status.Error(codes.PermissionDenied, "denied")
		case "nack":
			return nil, ndn.NackError{Reason: ndn.NackReasonNoRoute}
		case "timeout":
			return nil, fmt.Errorf("%w: /x", ndn.ErrTimeout)
		}
		return nil, errors.New("boom")
	})

	codeOf := func(req string) codes.Code {
		_, err := pool.Invoke(context.Background(), "passthrough:///bufnet", "/a.B/C", []byte(req), nil)
		require.Error(t, err)
		return status.Code(err)
	}
	require.Equal(t, codes.PermissionDenied, codeOf("status"))
	require.Equal(t, codes.Unavailable, codeOf("nack"))
	require.Equal(t, codes.DeadlineExceeded, codeOf("timeout"))
	require.Equal(t, codes.Internal, codeOf("other"))
}

func TestGatewayHealth(t *testing.T) {
	tu.SetT(t)
	pool := startGateway(t, nil)

	req := tu.NoErr(proto.Marshal(&healthpb.HealthCheckRequest{}))
	out := tu.NoErr(pool.Invoke(context.Background(), "passthrough:///bufnet", "/grpc.health.v1.Health/Check", req, nil))

	res := &healthpb.HealthCheckResponse{}
	require.NoError(t, proto.Unmarshal(out, res))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, res.Status)
}

func TestStatusMapping(t *testing.T) {
	tu.SetT(t)
	cases := []struct {
		err  error
		code codes.Code
	}{
		{ndn.NackError{Reason: ndn.NackReasonNoRoute}, codes.Unavailable},
		{ndn.NackError{Reason: ndn.NackReasonNoStrategy}, codes.Unavailable},
		{ndn.NackError{Reason: ndn.NackReasonCongestion}, codes.ResourceExhausted},
		{ndn.NackError{Reason: ndn.NackReasonDuplicate}, codes.Aborted},
		{fmt.Errorf("wrapped: %w", ndn.ErrTimeout), codes.DeadlineExceeded},
		{ndn.ErrIncompleteTransfer, codes.DataLoss},
		{ndn.ErrTransport, codes.Unavailable},
		{status.Error(codes.NotFound, "x"), codes.NotFound},
	}
	for _, c := range cases {
		require.Equal(t, c.code, rpc.ToStatus(c.err).Code(), "%v", c.err)
	}
	require.Nil(t, rpc.ToStatus(nil))

	require.True(t, rpc.IsResourceExhausted(status.Error(codes.ResourceExhausted, "")))
	require.True(t, rpc.IsResourceExhausted(status.Error(codes.Unavailable, "")))
	require.False(t, rpc.IsResourceExhausted(status.Error(codes.Internal, "")))
}

func TestStatusEncoding(t *testing.T) {
	tu.SetT(t)
	st := status.New(codes.FailedPrecondition, "not ready")
	wire := tu.NoErr(rpc.EncodeStatus(st))
	back := tu.NoErr(rpc.DecodeStatus(wire))
	require.Equal(t, codes.FailedPrecondition, back.Code())
	require.Equal(t, "not ready", back.Message())

	_, err := rpc.DecodeStatus([]byte{0xff, 0xff})
	require.Error(t, err)
}

func TestMethodMapper(t *testing.T) {
	tu.SetT(t)
	m := rpc.NewMethodMapper(enc.MustNameFromStr("/rpc"), map[string]enc.Name{
		"/calc.Calc/Add": enc.MustNameFromStr("/remote/calc/add"),
	})

	require.Equal(t, "/remote/calc/add", tu.NoErr(m.Map("/calc.Calc/Add")).String())
	require.Equal(t, "/rpc/calc.Calc/Sub", tu.NoErr(m.Map("/calc.Calc/Sub")).String())

	_, err := m.Map("/nomethod")
	require.ErrorIs(t, err, enc.ErrMalformedName)

	m = rpc.NewMethodMapper(nil, nil)
	_, err = m.Map("/calc.Calc/Sub")
	require.Equal(t, codes.Unimplemented, status.Code(err))
}
