package bridge

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/named-data/ndnrpc/std/engine/face"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "ndnrpc"

// Inbound outcomes
const (
	inServed      = "served"
	inStoreHit    = "store_hit"
	inSegmentMiss = "segment_miss"
	inNotFound    = "not_found"
	inNoRoute     = "no_route"
	inDuplicate   = "duplicate"
	inCongestion  = "congestion"
	inAppError    = "app_error"
	inExpired     = "expired"
	inSendFailed  = "send_failed"
)

// Outbound outcomes
const (
	outData       = "data"
	outAppError   = "app_error"
	outNack       = "nack"
	outTimeout    = "timeout"
	outIncomplete = "incomplete"
	outCancelled  = "cancelled"
	outInvalid    = "invalid_signature"
	outUnsolicit  = "unsolicited"
)

// Metrics are the bridge counters, kept in a registry owned by the bridge.
type Metrics struct {
	registry *prometheus.Registry

	Inbound     *prometheus.CounterVec
	Outbound    *prometheus.CounterVec
	RpcResults  *prometheus.CounterVec
	RpcDuration prometheus.Histogram
	Expired     *prometheus.CounterVec
	Announces   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inbound_interests_total",
			Help:      "Interests received from the forwarder, by outcome.",
		}, []string{"result"}),
		Outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outbound_requests_total",
			Help:      "Gateway requests expressed as Interests, by outcome.",
		}, []string{"result"}),
		RpcResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rpc_calls_total",
			Help:      "Backend RPC invocations, by status code.",
		}, []string{"code"}),
		RpcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "Latency of backend RPC invocations.",
			Buckets:   prometheus.DefBuckets,
		}),
		Expired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pit_expired_total",
			Help:      "Pending requests removed by the expiry sweep.",
		}, []string{"table"}),
		Announces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "route_announcements_total",
			Help:      "Prefix registration commands sent to the forwarder, by result.",
		}, []string{"command", "result"}),
	}

	m.registry.MustRegister(
		m.Inbound,
		m.Outbound,
		m.RpcResults,
		m.RpcDuration,
		m.Expired,
		m.Announces,
		collectors.NewGoCollector(),
	)
	return m
}

// registerFace exports the adapter counters.
func (m *Metrics) registerFace(f *face.Face) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "face_malformed_packets_total",
			Help:      "Frames dropped because they could not be decoded.",
		}, func() float64 { return float64(f.Counters().Malformed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "face_resets_total",
			Help:      "Connections reset because of unrecoverable framing.",
		}, func() float64 { return float64(f.Counters().Resets) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "face_reconnects_total",
			Help:      "Successful reconnections to the forwarder.",
		}, func() float64 { return float64(f.Counters().Reconnects) }),
	)
}

func (m *Metrics) String() string {
	return "metrics"
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// serve exposes /metrics on lis until the server is shut down.
func (m *Metrics) serve(lis net.Listener) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info(m, "Serving metrics", "addr", lis.Addr())
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(m, "Metrics server failed", "err", err)
		}
	}()
	return server
}
