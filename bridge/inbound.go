package bridge

import (
	"time"

	"github.com/named-data/ndnrpc/bridge/rpc"
	"github.com/named-data/ndnrpc/bridge/segment"
	"github.com/named-data/ndnrpc/bridge/store"
	"github.com/named-data/ndnrpc/bridge/table"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
	sig "github.com/named-data/ndnrpc/std/security/signer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// onInterest handles an Interest received from the forwarder.
func (b *Bridge) onInterest(pkt *ndn.Packet) {
	interest := pkt.Interest

	// Follow-up segments are served from the store only
	if _, ok := interest.Name.SegmentNum(); ok {
		wire, err := b.store.Get(interest.Name)
		if err != nil {
			log.Warn(b, "Segment store lookup failed", "name", interest.Name, "err", err)
		}
		if wire != nil {
			b.metrics.Inbound.WithLabelValues(inStoreHit).Inc()
			b.send(ndn.WrapLp(wire, pkt.PitToken))
			return
		}
		b.metrics.Inbound.WithLabelValues(inSegmentMiss).Inc()
		log.Debug(b, "Segment not in store", "name", interest.Name)
		return
	}

	entry, err := b.router.Match(interest.Name)
	if err != nil {
		b.metrics.Inbound.WithLabelValues(inNoRoute).Inc()
		log.Debug(b, "No route for Interest", "name", interest.Name)
		b.send(ndn.EncodeNack(pkt.Raw, ndn.NackReasonNoRoute, pkt.PitToken))
		return
	}

	if entry.Handler.IsContent() {
		b.serveContent(entry.Handler, pkt)
		return
	}

	req, err := b.inPit.Create(interest.Name, interest.Nonce, interest.Life())
	if err != nil {
		b.metrics.Inbound.WithLabelValues(inDuplicate).Inc()
		log.Trace(b, "Duplicate Interest", "name", interest.Name, "nonce", interest.Nonce)
		return
	}

	if !b.workers.TryAcquire(1) {
		b.inPit.Withdraw(req)
		b.metrics.Inbound.WithLabelValues(inCongestion).Inc()
		log.Debug(b, "Worker pool saturated", "name", interest.Name)
		b.send(ndn.EncodeNack(pkt.Raw, ndn.NackReasonCongestion, pkt.PitToken))
		return
	}

	go func() {
		defer b.workers.Release(1)
		b.serve(req, entry.Handler, pkt)
	}()
}

// serve invokes the route's RPC and answers the Interest.
func (b *Bridge) serve(req *table.PendingRequest[struct{}], route *RouteConfig, pkt *ndn.Packet) {
	interest := pkt.Interest
	md := rpc.RequestMetadata(interest.Name, interest.Nonce)
	params := interest.AppParams
	if params == nil {
		params = []byte{}
	}

	start := time.Now()
	res, err := b.invoker.Invoke(req.Context(), route.Target, route.Method, params, md)
	b.metrics.RpcDuration.Observe(time.Since(start).Seconds())
	b.metrics.RpcResults.WithLabelValues(status.Code(err).String()).Inc()

	if req.Done() {
		b.metrics.Inbound.WithLabelValues(inExpired).Inc()
		log.Debug(b, "Request expired before the RPC completed", "name", interest.Name)
		return
	}

	if err != nil {
		if rpc.IsResourceExhausted(err) {
			if b.inPit.FulfillRequest(req, table.Result[struct{}]{Err: err}) {
				b.metrics.Inbound.WithLabelValues(inCongestion).Inc()
				b.send(ndn.EncodeNack(pkt.Raw, ndn.NackReasonCongestion, pkt.PitToken))
			}
			return
		}
		log.Debug(b, "RPC failed", "name", interest.Name, "err", err)
		b.replyError(req, route, pkt, status.Convert(err))
		return
	}

	wires, err := b.produce(route, interest.Name, res, b.config.Store.Freshness())
	if err != nil {
		log.Error(b, "Unable to produce response", "name", interest.Name, "err", err)
		b.replyError(req, route, pkt, status.New(codes.Internal, err.Error()))
		return
	}

	if !b.inPit.FulfillRequest(req, table.Result[struct{}]{}) {
		b.metrics.Inbound.WithLabelValues(inExpired).Inc()
		return
	}
	b.metrics.Inbound.WithLabelValues(inServed).Inc()

	for i, wire := range wires {
		if i == 0 {
			wire = ndn.WrapLp(wire, pkt.PitToken)
		}
		if !b.send(wire) {
			b.metrics.Inbound.WithLabelValues(inSendFailed).Inc()
			return
		}
	}
}

// produce segments and signs a result, and keeps the segments in the
// store for ttl.
func (b *Bridge) produce(route *RouteConfig, name enc.Name, payload []byte, ttl time.Duration) ([][]byte, error) {
	segs, err := segment.Segment(name, payload, b.config.Segmentation.MaxSegmentSizeBytes)
	if err != nil {
		return nil, err
	}

	freshness := b.config.Store.Freshness()
	wires := make([][]byte, 0, len(segs))
	for _, data := range segs {
		data.Freshness = freshness
		wire, err := b.keys.Sign(route.IdentityN, data)
		if err != nil {
			return nil, err
		}
		wires = append(wires, wire)
	}

	for i, wire := range wires {
		if err := b.store.Put(segs[i].Name, wire, ttl); err != nil {
			log.Warn(b, "Unable to store segment", "name", segs[i].Name, "err", err)
		}
	}
	return wires, nil
}

// replyError answers with an ApplicationError Data carrying st.
func (b *Bridge) replyError(req *table.PendingRequest[struct{}], route *RouteConfig, pkt *ndn.Packet, st *status.Status) {
	wire, err := b.applicationError(route, pkt.Interest.Name, st)
	if err != nil {
		log.Error(b, "Unable to encode application error", "name", pkt.Interest.Name, "err", err)
		b.inPit.Withdraw(req)
		return
	}
	if !b.inPit.FulfillRequest(req, table.Result[struct{}]{Err: st.Err()}) {
		b.metrics.Inbound.WithLabelValues(inExpired).Inc()
		return
	}
	b.metrics.Inbound.WithLabelValues(inAppError).Inc()
	b.send(ndn.WrapLp(wire, pkt.PitToken))
}

// applicationError encodes name/seg=0 with ContentType Nack and a
// google.rpc.Status body. It is signed by the route identity when
// possible, and with DigestSha256 otherwise.
func (b *Bridge) applicationError(route *RouteConfig, name enc.Name, st *status.Status) ([]byte, error) {
	content, err := rpc.EncodeStatus(st)
	if err != nil {
		return nil, err
	}
	final := enc.NewSegmentComponent(0)
	data := &ndn.Data{
		Name:         name.Append(final),
		ContentType:  ndn.ContentTypeNack,
		FinalBlockID: &final,
		Content:      content,
	}

	if wire, err := b.keys.Sign(route.IdentityN, data); err == nil {
		return wire, nil
	}
	return data.Encode(sig.NewSha256Signer())
}

// serveContent answers from published content. Unknown names get a
// NotFound application error.
func (b *Bridge) serveContent(route *RouteConfig, pkt *ndn.Packet) {
	name := pkt.Interest.Name
	wire, err := b.store.Get(name.Append(enc.NewSegmentComponent(0)))
	if err != nil {
		log.Warn(b, "Segment store lookup failed", "name", name, "err", err)
	}
	if wire != nil {
		b.metrics.Inbound.WithLabelValues(inStoreHit).Inc()
		b.send(ndn.WrapLp(wire, pkt.PitToken))
		return
	}

	b.metrics.Inbound.WithLabelValues(inNotFound).Inc()
	log.Debug(b, "No content published", "name", name)
	wire, err = b.applicationError(route, name, status.New(codes.NotFound, "no content for "+name.String()))
	if err != nil {
		log.Error(b, "Unable to encode application error", "name", name, "err", err)
		return
	}
	b.send(ndn.WrapLp(wire, pkt.PitToken))
}

// Publish signs and stores payload under name, which must fall under a
// served route. It stays available until the bridge stops.
func (b *Bridge) Publish(name enc.Name, payload []byte) error {
	entry, err := b.router.Match(name)
	if err != nil {
		return err
	}
	if _, err = b.produce(entry.Handler, name, payload, store.NoExpiration); err != nil {
		return err
	}
	log.Info(b, "Published content", "name", name, "size", len(payload))
	return nil
}
