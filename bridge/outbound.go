package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/named-data/ndnrpc/bridge/rpc"
	"github.com/named-data/ndnrpc/bridge/segment"
	"github.com/named-data/ndnrpc/bridge/table"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
	"github.com/named-data/ndnrpc/std/security"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

// fetchWindow bounds the outstanding segment Interests of one request.
const fetchWindow = 10

// fetchState is the reassembly state of one outbound request.
// Segments below nextSeg have been requested or received.
type fetchState struct {
	mutex    sync.Mutex
	asm      *segment.Reassembler
	nextSeg  uint64
	inflight int
}

// next picks the segments to request so that at most fetchWindow are
// outstanding. Until the final segment is known it keeps requesting
// past the highest one. Requires the mutex.
func (st *fetchState) next() []uint64 {
	final, bounded := st.asm.Final()
	ret := make([]uint64, 0)
	for st.inflight < fetchWindow && !(bounded && st.nextSeg > final) {
		if !st.asm.Has(st.nextSeg) {
			ret = append(ret, st.nextSeg)
			st.inflight++
		}
		st.nextSeg++
	}
	return ret
}

// recount forgets requests past the final segment once it is learned.
// Requires the mutex.
func (st *fetchState) recount() {
	final, _ := st.asm.Final()
	st.inflight = 0
	for n := uint64(0); n < st.nextSeg && n <= final; n++ {
		if !st.asm.Has(n) {
			st.inflight++
		}
	}
}

// handleCall serves a gateway call by expressing it as an Interest.
func (b *Bridge) handleCall(ctx context.Context, method string, req []byte, _ metadata.MD) ([]byte, error) {
	name, err := b.mapper.Map(method)
	if err != nil {
		return nil, err
	}
	log.Trace(b, "Gateway call", "method", method, "name", name)
	return b.Express(ctx, name, req)
}

// Express sends an Interest for name carrying params, and waits for the
// complete payload, a Nack, or expiry.
func (b *Bridge) Express(ctx context.Context, name enc.Name, params []byte) ([]byte, error) {
	lifetime := b.config.Pit.DefaultLifetime()
	if deadline, ok := ctx.Deadline(); ok {
		lifetime = min(lifetime, time.Until(deadline))
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: %s", ndn.ErrTimeout, name)
	}

	interest := &ndn.Interest{
		Name:        name,
		CanBePrefix: true,
		MustBeFresh: true,
		Nonce:       b.timer.Nonce(),
		Lifetime:    lifetime,
	}
	if len(params) > 0 {
		interest.AppParams = params
	}
	wire, err := interest.Encode(nil)
	if err != nil {
		return nil, err
	}

	req, err := b.outPit.Create(interest.Name, interest.Nonce, lifetime)
	if err != nil {
		return nil, err
	}
	req.State = &fetchState{asm: segment.NewReassembler(interest.Name)}

	if !b.send(wire) {
		b.outPit.Withdraw(req)
		return nil, fmt.Errorf("%w: unable to send Interest %s", ndn.ErrTransport, interest.Name)
	}

	select {
	case res := <-req.Result():
		b.countOutbound(res.Err)
		return res.Value, res.Err
	case <-ctx.Done():
		b.outPit.Withdraw(req)
		b.metrics.Outbound.WithLabelValues(outCancelled).Inc()
		return nil, ctx.Err()
	}
}

func (b *Bridge) countOutbound(err error) {
	if err == nil {
		b.metrics.Outbound.WithLabelValues(outData).Inc()
		return
	}
	switch rpc.ToStatus(err).Code() {
	case codes.DeadlineExceeded:
		b.metrics.Outbound.WithLabelValues(outTimeout).Inc()
	case codes.DataLoss:
		b.metrics.Outbound.WithLabelValues(outIncomplete).Inc()
	}
}

// onOutboundExpire decides between Timeout and IncompleteTransfer.
func (b *Bridge) onOutboundExpire(req *table.PendingRequest[[]byte]) table.Result[[]byte] {
	if st, ok := req.State.(*fetchState); ok {
		st.mutex.Lock()
		defer st.mutex.Unlock()
		if st.asm.Received() > 0 {
			return table.Result[[]byte]{Err: fmt.Errorf("%w: %s, missing %v",
				ndn.ErrIncompleteTransfer, req.Name, st.asm.Missing())}
		}
	}
	return table.Result[[]byte]{Err: fmt.Errorf("%w: %s", ndn.ErrTimeout, req.Name)}
}

// onData matches a Data against outbound requests.
func (b *Bridge) onData(pkt *ndn.Packet) {
	data := pkt.Data
	// Forwarder command responses are not covered by the trust store
	if b.trust != nil && !localhostPrefix.IsPrefix(data.Name) && !security.VerifyData(data, b.trust) {
		b.metrics.Outbound.WithLabelValues(outInvalid).Inc()
		log.Warn(b, "Dropped Data failing verification", "name", data.Name)
		return
	}

	matched := false

	// Unsegmented reply, e.g. a command response
	for _, req := range b.outPit.FindName(data.Name) {
		matched = true
		b.outPit.FulfillRequest(req, b.dataResult(data))
	}

	if _, ok := data.Name.SegmentNum(); ok {
		base := data.Name.Prefix(-1)
		for _, req := range b.outPit.FindName(base) {
			matched = true
			b.onSegment(req, base, data)
		}
	}

	if !matched {
		b.metrics.Outbound.WithLabelValues(outUnsolicit).Inc()
		log.Trace(b, "Unsolicited Data", "name", data.Name)
	}
}

func (b *Bridge) dataResult(data *ndn.Data) table.Result[[]byte] {
	if data.ContentType != ndn.ContentTypeNack {
		return table.Result[[]byte]{Value: data.Content}
	}
	st, err := rpc.DecodeStatus(data.Content)
	if err != nil {
		return table.Result[[]byte]{Err: fmt.Errorf("%w: application error: %v", ndn.ErrMalformedPacket, err)}
	}
	b.metrics.Outbound.WithLabelValues(outAppError).Inc()
	return table.Result[[]byte]{Err: st.Err()}
}

func (b *Bridge) onSegment(req *table.PendingRequest[[]byte], base enc.Name, data *ndn.Data) {
	st, ok := req.State.(*fetchState)
	if !ok {
		return
	}

	// ApplicationError replaces the whole object
	if data.ContentType == ndn.ContentTypeNack {
		b.outPit.FulfillRequest(req, b.dataResult(data))
		return
	}

	segNum, _ := data.Name.SegmentNum()

	st.mutex.Lock()
	_, hadFinal := st.asm.Final()
	had := st.asm.Received()
	complete, err := st.asm.Add(data)
	var payload []byte
	var fetch []uint64
	if _, ok := st.asm.Final(); ok && !hadFinal {
		st.recount()
	} else if err == nil && st.asm.Received() > had && segNum < st.nextSeg && st.inflight > 0 {
		st.inflight--
	}
	if err == nil {
		if complete {
			payload, err = st.asm.Payload()
		} else {
			fetch = st.next()
		}
	}
	st.mutex.Unlock()

	if err != nil {
		log.Debug(b, "Dropped segment", "name", data.Name, "err", err)
		return
	}
	if complete {
		b.outPit.FulfillRequest(req, table.Result[[]byte]{Value: payload})
		return
	}
	b.fetchSegments(req, base, fetch)
}

func (b *Bridge) fetchSegments(req *table.PendingRequest[[]byte], base enc.Name, segs []uint64) {
	lifetime := time.Until(req.Expiry())
	if lifetime <= 0 {
		return
	}
	for _, seg := range segs {
		b.fetchSegment(base.Append(enc.NewSegmentComponent(seg)), lifetime)
	}
}

// fetchSegment expresses an Interest for one segment. Its Data is matched
// through the base name of the originating request.
func (b *Bridge) fetchSegment(name enc.Name, lifetime time.Duration) {
	interest := &ndn.Interest{
		Name:     name,
		Nonce:    b.timer.Nonce(),
		Lifetime: lifetime,
	}
	wire, err := interest.Encode(nil)
	if err != nil {
		log.Warn(b, "Unable to encode segment Interest", "name", name, "err", err)
		return
	}
	b.send(wire)
}

// onNack fails the outbound request that the Nack answers.
func (b *Bridge) onNack(pkt *ndn.Packet) {
	nack := pkt.Nack
	res := table.Result[[]byte]{Err: ndn.NackError{Reason: nack.Reason}}
	b.metrics.Outbound.WithLabelValues(outNack).Inc()

	if b.outPit.Fulfill(nack.Interest.Name, nack.Interest.Nonce, res) {
		return
	}

	// A Nack for a segment Interest fails the whole object
	if _, ok := nack.Interest.Name.SegmentNum(); ok {
		b.outPit.FulfillName(nack.Interest.Name.Prefix(-1), res)
	}
}
