package table

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
)

const pitShards = 32

// Result is the terminal outcome of a pending request.
type Result[R any] struct {
	Value R
	Err   error
}

// PendingRequest is an outstanding correlation keyed by (name, nonce).
// It reaches exactly one terminal state; the result channel receives
// exactly one value.
type PendingRequest[R any] struct {
	Name     enc.Name
	Nonce    uint32
	Created  time.Time
	Lifetime time.Duration

	// State is owned by the creator of the request, e.g. reassembly buffers.
	State any

	ctx    context.Context
	cancel context.CancelFunc
	result chan Result[R]
	done   atomic.Bool
}

// Context is cancelled when the request reaches any terminal state.
func (p *PendingRequest[R]) Context() context.Context {
	return p.ctx
}

// Result delivers the single terminal outcome.
func (p *PendingRequest[R]) Result() <-chan Result[R] {
	return p.result
}

func (p *PendingRequest[R]) Expiry() time.Time {
	return p.Created.Add(p.Lifetime)
}

func (p *PendingRequest[R]) Done() bool {
	return p.done.Load()
}

func (p *PendingRequest[R]) expired(now time.Time) bool {
	return p.Expiry().Before(now)
}

// finish moves the request to its terminal state. Only the first call wins.
func (p *PendingRequest[R]) finish(r Result[R]) bool {
	if !p.done.CompareAndSwap(false, true) {
		return false
	}
	p.result <- r
	p.cancel()
	return true
}

type pitShard[R any] struct {
	mutex   sync.Mutex
	entries map[string]map[uint32]*PendingRequest[R]
}

// Pit is the pending request table. Entries are sharded by the xxhash of
// their name so that unrelated requests do not contend on one lock.
type Pit[R any] struct {
	shards [pitShards]pitShard[R]
	timer  ndn.Timer
	size   atomic.Int64

	// OnExpire decides the result delivered to an expired request.
	// It defaults to ErrTimeout.
	OnExpire func(*PendingRequest[R]) Result[R]
}

func NewPit[R any](timer ndn.Timer) *Pit[R] {
	p := &Pit[R]{timer: timer}
	for i := range p.shards {
		p.shards[i].entries = make(map[string]map[uint32]*PendingRequest[R])
	}
	return p
}

func (p *Pit[R]) String() string {
	return "pit"
}

func (p *Pit[R]) shard(name enc.Name) *pitShard[R] {
	return &p.shards[name.Hash()%pitShards]
}

// Create registers a pending request. It fails with ErrDuplicateRequest if
// an unexpired entry with the same name and nonce exists.
func (p *Pit[R]) Create(name enc.Name, nonce uint32, lifetime time.Duration) (*PendingRequest[R], error) {
	now := p.timer.Now()
	key := name.Key()
	s := p.shard(name)

	s.mutex.Lock()
	byNonce := s.entries[key]
	if old, ok := byNonce[nonce]; ok {
		if !old.expired(now) {
			s.mutex.Unlock()
			return nil, fmt.Errorf("%w: %s nonce=%08x", ndn.ErrDuplicateRequest, name, nonce)
		}
		// Expired but not swept yet
		delete(byNonce, nonce)
		p.size.Add(-1)
		defer p.expire(old)
	}
	if byNonce == nil {
		byNonce = make(map[uint32]*PendingRequest[R])
		s.entries[key] = byNonce
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := &PendingRequest[R]{
		Name:     name,
		Nonce:    nonce,
		Created:  now,
		Lifetime: lifetime,
		ctx:      ctx,
		cancel:   cancel,
		result:   make(chan Result[R], 1),
	}
	byNonce[nonce] = req
	p.size.Add(1)
	s.mutex.Unlock()
	return req, nil
}

// remove detaches the entry if it is still the one stored under its key.
func (p *Pit[R]) remove(req *PendingRequest[R]) bool {
	key := req.Name.Key()
	s := p.shard(req.Name)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	byNonce := s.entries[key]
	if byNonce[req.Nonce] != req {
		return false
	}
	delete(byNonce, req.Nonce)
	if len(byNonce) == 0 {
		delete(s.entries, key)
	}
	p.size.Add(-1)
	return true
}

// Find returns the pending request for (name, nonce), or nil.
func (p *Pit[R]) Find(name enc.Name, nonce uint32) *PendingRequest[R] {
	s := p.shard(name)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.entries[name.Key()][nonce]
}

// FindName returns all pending requests for name.
func (p *Pit[R]) FindName(name enc.Name) []*PendingRequest[R] {
	s := p.shard(name)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	byNonce := s.entries[name.Key()]
	ret := make([]*PendingRequest[R], 0, len(byNonce))
	for _, req := range byNonce {
		ret = append(ret, req)
	}
	return ret
}

// Fulfill delivers value to the request (name, nonce). The first call
// wins; later calls and calls for unknown entries return false.
func (p *Pit[R]) Fulfill(name enc.Name, nonce uint32, r Result[R]) bool {
	req := p.Find(name, nonce)
	if req == nil {
		return false
	}
	return p.FulfillRequest(req, r)
}

// FulfillRequest delivers r to req if it is still pending.
func (p *Pit[R]) FulfillRequest(req *PendingRequest[R], r Result[R]) bool {
	if req.Done() {
		return false
	}
	if !p.remove(req) {
		return false
	}
	return req.finish(r)
}

// FulfillName delivers r to every request pending on name, since a Data
// carries no nonce. It returns the number of fulfilled requests.
func (p *Pit[R]) FulfillName(name enc.Name, r Result[R]) int {
	n := 0
	for _, req := range p.FindName(name) {
		if p.FulfillRequest(req, r) {
			n++
		}
	}
	return n
}

// Withdraw removes a request without a result other than ErrCancelled.
func (p *Pit[R]) Withdraw(req *PendingRequest[R]) bool {
	return p.FulfillRequest(req, Result[R]{Err: ndn.ErrCancelled})
}

func (p *Pit[R]) expire(req *PendingRequest[R]) {
	r := Result[R]{Err: ndn.ErrTimeout}
	if p.OnExpire != nil {
		r = p.OnExpire(req)
	}
	req.finish(r)
}

// Sweep removes every entry whose creation time plus lifetime is before
// now. Each waiter of a swept entry receives the expiry result.
func (p *Pit[R]) Sweep(now time.Time) int {
	expired := make([]*PendingRequest[R], 0)
	for i := range p.shards {
		s := &p.shards[i]
		s.mutex.Lock()
		for key, byNonce := range s.entries {
			for nonce, req := range byNonce {
				if req.expired(now) {
					delete(byNonce, nonce)
					expired = append(expired, req)
				}
			}
			if len(byNonce) == 0 {
				delete(s.entries, key)
			}
		}
		s.mutex.Unlock()
	}

	p.size.Add(-int64(len(expired)))
	for _, req := range expired {
		p.expire(req)
	}
	return len(expired)
}

// Run sweeps on a fixed interval until ctx is cancelled.
// onSweep, if set, receives the number of expired entries.
func (p *Pit[R]) Run(ctx context.Context, interval time.Duration, onSweep func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := p.Sweep(p.timer.Now())
			if n > 0 {
				log.Debug(p, "Swept expired entries", "count", n)
			}
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (p *Pit[R]) Len() int {
	return int(p.size.Load())
}
