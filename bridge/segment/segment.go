// Package segment splits payloads into named Data segments and puts them
// back together.
package segment

import (
	"fmt"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
)

// maxObjectSeg bounds the segment count accepted from the network.
const maxObjectSeg = 1 << 20

// Segment splits payload into Data packets named name/seg=k with content
// of at most maxSize bytes. An empty payload yields one empty segment.
// Every segment carries FinalBlockId so a consumer learns the segment
// count from whichever segment arrives first.
func Segment(name enc.Name, payload []byte, maxSize int) ([]*ndn.Data, error) {
	if maxSize <= 0 {
		return nil, ndn.ErrInvalidValue{Item: "max segment size", Value: maxSize}
	}

	lastSeg := uint64(0)
	if len(payload) > 0 {
		lastSeg = uint64((len(payload) - 1) / maxSize)
	}
	finalBlockId := enc.NewSegmentComponent(lastSeg)

	ret := make([]*ndn.Data, 0, lastSeg+1)
	for seg := uint64(0); seg <= lastSeg; seg++ {
		start := int(seg) * maxSize
		end := min(start+maxSize, len(payload))
		ret = append(ret, &ndn.Data{
			Name:         name.Append(enc.NewSegmentComponent(seg)),
			FinalBlockID: &finalBlockId,
			Content:      payload[start:end],
		})
	}
	return ret, nil
}

// Reassembler buffers segments of one object by number and emits the
// concatenated payload once segments 0..final are all present.
// It is not safe for concurrent use.
type Reassembler struct {
	base  enc.Name
	segs  map[uint64]*ndn.Data
	final int64
	size  int
}

// NewReassembler creates a reassembler for segments under base.
func NewReassembler(base enc.Name) *Reassembler {
	return &Reassembler{
		base:  base,
		segs:  make(map[uint64]*ndn.Data),
		final: -1,
	}
}

// Add buffers one segment. It returns true once the object is complete.
// Duplicates are ignored.
func (r *Reassembler) Add(data *ndn.Data) (bool, error) {
	segNum, ok := data.Name.SegmentNum()
	if !ok || !r.base.Equal(data.Name.Prefix(-1)) {
		return false, fmt.Errorf("%w: %s is not a segment of %s", ndn.ErrMalformedPacket, data.Name, r.base)
	}

	if fin, ok := data.FinalSegment(); ok {
		if fin >= maxObjectSeg {
			return false, fmt.Errorf("%w: invalid FinalBlockId=%d", ndn.ErrMalformedPacket, fin)
		}
		if r.final >= 0 && uint64(r.final) != fin {
			return false, fmt.Errorf("%w: FinalBlockId changed from %d to %d", ndn.ErrMalformedPacket, r.final, fin)
		}
		if r.final < 0 {
			r.final = int64(fin)
			r.evict()
		}
	}
	if r.final >= 0 && segNum > uint64(r.final) {
		return false, fmt.Errorf("%w: segment %d beyond final %d", ndn.ErrMalformedPacket, segNum, r.final)
	}

	if _, dup := r.segs[segNum]; !dup {
		r.segs[segNum] = data
		r.size += len(data.Content)
	}
	return r.Complete(), nil
}

// evict drops segments buffered beyond a newly learned final segment.
func (r *Reassembler) evict() {
	for n, d := range r.segs {
		if n > uint64(r.final) {
			r.size -= len(d.Content)
			delete(r.segs, n)
		}
	}
}

// Has reports whether segment n is buffered.
func (r *Reassembler) Has(n uint64) bool {
	_, ok := r.segs[n]
	return ok
}

// Complete reports whether all segments up to FinalBlockId are present.
func (r *Reassembler) Complete() bool {
	return r.final >= 0 && len(r.segs) == int(r.final)+1
}

// Final returns the final segment number once it is known.
func (r *Reassembler) Final() (uint64, bool) {
	return uint64(r.final), r.final >= 0
}

// Received returns the number of buffered segments.
func (r *Reassembler) Received() int {
	return len(r.segs)
}

// Missing lists the segment numbers not yet received below the final
// segment. Without a known final segment, gaps below the highest received
// segment are listed.
func (r *Reassembler) Missing() []uint64 {
	last := r.final
	if last < 0 {
		for n := range r.segs {
			last = max(last, int64(n))
		}
	}
	ret := make([]uint64, 0)
	for n := int64(0); n <= last; n++ {
		if _, ok := r.segs[uint64(n)]; !ok {
			ret = append(ret, uint64(n))
		}
	}
	return ret
}

// First returns segment 0 if it has arrived.
func (r *Reassembler) First() *ndn.Data {
	return r.segs[0]
}

// Payload concatenates the segments. It fails with ErrIncompleteTransfer
// if any segment is missing.
func (r *Reassembler) Payload() ([]byte, error) {
	if !r.Complete() {
		return nil, fmt.Errorf("%w: %d segments missing", ndn.ErrIncompleteTransfer, len(r.Missing()))
	}
	ret := make([]byte, 0, r.size)
	for n := uint64(0); n <= uint64(r.final); n++ {
		ret = append(ret, r.segs[n].Content...)
	}
	return ret, nil
}

// Reassemble puts a set of segments of one object back together,
// in any arrival order.
func Reassemble(segs []*ndn.Data) ([]byte, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no segments", ndn.ErrIncompleteTransfer)
	}
	r := NewReassembler(segs[0].Name.Prefix(-1))
	for _, d := range segs {
		if _, err := r.Add(d); err != nil {
			return nil, err
		}
	}
	return r.Payload()
}
